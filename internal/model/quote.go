package model

import "github.com/shopspring/decimal"

type QuoteStatus string

const (
	QuoteOK             QuoteStatus = "OK"
	QuoteManualRequired QuoteStatus = "MANUAL_REQUIRED"
)

// ─── Input ──────────────────────────────────────────────────

// Destination is the delivery address as administrative values.
type Destination struct {
	Province string `json:"province"`
	City     string `json:"city"`
	District string `json:"district,omitempty"`
}

// QuoteRequest is the engine input. Dimensions are all-or-nothing.
type QuoteRequest struct {
	SchemeID     int64
	WarehouseID  int64
	Dest         Destination
	RealWeightKg decimal.Decimal
	LengthCm     *decimal.Decimal
	WidthCm      *decimal.Decimal
	HeightCm     *decimal.Decimal
	Flags        []string
}

// ─── Output ─────────────────────────────────────────────────

// WeightDerivation explains how the chargeable weight was reached.
type WeightDerivation struct {
	RealKg            decimal.Decimal  `json:"real_weight_kg"`
	VolumetricKg      *decimal.Decimal `json:"volumetric_weight_kg"`
	VolumetricDivisor decimal.Decimal  `json:"volumetric_divisor"`
	DimsApplied       bool             `json:"dims_applied"`
	Rounding          WeightRounding   `json:"rounding"`
	BillableKg        decimal.Decimal  `json:"billable_weight_kg"`
}

// ZoneHit identifies the winning zone.
type ZoneHit struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	Priority          int          `json:"priority"`
	SegmentTemplateID int64        `json:"segment_template_id"`
	TemplateSource    string       `json:"template_source"` // "zone" or "scheme_default"
	MatchedMembers    []ZoneMember `json:"matched_members"`
	Candidates        []int64      `json:"candidate_zone_ids"`
}

// BracketHit identifies the winning bracket and its segment.
type BracketHit struct {
	ID          int64            `json:"id"`
	SegmentOrd  int              `json:"segment_ord"`
	MinKg       decimal.Decimal  `json:"min_kg"`
	MaxKg       *decimal.Decimal `json:"max_kg"`
	PricingMode PricingMode      `json:"pricing_mode"`
}

// BaseBreakdown echoes the bracket parameters and the unrounded base fare.
type BaseBreakdown struct {
	Kind             PricingMode      `json:"kind"`
	Amount           *decimal.Decimal `json:"amount"`
	BillableWeightKg decimal.Decimal  `json:"billable_weight_kg"`
	FlatAmount       *decimal.Decimal `json:"flat_amount,omitempty"`
	BaseAmount       *decimal.Decimal `json:"base_amount,omitempty"`
	RatePerKg        *decimal.Decimal `json:"rate_per_kg,omitempty"`
	BaseKg           *decimal.Decimal `json:"base_kg,omitempty"`
	Formula          string           `json:"formula"`
	Message          string           `json:"message,omitempty"`
}

// DestAdjustmentLine is an applied destination adjustment.
type DestAdjustmentLine struct {
	ID            int64           `json:"id"`
	Scope         AdjustmentScope `json:"scope"`
	Province      string          `json:"province"`
	City          string          `json:"city,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	SupersededIDs []int64         `json:"superseded_ids,omitempty"`
}

// SurchargeLine is an applied surcharge with a self-contained justification.
type SurchargeLine struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	Condition SurchargeCondition `json:"condition"`
	Detail    SurchargeDetail    `json:"detail"`
	MatchedOn []string           `json:"matched_on"`
	Amount    decimal.Decimal    `json:"amount"`
	Formula   string             `json:"formula"`
}

// QuoteSummary carries display figures, each rounded to two places.
type QuoteSummary struct {
	BaseAmount           *Money `json:"base_amount"`
	DestAdjustmentAmount Money  `json:"dest_adjustment_amount"`
	SurchargeAmount      Money  `json:"surcharge_amount"`
	ExtraAmount          Money  `json:"extra_amount"`
	TotalAmount          *Money `json:"total_amount"`
}

// QuoteBreakdown is the full explanation rendered by consumers.
type QuoteBreakdown struct {
	Base            BaseBreakdown        `json:"base"`
	DestAdjustments []DestAdjustmentLine `json:"dest_adjustments"`
	Surcharges      []SurchargeLine      `json:"surcharges"`
	Summary         QuoteSummary         `json:"summary"`
}

// Quote is the priced, explainable result. TotalAmount is nil when
// QuoteStatus is MANUAL_REQUIRED.
type Quote struct {
	SchemeID    int64            `json:"scheme_id"`
	WarehouseID int64            `json:"warehouse_id"`
	Currency    string           `json:"currency"`
	Dest        Destination      `json:"dest"`
	Weight      WeightDerivation `json:"weight"`
	Zone        ZoneHit          `json:"zone"`
	Bracket     BracketHit       `json:"bracket"`
	Breakdown   QuoteBreakdown   `json:"breakdown"`
	TotalAmount *Money           `json:"total_amount"`
	QuoteStatus QuoteStatus      `json:"quote_status"`
	Reasons     []string         `json:"reasons"`
}
