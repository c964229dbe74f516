package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shiva/shipquote/internal/model"
)

// DefaultCurrency is used when a scheme does not set one.
const DefaultCurrency = "CNY"

// Assemble produces a quote for req against one scheme snapshot.
//
// Steps:
//  1. Derive the chargeable weight.
//  2. Match zone → segment → bracket (failures propagate as typed errors).
//  3. Price the bracket.
//  4. Evaluate destination adjustments and surcharges.
//  5. Sum and round once:
//
//     total = round2(base + Σ dest_adjustments + Σ surcharges)
//
// A manual_quote bracket yields MANUAL_REQUIRED with a nil total; the breakdown
// still names the zone, bracket and weight.
func Assemble(snap *model.SchemeSnapshot, req model.QuoteRequest) (*model.Quote, error) {
	if !req.RealWeightKg.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidWeight, req.RealWeightKg)
	}

	// ── Step 1: Weight ──────────────────────────────────
	weight, reasons := ChargeableWeight(snap.Scheme.BillableWeight, req)
	if !snap.Scheme.Active {
		reasons = append(reasons, fmt.Sprintf("scheme %d is inactive", snap.Scheme.ID))
	}

	// ── Step 2: Match ───────────────────────────────────
	hit, err := Match(snap, req.Dest, weight.BillableKg)
	if err != nil {
		return nil, err
	}

	// ── Step 3: Base fare ───────────────────────────────
	base := CalculateBase(hit.Bracket, weight.BillableKg)

	// ── Step 4: Additions ───────────────────────────────
	adjustments := EvaluateDestAdjustments(snap.DestAdjustments, req.Dest)
	surcharges, surchargeReasons := EvaluateSurcharges(snap.Surcharges, req.Dest, req.Flags, weight.BillableKg)
	reasons = append(reasons, surchargeReasons...)

	daSum := decimal.Zero
	for _, a := range adjustments {
		daSum = daSum.Add(a.Amount)
	}
	surSum := decimal.Zero
	for _, s := range surcharges {
		surSum = surSum.Add(s.Amount)
	}

	// ── Step 5: Summary ─────────────────────────────────
	summary := model.QuoteSummary{
		DestAdjustmentAmount: RoundMoney(daSum),
		SurchargeAmount:      RoundMoney(surSum),
		ExtraAmount:          RoundMoney(daSum.Add(surSum)),
	}

	status := model.QuoteOK
	var total *model.Money
	if base.Amount == nil {
		status = model.QuoteManualRequired
		reasons = append(reasons, base.Message)
	} else {
		baseRounded := RoundMoney(*base.Amount)
		t := RoundMoney(base.Amount.Add(daSum).Add(surSum))
		summary.BaseAmount = &baseRounded
		summary.TotalAmount = &t
		total = &t
	}

	currency := snap.Scheme.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	if reasons == nil {
		reasons = []string{}
	}

	return &model.Quote{
		SchemeID:    snap.Scheme.ID,
		WarehouseID: req.WarehouseID,
		Currency:    currency,
		Dest:        req.Dest,
		Weight:      weight,
		Zone: model.ZoneHit{
			ID:                hit.Zone.ID,
			Name:              hit.Zone.Name,
			Priority:          hit.Zone.Priority,
			SegmentTemplateID: hit.Template.ID,
			TemplateSource:    hit.TemplateSource,
			MatchedMembers:    hit.MatchedMembers,
			Candidates:        hit.Candidates,
		},
		Bracket: model.BracketHit{
			ID:          hit.Bracket.ID,
			SegmentOrd:  hit.Item.Ord,
			MinKg:       hit.Bracket.Range.MinKg,
			MaxKg:       hit.Bracket.Range.MaxKg,
			PricingMode: base.Kind,
		},
		Breakdown: model.QuoteBreakdown{
			Base:            base,
			DestAdjustments: adjustments,
			Surcharges:      surcharges,
			Summary:         summary,
		},
		TotalAmount: total,
		QuoteStatus: status,
		Reasons:     reasons,
	}, nil
}
