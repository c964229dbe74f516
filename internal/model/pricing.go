package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidPricing is returned when a bracket's mode and parameters disagree.
var ErrInvalidPricing = errors.New("invalid bracket pricing")

type PricingMode string

const (
	ModeFlat        PricingMode = "flat"
	ModeLinearTotal PricingMode = "linear_total"
	ModeStepOver    PricingMode = "step_over"
	ModeManualQuote PricingMode = "manual_quote"
)

// Pricing is the tagged variant carried by a bracket. Consumers dispatch on it
// through PricingVisitor, so adding a mode breaks every visitor at compile time.
type Pricing interface {
	Mode() PricingMode
	Accept(v PricingVisitor)
}

// PricingVisitor has one method per pricing mode.
type PricingVisitor interface {
	VisitFlat(FlatPricing)
	VisitLinearTotal(LinearTotalPricing)
	VisitStepOver(StepOverPricing)
	VisitManualQuote(ManualQuotePricing)
}

// FlatPricing charges a weight-independent amount.
type FlatPricing struct {
	Amount decimal.Decimal
}

// LinearTotalPricing charges base + rate × weight.
type LinearTotalPricing struct {
	BaseAmount decimal.Decimal
	RatePerKg  decimal.Decimal
}

// StepOverPricing charges base for the first BaseKg and rate for every kg above it.
type StepOverPricing struct {
	BaseKg     decimal.Decimal
	BaseAmount decimal.Decimal
	RatePerKg  decimal.Decimal
}

// ManualQuotePricing has no computable amount.
type ManualQuotePricing struct{}

func (FlatPricing) Mode() PricingMode        { return ModeFlat }
func (LinearTotalPricing) Mode() PricingMode { return ModeLinearTotal }
func (StepOverPricing) Mode() PricingMode    { return ModeStepOver }
func (ManualQuotePricing) Mode() PricingMode { return ModeManualQuote }

func (p FlatPricing) Accept(v PricingVisitor)        { v.VisitFlat(p) }
func (p LinearTotalPricing) Accept(v PricingVisitor) { v.VisitLinearTotal(p) }
func (p StepOverPricing) Accept(v PricingVisitor)    { v.VisitStepOver(p) }
func (p ManualQuotePricing) Accept(v PricingVisitor) { v.VisitManualQuote(p) }

// PricingFields is the flat column/JSON shape of a pricing variant.
type PricingFields struct {
	Mode       PricingMode      `json:"pricing_mode"`
	FlatAmount *decimal.Decimal `json:"flat_amount"`
	BaseAmount *decimal.Decimal `json:"base_amount"`
	RatePerKg  *decimal.Decimal `json:"rate_per_kg"`
	BaseKg     *decimal.Decimal `json:"base_kg"`
}

// Pricing converts the flat shape into a variant, requiring exactly the
// parameters the mode needs. Amounts must not be negative.
func (f PricingFields) Pricing() (Pricing, error) {
	need := func(name string, v *decimal.Decimal) (decimal.Decimal, error) {
		if v == nil {
			return decimal.Zero, fmt.Errorf("%w: %s requires %s", ErrInvalidPricing, f.Mode, name)
		}
		if v.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: %s must not be negative", ErrInvalidPricing, name)
		}
		return *v, nil
	}

	switch f.Mode {
	case ModeFlat:
		amt, err := need("flat_amount", f.FlatAmount)
		if err != nil {
			return nil, err
		}
		return FlatPricing{Amount: amt}, nil
	case ModeLinearTotal:
		base, err := need("base_amount", f.BaseAmount)
		if err != nil {
			return nil, err
		}
		rate, err := need("rate_per_kg", f.RatePerKg)
		if err != nil {
			return nil, err
		}
		return LinearTotalPricing{BaseAmount: base, RatePerKg: rate}, nil
	case ModeStepOver:
		baseKg, err := need("base_kg", f.BaseKg)
		if err != nil {
			return nil, err
		}
		base, err := need("base_amount", f.BaseAmount)
		if err != nil {
			return nil, err
		}
		rate, err := need("rate_per_kg", f.RatePerKg)
		if err != nil {
			return nil, err
		}
		return StepOverPricing{BaseKg: baseKg, BaseAmount: base, RatePerKg: rate}, nil
	case ModeManualQuote:
		return ManualQuotePricing{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown pricing_mode %q", ErrInvalidPricing, f.Mode)
	}
}

// fieldsVisitor flattens a variant back into columns.
type fieldsVisitor struct{ out PricingFields }

func (v *fieldsVisitor) VisitFlat(p FlatPricing) {
	v.out = PricingFields{Mode: ModeFlat, FlatAmount: &p.Amount}
}

func (v *fieldsVisitor) VisitLinearTotal(p LinearTotalPricing) {
	v.out = PricingFields{Mode: ModeLinearTotal, BaseAmount: &p.BaseAmount, RatePerKg: &p.RatePerKg}
}

func (v *fieldsVisitor) VisitStepOver(p StepOverPricing) {
	v.out = PricingFields{Mode: ModeStepOver, BaseKg: &p.BaseKg, BaseAmount: &p.BaseAmount, RatePerKg: &p.RatePerKg}
}

func (v *fieldsVisitor) VisitManualQuote(ManualQuotePricing) {
	v.out = PricingFields{Mode: ModeManualQuote}
}

// FieldsOf flattens p. A nil variant yields the zero value.
func FieldsOf(p Pricing) PricingFields {
	if p == nil {
		return PricingFields{}
	}
	v := &fieldsVisitor{}
	p.Accept(v)
	return v.out
}

// Bracket maps to the `zone_brackets` table: the price of one (zone, segment) pair.
// The segment is identified by its weight range, not by a template item row.
type Bracket struct {
	ID      int64
	ZoneID  int64
	Range   WeightRange
	Pricing Pricing
}

type bracketJSON struct {
	ID     int64            `json:"id"`
	ZoneID int64            `json:"zone_id"`
	MinKg  decimal.Decimal  `json:"min_kg"`
	MaxKg  *decimal.Decimal `json:"max_kg"`
	PricingFields
}

func (b Bracket) MarshalJSON() ([]byte, error) {
	return json.Marshal(bracketJSON{
		ID:            b.ID,
		ZoneID:        b.ZoneID,
		MinKg:         b.Range.MinKg,
		MaxKg:         b.Range.MaxKg,
		PricingFields: FieldsOf(b.Pricing),
	})
}

func (b *Bracket) UnmarshalJSON(data []byte) error {
	var raw bracketJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p, err := raw.PricingFields.Pricing()
	if err != nil {
		return err
	}
	*b = Bracket{
		ID:      raw.ID,
		ZoneID:  raw.ZoneID,
		Range:   WeightRange{MinKg: raw.MinKg, MaxKg: raw.MaxKg},
		Pricing: p,
	}
	return nil
}
