package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shiva/shipquote/internal/model"
)

// CalculateBase prices a bracket for the chargeable weight.
//
//	flat          amount = flat_amount
//	linear_total  amount = base_amount + rate_per_kg × w
//	step_over     amount = base_amount + rate_per_kg × max(0, w − base_kg)
//	manual_quote  no amount
//
// The returned amount is exact and unrounded.
func CalculateBase(b model.Bracket, weight decimal.Decimal) model.BaseBreakdown {
	v := &rateVisitor{weight: weight}
	if b.Pricing == nil {
		v.VisitManualQuote(model.ManualQuotePricing{})
		v.out.Message = "bracket has no pricing; manual quote required"
		return v.out
	}
	b.Pricing.Accept(v)
	return v.out
}

// rateVisitor implements model.PricingVisitor.
type rateVisitor struct {
	weight decimal.Decimal
	out    model.BaseBreakdown
}

func (v *rateVisitor) VisitFlat(p model.FlatPricing) {
	amount := p.Amount
	v.out = model.BaseBreakdown{
		Kind:             model.ModeFlat,
		Amount:           &amount,
		BillableWeightKg: v.weight,
		FlatAmount:       &p.Amount,
		Formula:          fmt.Sprintf("flat %s", p.Amount),
	}
}

func (v *rateVisitor) VisitLinearTotal(p model.LinearTotalPricing) {
	amount := p.BaseAmount.Add(p.RatePerKg.Mul(v.weight))
	v.out = model.BaseBreakdown{
		Kind:             model.ModeLinearTotal,
		Amount:           &amount,
		BillableWeightKg: v.weight,
		BaseAmount:       &p.BaseAmount,
		RatePerKg:        &p.RatePerKg,
		Formula:          fmt.Sprintf("%s + %s × %s kg = %s", p.BaseAmount, p.RatePerKg, v.weight, amount),
	}
}

func (v *rateVisitor) VisitStepOver(p model.StepOverPricing) {
	over := v.weight.Sub(p.BaseKg)
	if over.IsNegative() {
		over = decimal.Zero
	}
	amount := p.BaseAmount.Add(p.RatePerKg.Mul(over))
	v.out = model.BaseBreakdown{
		Kind:             model.ModeStepOver,
		Amount:           &amount,
		BillableWeightKg: v.weight,
		BaseAmount:       &p.BaseAmount,
		RatePerKg:        &p.RatePerKg,
		BaseKg:           &p.BaseKg,
		Formula: fmt.Sprintf("%s (first %s kg) + %s × %s kg over = %s",
			p.BaseAmount, p.BaseKg, p.RatePerKg, over, amount),
	}
}

func (v *rateVisitor) VisitManualQuote(model.ManualQuotePricing) {
	v.out = model.BaseBreakdown{
		Kind:             model.ModeManualQuote,
		BillableWeightKg: v.weight,
		Formula:          "manual quote",
		Message:          "manual quote required",
	}
}
