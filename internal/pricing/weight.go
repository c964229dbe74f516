package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/shiva/shipquote/internal/model"
)

// ─── Money ──────────────────────────────────────────────────

// RoundMoney rounds half away from zero to two places. It is the single
// rounding step shared by the summary figures and the quote total; the
// result renders as "20.00" both in logs and on the wire.
func RoundMoney(d decimal.Decimal) model.Money {
	return model.NewMoney(d)
}

// ─── Chargeable weight ──────────────────────────────────────

// ChargeableWeight derives the billable weight from the request:
//
//	billable = max(real, l × w × h / divisor)   when all three dimensions are > 0
//	billable = real                             otherwise
//
// then optionally snaps up to the scheme's rounding step. A partial dimension
// triple is ignored entirely and reported in the returned reasons.
func ChargeableWeight(rule model.BillableWeightRule, req model.QuoteRequest) (model.WeightDerivation, []string) {
	divisor := rule.VolumetricDivisor
	if !divisor.IsPositive() {
		divisor = model.DefaultVolumetricDivisor
	}

	out := model.WeightDerivation{
		RealKg:            req.RealWeightKg,
		VolumetricDivisor: divisor,
		Rounding:          rule.Rounding,
		BillableKg:        req.RealWeightKg,
	}
	if out.Rounding.Mode == "" {
		out.Rounding.Mode = model.RoundingNone
	}

	var reasons []string
	switch supplied, complete := dimsState(req); {
	case complete:
		vol := req.LengthCm.Mul(*req.WidthCm).Mul(*req.HeightCm).Div(divisor)
		out.VolumetricKg = &vol
		out.DimsApplied = true
		if vol.GreaterThan(out.BillableKg) {
			out.BillableKg = vol
		}
	case supplied > 0:
		reasons = append(reasons, "dimensions incomplete or non-positive; volumetric weight ignored")
	}

	if out.Rounding.Mode == model.RoundingCeil && out.Rounding.StepKg.IsPositive() {
		step := out.Rounding.StepKg
		out.BillableKg = out.BillableKg.Div(step).Ceil().Mul(step)
	}

	return out, reasons
}

// dimsState reports how many dimensions were supplied and whether the triple
// is complete (all three present and positive).
func dimsState(req model.QuoteRequest) (supplied int, complete bool) {
	positive := 0
	for _, d := range []*decimal.Decimal{req.LengthCm, req.WidthCm, req.HeightCm} {
		if d == nil {
			continue
		}
		supplied++
		if d.IsPositive() {
			positive++
		}
	}
	return supplied, positive == 3
}
