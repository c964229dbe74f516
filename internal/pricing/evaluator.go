package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/pkg/region"
)

// ─── Destination adjustments ────────────────────────────────

// EvaluateDestAdjustments returns at most one adjustment for the destination.
//
// Precedence: a matching city-scoped row beats every matching province-scoped
// row; the losers are listed as superseded. Duplicate rows at the same scope
// resolve to the lowest id. Inactive rows are ignored.
func EvaluateDestAdjustments(adjs []model.DestAdjustment, dest model.Destination) []model.DestAdjustmentLine {
	var cityHits, provinceHits []model.DestAdjustment
	for _, a := range adjs {
		if !a.Active || !region.Equal(a.Province, dest.Province) {
			continue
		}
		switch a.Scope {
		case model.ScopeCity:
			if region.Equal(a.City, dest.City) {
				cityHits = append(cityHits, a)
			}
		case model.ScopeProvince:
			provinceHits = append(provinceHits, a)
		}
	}

	byID := func(s []model.DestAdjustment) {
		sort.Slice(s, func(i, j int) bool { return s[i].ID < s[j].ID })
	}
	byID(cityHits)
	byID(provinceHits)

	ordered := append(cityHits, provinceHits...)
	if len(ordered) == 0 {
		return []model.DestAdjustmentLine{}
	}

	winner := ordered[0]
	line := model.DestAdjustmentLine{
		ID:       winner.ID,
		Scope:    winner.Scope,
		Province: winner.Province,
		City:     winner.City,
		Amount:   winner.Amount,
	}
	for _, loser := range ordered[1:] {
		line.SupersededIDs = append(line.SupersededIDs, loser.ID)
	}
	return []model.DestAdjustmentLine{line}
}

// ─── Surcharges ─────────────────────────────────────────────

// EvaluateSurcharges returns every applicable surcharge with its justification,
// plus human-readable reasons for rules that matched but could not be priced.
//
// A rule applies when:
//   - it is active, and
//   - its destination predicate is empty or any listed value matches, and
//   - it declares no flags, or at least one shipment flag is among them.
func EvaluateSurcharges(
	rules []model.Surcharge,
	dest model.Destination,
	flags []string,
	weight decimal.Decimal,
) ([]model.SurchargeLine, []string) {
	sorted := make([]model.Surcharge, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	lines := []model.SurchargeLine{}
	var reasons []string
	for _, s := range sorted {
		if !s.Active {
			continue
		}
		matchedOn, ok := matchCondition(s.Condition, dest, flags)
		if !ok {
			continue
		}

		amount, formula, err := surchargeAmount(s.Detail, weight)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("surcharge %d (%s) skipped: %v", s.ID, s.Name, err))
			continue
		}

		lines = append(lines, model.SurchargeLine{
			ID:        s.ID,
			Name:      s.Name,
			Condition: s.Condition,
			Detail:    s.Detail,
			MatchedOn: matchedOn,
			Amount:    amount,
			Formula:   formula,
		})
	}
	return lines, reasons
}

// matchCondition evaluates a condition and records which facts satisfied it.
func matchCondition(c model.SurchargeCondition, dest model.Destination, flags []string) ([]string, bool) {
	matchedOn := []string{}

	if c.Dest != nil && !c.Dest.Empty() {
		destOK := false
		if region.ContainsValue(c.Dest.Province, dest.Province) {
			matchedOn = append(matchedOn, "province="+dest.Province)
			destOK = true
		}
		if region.ContainsValue(c.Dest.City, dest.City) {
			matchedOn = append(matchedOn, "city="+dest.City)
			destOK = true
		}
		if region.ContainsValue(c.Dest.District, dest.District) {
			matchedOn = append(matchedOn, "district="+dest.District)
			destOK = true
		}
		if !destOK {
			return nil, false
		}
	} else {
		matchedOn = append(matchedOn, "dest=*")
	}

	if len(c.FlagAny) > 0 {
		flagOK := false
		for _, f := range flags {
			if region.ContainsValue(c.FlagAny, f) {
				matchedOn = append(matchedOn, "flag="+f)
				flagOK = true
			}
		}
		if !flagOK {
			return nil, false
		}
	}

	return matchedOn, true
}

// surchargeAmount computes one rule's unrounded amount.
func surchargeAmount(d model.SurchargeDetail, weight decimal.Decimal) (decimal.Decimal, string, error) {
	if err := d.Validate(); err != nil {
		return decimal.Zero, "", err
	}

	switch d.Kind {
	case model.SurchargeFlat:
		return *d.Amount, fmt.Sprintf("flat %s", d.Amount), nil
	case model.SurchargePerKg:
		amount := d.RatePerKg.Mul(weight)
		return amount, fmt.Sprintf("%s × %s kg = %s", d.RatePerKg, weight, amount), nil
	case model.SurchargeTable:
		lower := decimal.Zero
		for _, tier := range d.Tiers {
			if tier.MaxKg == nil {
				return tier.Amount, fmt.Sprintf("tier [%s, ∞) → %s", lower, tier.Amount), nil
			}
			if weight.LessThan(*tier.MaxKg) {
				return tier.Amount, fmt.Sprintf("tier [%s, %s) → %s", lower, tier.MaxKg, tier.Amount), nil
			}
			lower = *tier.MaxKg
		}
		return decimal.Zero, "", fmt.Errorf("no tier covers %s kg", weight)
	}
	return decimal.Zero, "", fmt.Errorf("%w: unknown kind %q", model.ErrInvalidSurcharge, d.Kind)
}
