package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidSurcharge is returned when a surcharge detail cannot be evaluated.
var ErrInvalidSurcharge = errors.New("invalid surcharge")

type SurchargeKind string

const (
	SurchargeFlat  SurchargeKind = "flat"
	SurchargePerKg SurchargeKind = "per_kg"
	SurchargeTable SurchargeKind = "table"
)

// DestPredicate matches when any listed value equals the destination field.
type DestPredicate struct {
	Province []string `json:"province,omitempty"`
	City     []string `json:"city,omitempty"`
	District []string `json:"district,omitempty"`
}

// Empty reports whether the predicate lists nothing (matches every destination).
func (p DestPredicate) Empty() bool {
	return len(p.Province) == 0 && len(p.City) == 0 && len(p.District) == 0
}

// SurchargeCondition gates a surcharge. Both parts must hold when present.
type SurchargeCondition struct {
	Dest    *DestPredicate `json:"dest,omitempty"`
	FlagAny []string       `json:"flag_any,omitempty"`
}

// SurchargeTier is one step of a weight table. Tiers are read as
// [previous max, MaxKg); a nil MaxKg closes the table.
type SurchargeTier struct {
	MaxKg  *decimal.Decimal `json:"max_kg"`
	Amount decimal.Decimal  `json:"amount"`
}

// SurchargeDetail describes how a surcharge amount is computed.
type SurchargeDetail struct {
	Kind      SurchargeKind    `json:"kind"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	RatePerKg *decimal.Decimal `json:"rate_per_kg,omitempty"`
	Tiers     []SurchargeTier  `json:"tiers,omitempty"`
}

// Validate checks the detail has the parameters its kind needs.
func (d SurchargeDetail) Validate() error {
	switch d.Kind {
	case SurchargeFlat:
		if d.Amount == nil || d.Amount.IsNegative() {
			return fmt.Errorf("%w: flat requires a non-negative amount", ErrInvalidSurcharge)
		}
	case SurchargePerKg:
		if d.RatePerKg == nil || d.RatePerKg.IsNegative() {
			return fmt.Errorf("%w: per_kg requires a non-negative rate_per_kg", ErrInvalidSurcharge)
		}
	case SurchargeTable:
		if len(d.Tiers) == 0 {
			return fmt.Errorf("%w: table requires at least one tier", ErrInvalidSurcharge)
		}
		prev := decimal.Zero
		for i, tier := range d.Tiers {
			if tier.Amount.IsNegative() {
				return fmt.Errorf("%w: tier %d amount must not be negative", ErrInvalidSurcharge, i+1)
			}
			if tier.MaxKg == nil {
				if i != len(d.Tiers)-1 {
					return fmt.Errorf("%w: only the last tier may be unbounded", ErrInvalidSurcharge)
				}
				continue
			}
			if !tier.MaxKg.GreaterThan(prev) {
				return fmt.Errorf("%w: tier %d max_kg must exceed %s", ErrInvalidSurcharge, i+1, prev)
			}
			prev = *tier.MaxKg
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSurcharge, d.Kind)
	}
	return nil
}

// Surcharge maps to the `surcharges` table.
type Surcharge struct {
	ID        int64              `json:"id"`
	SchemeID  int64              `json:"scheme_id"`
	Name      string             `json:"name"`
	Active    bool               `json:"active"`
	Condition SurchargeCondition `json:"condition"`
	Detail    SurchargeDetail    `json:"detail"`
}
