// Package model contains domain models for the shipping-cost pricing engine.
// These structs map to the PostgreSQL schema in pkg/db/schema.sql.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Enums ──────────────────────────────────────────────────

type MemberLevel string

const (
	LevelProvince MemberLevel = "province"
	LevelCity     MemberLevel = "city"
	LevelDistrict MemberLevel = "district"
)

// Valid reports whether l is a known administrative level.
func (l MemberLevel) Valid() bool {
	switch l {
	case LevelProvince, LevelCity, LevelDistrict:
		return true
	}
	return false
}

type AdjustmentScope string

const (
	ScopeProvince AdjustmentScope = "province"
	ScopeCity     AdjustmentScope = "city"
)

type RoundingMode string

const (
	RoundingNone RoundingMode = "none"
	RoundingCeil RoundingMode = "ceil"
)

// DefaultVolumetricDivisor converts cm³ into volumetric kilograms.
var DefaultVolumetricDivisor = decimal.NewFromInt(8000)

// ─── Scheme ─────────────────────────────────────────────────

// WeightRounding optionally snaps the billable weight up to a step.
type WeightRounding struct {
	Mode   RoundingMode    `json:"mode"`
	StepKg decimal.Decimal `json:"step_kg"`
}

// BillableWeightRule controls how the chargeable weight is derived.
type BillableWeightRule struct {
	VolumetricDivisor decimal.Decimal `json:"volumetric_divisor"`
	Rounding          WeightRounding  `json:"rounding"`
}

// DefaultBillableWeightRule is max(real, l×w×h/8000) with no step rounding.
func DefaultBillableWeightRule() BillableWeightRule {
	return BillableWeightRule{
		VolumetricDivisor: DefaultVolumetricDivisor,
		Rounding:          WeightRounding{Mode: RoundingNone, StepKg: decimal.Zero},
	}
}

// PricingScheme maps to the `pricing_schemes` table.
type PricingScheme struct {
	ID                       int64              `json:"id"`
	Name                     string             `json:"name"`
	Currency                 string             `json:"currency"`
	Priority                 int                `json:"priority"`
	Active                   bool               `json:"active"`
	DefaultSegmentTemplateID *int64             `json:"default_segment_template_id"`
	BillableWeight           BillableWeightRule `json:"billable_weight"`
	CreatedAt                time.Time          `json:"created_at"`
	UpdatedAt                time.Time          `json:"updated_at"`
}

// ─── Zone ───────────────────────────────────────────────────

// ZoneMember tags a zone with one administrative value.
type ZoneMember struct {
	Level MemberLevel `json:"level"`
	Value string      `json:"value"`
}

// Zone maps to the `pricing_zones` table plus its members.
//
// Active is echoed to consumers but does not take part in matching.
type Zone struct {
	ID                int64        `json:"id"`
	SchemeID          int64        `json:"scheme_id"`
	Name              string       `json:"name"`
	Priority          int          `json:"priority"`
	Active            bool         `json:"active"`
	SegmentTemplateID *int64       `json:"segment_template_id"`
	Members           []ZoneMember `json:"members"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// ─── Destination adjustment ─────────────────────────────────

// DestAdjustment maps to the `dest_adjustments` table.
type DestAdjustment struct {
	ID       int64           `json:"id"`
	SchemeID int64           `json:"scheme_id"`
	Scope    AdjustmentScope `json:"scope"`
	Province string          `json:"province"`
	City     string          `json:"city,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Active   bool            `json:"active"`
}

// ─── Snapshot ───────────────────────────────────────────────

// SchemeSnapshot is a consistent read of everything a quote needs.
// Templates holds every template a zone or the scheme default points at.
type SchemeSnapshot struct {
	Scheme          PricingScheme
	Templates       map[int64]SegmentTemplate
	Zones           []Zone
	Brackets        []Bracket
	Surcharges      []Surcharge
	DestAdjustments []DestAdjustment
}
