package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TemplateStatus is the lifecycle state of a segment template.
type TemplateStatus string

const (
	TemplateDraft     TemplateStatus = "draft"
	TemplatePublished TemplateStatus = "published"
	TemplateArchived  TemplateStatus = "archived"
)

// templateTransitions is the only place legal status changes are declared.
var templateTransitions = map[TemplateStatus][]TemplateStatus{
	TemplateDraft:     {TemplatePublished},
	TemplatePublished: {TemplateArchived},
	TemplateArchived:  {TemplatePublished},
}

// CanTransition reports whether from → to is a legal lifecycle step.
func CanTransition(from, to TemplateStatus) bool {
	for _, next := range templateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// WeightRange is a half-open interval [MinKg, MaxKg). A nil MaxKg is unbounded.
type WeightRange struct {
	MinKg decimal.Decimal  `json:"min_kg"`
	MaxKg *decimal.Decimal `json:"max_kg"`
}

// Contains reports whether w falls inside the range.
func (r WeightRange) Contains(w decimal.Decimal) bool {
	if w.LessThan(r.MinKg) {
		return false
	}
	return r.MaxKg == nil || w.LessThan(*r.MaxKg)
}

// Equal compares ranges by value, which is how brackets find their segment.
func (r WeightRange) Equal(o WeightRange) bool {
	if !r.MinKg.Equal(o.MinKg) {
		return false
	}
	if r.MaxKg == nil || o.MaxKg == nil {
		return r.MaxKg == nil && o.MaxKg == nil
	}
	return r.MaxKg.Equal(*o.MaxKg)
}

func (r WeightRange) String() string {
	if r.MaxKg == nil {
		return fmt.Sprintf("[%s, ∞)", r.MinKg.String())
	}
	return fmt.Sprintf("[%s, %s)", r.MinKg.String(), r.MaxKg.String())
}

// SegmentTemplateItem is one weight segment of a template.
type SegmentTemplateItem struct {
	Ord    int              `json:"ord"`
	MinKg  decimal.Decimal  `json:"min_kg"`
	MaxKg  *decimal.Decimal `json:"max_kg"`
	Active bool             `json:"active"`
}

// Range returns the item's weight interval.
func (it SegmentTemplateItem) Range() WeightRange {
	return WeightRange{MinKg: it.MinKg, MaxKg: it.MaxKg}
}

// SegmentTemplate maps to the `segment_templates` table plus its items.
type SegmentTemplate struct {
	ID        int64                 `json:"id"`
	SchemeID  int64                 `json:"scheme_id"`
	Name      string                `json:"name"`
	Status    TemplateStatus        `json:"status"`
	Items     []SegmentTemplateItem `json:"items"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// TemplateView is a template enriched with its derived reference state.
type TemplateView struct {
	SegmentTemplate
	ReferenceCount int  `json:"reference_count"`
	InUse          bool `json:"in_use"`
	Locked         bool `json:"locked"`
}

// NewTemplateView derives in_use and locked from a freshly counted reference total.
func NewTemplateView(t SegmentTemplate, refs int) TemplateView {
	return TemplateView{
		SegmentTemplate: t,
		ReferenceCount:  refs,
		InUse:           refs > 0,
		Locked:          t.Status == TemplatePublished && refs > 0,
	}
}
