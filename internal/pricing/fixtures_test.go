package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/shiva/shipquote/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func idPtr(id int64) *int64 { return &id }

// items builds a partition from its interior boundaries: items("1", "2")
// yields [0,1), [1,2), [2,∞).
func items(bounds ...string) []model.SegmentTemplateItem {
	out := make([]model.SegmentTemplateItem, 0, len(bounds)+1)
	lower := "0"
	for i, b := range bounds {
		out = append(out, model.SegmentTemplateItem{Ord: i + 1, MinKg: dec(lower), MaxKg: decPtr(b), Active: true})
		lower = b
	}
	out = append(out, model.SegmentTemplateItem{Ord: len(bounds) + 1, MinKg: dec(lower), Active: true})
	return out
}

func rng(min string, max *decimal.Decimal) model.WeightRange {
	return model.WeightRange{MinKg: dec(min), MaxKg: max}
}

// guangdongSnapshot is one zone (广东省, priority 0) bound to a
// [0,1) [1,2) [2,∞) template, with [1,2) priced flat 20.
func guangdongSnapshot() *model.SchemeSnapshot {
	tpl := model.SegmentTemplate{
		ID:       10,
		SchemeID: 1,
		Name:     "standard",
		Status:   model.TemplatePublished,
		Items:    items("1", "2"),
	}
	return &model.SchemeSnapshot{
		Scheme: model.PricingScheme{
			ID:             1,
			Name:           "express",
			Currency:       "CNY",
			Active:         true,
			BillableWeight: model.DefaultBillableWeightRule(),
		},
		Templates: map[int64]model.SegmentTemplate{tpl.ID: tpl},
		Zones: []model.Zone{{
			ID:                100,
			SchemeID:          1,
			Name:              "华南",
			Priority:          0,
			Active:            true,
			SegmentTemplateID: idPtr(tpl.ID),
			Members:           []model.ZoneMember{{Level: model.LevelProvince, Value: "广东省"}},
		}},
		Brackets: []model.Bracket{{
			ID:      1000,
			ZoneID:  100,
			Range:   rng("1", decPtr("2")),
			Pricing: model.FlatPricing{Amount: dec("20")},
		}},
	}
}
