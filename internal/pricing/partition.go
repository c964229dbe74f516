package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/shiva/shipquote/internal/model"
)

// SortItems orders items by ord without touching the caller's slice.
func SortItems(items []model.SegmentTemplateItem) []model.SegmentTemplateItem {
	out := make([]model.SegmentTemplateItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ord < out[j].Ord })
	return out
}

// ValidatePartition checks that items, taken in ord order, tile [0, ∞):
//
//	items[0].min == 0
//	items[i].max == items[i+1].min
//	max > min for every bounded item
//	only the last item is unbounded
//
// Complexity: O(N log N) for the sort, O(N) for the scan.
func ValidatePartition(items []model.SegmentTemplateItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one segment is required", ErrInvalidPartition)
	}

	sorted := SortItems(items)
	seen := make(map[int]struct{}, len(sorted))
	for i, it := range sorted {
		if _, dup := seen[it.Ord]; dup {
			return fmt.Errorf("%w: duplicate ord %d", ErrInvalidPartition, it.Ord)
		}
		seen[it.Ord] = struct{}{}

		if i == 0 && !it.MinKg.IsZero() {
			return fmt.Errorf("%w: first segment must start at 0, got %s", ErrInvalidPartition, it.MinKg)
		}
		if i > 0 {
			prev := sorted[i-1]
			if prev.MaxKg == nil || !prev.MaxKg.Equal(it.MinKg) {
				return fmt.Errorf("%w: segment %d starts at %s but previous segment ends at %s",
					ErrInvalidPartition, it.Ord, it.MinKg, maxText(prev.MaxKg))
			}
		}

		last := i == len(sorted)-1
		if it.MaxKg == nil {
			if !last {
				return fmt.Errorf("%w: only the last segment may be unbounded (ord %d)", ErrInvalidPartition, it.Ord)
			}
			continue
		}
		if last {
			return fmt.Errorf("%w: last segment must be unbounded, got max %s", ErrInvalidPartition, it.MaxKg)
		}
		if !it.MaxKg.GreaterThan(it.MinKg) {
			return fmt.Errorf("%w: segment %d max %s must exceed min %s", ErrInvalidPartition, it.Ord, it.MaxKg, it.MinKg)
		}
	}
	return nil
}

func maxText(v *decimal.Decimal) string {
	if v == nil {
		return "∞"
	}
	return v.String()
}
