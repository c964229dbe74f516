package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/pkg/region"
)

const (
	TemplateSourceZone          = "zone"
	TemplateSourceSchemeDefault = "scheme_default"
)

// Hit is the matcher's answer: the winning zone, the segment the weight falls
// in, and the bracket priced for that (zone, segment) pair.
type Hit struct {
	Zone           model.Zone
	MatchedMembers []model.ZoneMember
	Candidates     []int64 // every matching zone id, winner first
	Template       model.SegmentTemplate
	TemplateSource string
	Item           model.SegmentTemplateItem
	Bracket        model.Bracket
}

// Match resolves zone → template → segment → bracket for a destination and a
// chargeable weight.
//
// Algorithm:
//  1. Every zone of the scheme with ≥1 member equal to the matching destination
//     field is a candidate. The zone's own active flag is not consulted.
//  2. The candidate with the lowest priority wins; ties go to the lowest id.
//  3. The effective template is the zone's own, else the scheme default.
//  4. The first item (in ord order) whose [min, max) contains the weight is the segment.
//  5. The bracket is the zone's row whose weight range equals that segment's.
//
// Each step that comes up empty fails with its own sentinel; nothing defaults.
//
// Complexity: O(Z × M + I + B) for Z zones, M members per zone, I items, B brackets.
func Match(snap *model.SchemeSnapshot, dest model.Destination, weight decimal.Decimal) (*Hit, error) {
	hit, err := SelectZone(snap.Zones, dest)
	if err != nil {
		return nil, err
	}

	// ── Effective template ──────────────────────────────
	templateID := hit.Zone.SegmentTemplateID
	hit.TemplateSource = TemplateSourceZone
	if templateID == nil {
		templateID = snap.Scheme.DefaultSegmentTemplateID
		hit.TemplateSource = TemplateSourceSchemeDefault
	}
	if templateID == nil {
		return nil, fmt.Errorf("%w: zone %d (%s) has no template and scheme %d has no default",
			ErrNoTemplateBound, hit.Zone.ID, hit.Zone.Name, snap.Scheme.ID)
	}
	tpl, ok := snap.Templates[*templateID]
	if !ok {
		return nil, fmt.Errorf("%w: template %d is not available", ErrNoTemplateBound, *templateID)
	}
	hit.Template = tpl

	// ── Segment ─────────────────────────────────────────
	item, err := SelectItem(tpl, weight)
	if err != nil {
		return nil, err
	}
	hit.Item = item

	// ── Bracket ─────────────────────────────────────────
	seg := item.Range()
	for _, b := range snap.Brackets {
		if b.ZoneID == hit.Zone.ID && b.Range.Equal(seg) {
			hit.Bracket = b
			return hit, nil
		}
	}
	return nil, fmt.Errorf("%w: zone %d segment %s", ErrNoBracketConfigured, hit.Zone.ID, seg)
}

// SelectZone returns the winning zone for a destination, or ErrNoZoneMatch.
// The result is deterministic for a given zone set regardless of input order.
func SelectZone(zones []model.Zone, dest model.Destination) (*Hit, error) {
	type candidate struct {
		zone    model.Zone
		members []model.ZoneMember
	}

	var candidates []candidate
	for _, z := range zones {
		if matched := region.MatchedMembers(dest, z.Members); len(matched) > 0 {
			candidates = append(candidates, candidate{zone: z, members: matched})
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: province=%q city=%q district=%q",
			ErrNoZoneMatch, dest.Province, dest.City, dest.District)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].zone, candidates[j].zone
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})

	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.zone.ID
	}

	return &Hit{
		Zone:           candidates[0].zone,
		MatchedMembers: candidates[0].members,
		Candidates:     ids,
	}, nil
}

// SelectItem returns the first template item containing weight. A containing
// item that is switched off is a miss, not a fall-through to the next item.
func SelectItem(tpl model.SegmentTemplate, weight decimal.Decimal) (model.SegmentTemplateItem, error) {
	for _, it := range SortItems(tpl.Items) {
		if !it.Range().Contains(weight) {
			continue
		}
		if !it.Active {
			return model.SegmentTemplateItem{}, fmt.Errorf("%w: segment %s of template %d is disabled",
				ErrNoBracketMatch, it.Range(), tpl.ID)
		}
		return it, nil
	}
	return model.SegmentTemplateItem{}, fmt.Errorf("%w: %s kg in template %d", ErrNoBracketMatch, weight, tpl.ID)
}
