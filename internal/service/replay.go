package service

import (
	"bytes"
	"encoding/json"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/pkg/region"
)

// Creates are idempotent on retry: when a row already looks exactly like the
// one a create would write, the create returns it instead of adding a twin.
// The helpers below decide "exactly like" per resource.

// sameDraft reports whether t is a draft a CreateDraft(name, items) would
// produce. items must already be sorted.
func sameDraft(t model.SegmentTemplate, name string, items []model.SegmentTemplateItem) bool {
	if t.Status != model.TemplateDraft || t.Name != name || len(t.Items) != len(items) {
		return false
	}
	for i, it := range items {
		got := t.Items[i]
		if got.Ord != it.Ord || got.Active != it.Active || !got.Range().Equal(it.Range()) {
			return false
		}
	}
	return true
}

// sameZone compares the fields a create sets. Members are compared as a set
// of normalized values; the template binding is not part of the input.
func sameZone(z, want model.Zone) bool {
	if z.Name != want.Name || z.Priority != want.Priority || z.Active != want.Active {
		return false
	}
	if len(z.Members) != len(want.Members) {
		return false
	}
	have := make(map[string]bool, len(z.Members))
	for _, m := range z.Members {
		have[memberKey(m)] = true
	}
	for _, m := range want.Members {
		if !have[memberKey(m)] {
			return false
		}
	}
	return true
}

func memberKey(m model.ZoneMember) string {
	return string(m.Level) + "\x00" + region.Normalize(m.Value)
}

// sameSurcharge compares name, flag and the rule bodies by their encoding.
func sameSurcharge(s, want model.Surcharge) bool {
	if s.Name != want.Name || s.Active != want.Active {
		return false
	}
	return sameJSON(s.Condition, want.Condition) && sameJSON(s.Detail, want.Detail)
}

func sameJSON(a, b any) bool {
	x, err := json.Marshal(a)
	if err != nil {
		return false
	}
	y, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(x, y)
}
