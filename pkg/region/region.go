// Package region provides administrative-address utilities for zone matching.
//
// Values are compared after Unicode NFKC normalization, case folding and
// whitespace collapsing, so "广东省", " 广东省 " and full-width variants of
// Latin names all compare equal.
package region

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/shiva/shipquote/internal/model"
)

// ─── Normalization ──────────────────────────────────────────

// Normalize returns the canonical comparison form of an address value.
//
// Complexity: O(len(s))
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	// Casers keep internal state, so one is built per call.
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Equal reports whether two non-empty values are the same after normalization.
func Equal(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// ContainsValue reports whether any entry of values equals v.
func ContainsValue(values []string, v string) bool {
	nv := Normalize(v)
	if nv == "" {
		return false
	}
	for _, candidate := range values {
		if Normalize(candidate) == nv {
			return true
		}
	}
	return false
}

// ─── Destination fields ─────────────────────────────────────

// Field returns the destination value for an administrative level.
func Field(dest model.Destination, level model.MemberLevel) string {
	switch level {
	case model.LevelProvince:
		return dest.Province
	case model.LevelCity:
		return dest.City
	case model.LevelDistrict:
		return dest.District
	default:
		return ""
	}
}

// MatchMember reports whether a zone member matches the destination.
func MatchMember(dest model.Destination, m model.ZoneMember) bool {
	return Equal(m.Value, Field(dest, m.Level))
}

// MatchedMembers returns the members of a zone that match the destination.
//
// Complexity: O(M) where M = number of members.
func MatchedMembers(dest model.Destination, members []model.ZoneMember) []model.ZoneMember {
	var out []model.ZoneMember
	for _, m := range members {
		if MatchMember(dest, m) {
			out = append(out, m)
		}
	}
	return out
}
