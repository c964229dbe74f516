// Package pricing is the stateless quote engine: it matches a destination to a
// zone and weight segment, prices the bracket, and adds destination adjustments
// and surcharges. Every function here is pure over a model.SchemeSnapshot and is
// safe to call from any number of goroutines.
package pricing

import "errors"

// ─── Errors ─────────────────────────────────────────────────

var (
	// ErrInvalidPartition is returned when segment items do not tile [0, ∞).
	ErrInvalidPartition = errors.New("segment items are not a contiguous partition of [0, ∞)")

	// ErrInvalidWeight is returned when the declared real weight is not positive.
	ErrInvalidWeight = errors.New("real weight must be greater than zero")

	// ErrNoZoneMatch is returned when no zone of the scheme covers the destination.
	ErrNoZoneMatch = errors.New("no zone matches the destination")

	// ErrNoTemplateBound is returned when the winning zone has no effective segment template.
	ErrNoTemplateBound = errors.New("no segment template bound to the matched zone")

	// ErrNoBracketMatch is returned when no usable template segment contains the weight.
	ErrNoBracketMatch = errors.New("no weight segment contains the chargeable weight")

	// ErrNoBracketConfigured is returned when the matched segment has no priced bracket.
	ErrNoBracketConfigured = errors.New("no bracket configured for the matched zone and segment")
)

// Reason returns the machine-readable code for a quote failure, or "" when err
// is not one.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNoZoneMatch):
		return "NO_ZONE_MATCH"
	case errors.Is(err, ErrNoTemplateBound):
		return "NO_TEMPLATE_BOUND"
	case errors.Is(err, ErrNoBracketMatch):
		return "NO_BRACKET_MATCH"
	case errors.Is(err, ErrNoBracketConfigured):
		return "NO_BRACKET_CONFIGURED"
	default:
		return ""
	}
}
