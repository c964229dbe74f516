// Package service holds the pricing engine's use cases: the template lifecycle
// guard, configuration of schemes and their rules, and quoting.
package service

import (
	"errors"
	"fmt"
)

// ─── Lifecycle Errors ───────────────────────────────────────

var (
	// ErrStructureLocked is returned when items of a template bound by at
	// least one zone are edited.
	ErrStructureLocked = errors.New("segment template structure is locked: it is referenced by a zone")

	// ErrNotDraft is returned when publishing a template that is not a draft.
	ErrNotDraft = errors.New("segment template is not a draft")

	// ErrNotPublished is returned when archiving a template that was never published.
	ErrNotPublished = errors.New("segment template is not published")

	// ErrNotArchived is returned when unarchiving a template that is not archived.
	ErrNotArchived = errors.New("segment template is not archived")

	// ErrTemplateArchived is returned when an archived template is edited.
	ErrTemplateArchived = errors.New("segment template is archived")

	// ErrTemplateNotBindable is returned when a zone or scheme default is
	// pointed at a template that is unpublished or belongs to another scheme.
	ErrTemplateNotBindable = errors.New("segment template cannot be bound")

	// ErrReferenced is the sentinel matched by every *ReferencedError.
	ErrReferenced = errors.New("segment template is referenced by zones")

	// ErrLockTimeout is returned when the per-template lock is not acquired in time.
	ErrLockTimeout = errors.New("timed out waiting for segment template lock")
)

// ReferencedError reports how many zones block an archive.
type ReferencedError struct {
	TemplateID int64
	Count      int
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("segment template %d is referenced by %d zone(s)", e.TemplateID, e.Count)
}

// Is lets errors.Is(err, ErrReferenced) match.
func (e *ReferencedError) Is(target error) bool { return target == ErrReferenced }

// ─── Configuration Errors ───────────────────────────────────

var (
	// ErrValidation is wrapped by every rejected configuration input.
	ErrValidation = errors.New("invalid input")

	// ErrBracketRangeUnknown is returned when a bracket's range is not one of
	// the segments of its zone's effective template.
	ErrBracketRangeUnknown = errors.New("bracket range does not match any segment of the zone's template")

	// ErrBatchTooLarge is returned when a quote batch exceeds the configured limit.
	ErrBatchTooLarge = errors.New("too many quote requests in one batch")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
