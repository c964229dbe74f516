// Package repository provides persistence for pricing configuration.
//
// Two stores implement Store: MemoryStore for single-process deployments and
// tests, and PostgresStore backed by pgxpool. Services never hold a connection
// themselves; they run closures through View (consistent read) or InTx
// (read-modify-write, all or nothing).
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shiva/shipquote/internal/model"
)

var (
	// ErrNotFound is returned when a row addressed by id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write would violate a uniqueness rule.
	ErrConflict = errors.New("conflicts with an existing row")

	// errReadOnly guards against writes issued from inside View.
	errReadOnly = errors.New("write attempted in a read-only view")
)

// Querier is every read and write the services issue. Implementations are
// scoped to either a read view or a transaction.
type Querier interface {
	// ─── Schemes ────────────────────────────────────────
	CreateScheme(ctx context.Context, s *model.PricingScheme) error
	GetScheme(ctx context.Context, id int64) (*model.PricingScheme, error)
	ListSchemes(ctx context.Context) ([]model.PricingScheme, error)
	UpdateScheme(ctx context.Context, s *model.PricingScheme) error
	// LockScheme holds the scheme row until the transaction ends, serializing
	// creates of templates, zones and surcharges under it.
	LockScheme(ctx context.Context, id int64) error

	// ─── Segment templates ──────────────────────────────

	// GetTemplate reads one template with its items. With forUpdate the row
	// stays locked until the surrounding transaction ends.
	GetTemplate(ctx context.Context, id int64, forUpdate bool) (*model.SegmentTemplate, error)
	CreateTemplate(ctx context.Context, t *model.SegmentTemplate) error
	ListTemplates(ctx context.Context, schemeID int64) ([]model.SegmentTemplate, error)
	// UpdateTemplate writes name and status. Items go through ReplaceTemplateItems.
	UpdateTemplate(ctx context.Context, t *model.SegmentTemplate) error
	ReplaceTemplateItems(ctx context.Context, templateID int64, items []model.SegmentTemplateItem) error
	// CountZoneReferences counts zones in any scheme bound to the template.
	CountZoneReferences(ctx context.Context, templateID int64) (int, error)

	// ─── Zones ──────────────────────────────────────────
	CreateZone(ctx context.Context, z *model.Zone) error
	GetZone(ctx context.Context, id int64, forUpdate bool) (*model.Zone, error)
	ListZones(ctx context.Context, schemeID int64) ([]model.Zone, error)
	// UpdateZone writes name, priority, active and the template binding.
	UpdateZone(ctx context.Context, z *model.Zone) error
	ReplaceZoneMembers(ctx context.Context, zoneID int64, members []model.ZoneMember) error
	// DeleteZone removes the zone together with its members and brackets.
	DeleteZone(ctx context.Context, id int64) error

	// ─── Brackets ───────────────────────────────────────
	ListBrackets(ctx context.Context, zoneID int64) ([]model.Bracket, error)
	ListSchemeBrackets(ctx context.Context, schemeID int64) ([]model.Bracket, error)
	// UpsertBracket inserts or overwrites the bracket identified by
	// (zone_id, min_kg, max_kg) and sets b.ID.
	UpsertBracket(ctx context.Context, b *model.Bracket) error
	DeleteBracket(ctx context.Context, id int64) error

	// ─── Surcharges ─────────────────────────────────────
	CreateSurcharge(ctx context.Context, s *model.Surcharge) error
	GetSurcharge(ctx context.Context, id int64) (*model.Surcharge, error)
	ListSurcharges(ctx context.Context, schemeID int64) ([]model.Surcharge, error)
	UpdateSurcharge(ctx context.Context, s *model.Surcharge) error
	DeleteSurcharge(ctx context.Context, id int64) error

	// ─── Destination adjustments ────────────────────────
	ListDestAdjustments(ctx context.Context, schemeID int64) ([]model.DestAdjustment, error)
	// UpsertDestAdjustment inserts or overwrites the row identified by
	// (scheme_id, scope, province, city) and sets a.ID.
	UpsertDestAdjustment(ctx context.Context, a *model.DestAdjustment) error
	DeleteDestAdjustment(ctx context.Context, id int64) error
}

// Store hands out scoped queriers.
type Store interface {
	// View runs fn against a consistent read-only view.
	View(ctx context.Context, fn func(q Querier) error) error
	// InTx runs fn in a transaction, committed only when fn returns nil.
	InTx(ctx context.Context, fn func(q Querier) error) error
	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
}

// LoadSnapshot reads everything a quote against schemeID needs in one
// consistent view.
func LoadSnapshot(ctx context.Context, s Store, schemeID int64) (*model.SchemeSnapshot, error) {
	snap := &model.SchemeSnapshot{Templates: map[int64]model.SegmentTemplate{}}

	err := s.View(ctx, func(q Querier) error {
		scheme, err := q.GetScheme(ctx, schemeID)
		if err != nil {
			return err
		}
		snap.Scheme = *scheme

		if snap.Zones, err = q.ListZones(ctx, schemeID); err != nil {
			return err
		}
		if snap.Brackets, err = q.ListSchemeBrackets(ctx, schemeID); err != nil {
			return err
		}
		if snap.Surcharges, err = q.ListSurcharges(ctx, schemeID); err != nil {
			return err
		}
		if snap.DestAdjustments, err = q.ListDestAdjustments(ctx, schemeID); err != nil {
			return err
		}

		templates, err := q.ListTemplates(ctx, schemeID)
		if err != nil {
			return err
		}
		for _, t := range templates {
			snap.Templates[t.ID] = t
		}

		// Bindings are same-scheme, but rows written before that rule existed
		// may still point elsewhere.
		wanted := make([]int64, 0, len(snap.Zones)+1)
		for _, z := range snap.Zones {
			if z.SegmentTemplateID != nil {
				wanted = append(wanted, *z.SegmentTemplateID)
			}
		}
		if scheme.DefaultSegmentTemplateID != nil {
			wanted = append(wanted, *scheme.DefaultSegmentTemplateID)
		}
		for _, id := range wanted {
			if _, ok := snap.Templates[id]; ok {
				continue
			}
			t, err := q.GetTemplate(ctx, id, false)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			snap.Templates[id] = *t
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshot for scheme %d: %w", schemeID, err)
	}
	return snap, nil
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Store   = (*PostgresStore)(nil)
	_ Querier = (*memQuerier)(nil)
	_ Querier = (*pgQuerier)(nil)
)
