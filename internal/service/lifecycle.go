package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/internal/pricing"
	"github.com/shiva/shipquote/internal/repository"
)

// DefaultLockWait bounds how long a guard operation waits for its template lock.
const DefaultLockWait = 5 * time.Second

// ─── TemplateService ────────────────────────────────────────

// TemplateService is the lifecycle guard for segment templates.
//
// Every operation that reads a template and then writes based on what it read
// (status, reference count) runs as:
//
//	lock(template) → BEGIN → SELECT template FOR UPDATE → count refs → check → write → COMMIT → unlock
//
// The Locker serializes guard operations on one template across goroutines
// (and, with a Redis locker, across instances). The row lock covers writers
// that bypass the Locker.
//
// Legal status changes come from model.CanTransition; repeating a transition
// that already happened is a no-op success.
type TemplateService struct {
	store    repository.Store
	locker   Locker
	lockWait time.Duration
	log      *zap.Logger
}

// NewTemplateService creates a lifecycle guard. A zero lockWait means DefaultLockWait.
func NewTemplateService(store repository.Store, locker Locker, lockWait time.Duration, log *zap.Logger) *TemplateService {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TemplateService{
		store:    store,
		locker:   locker,
		lockWait: lockWait,
		log:      log.Named("lifecycle"),
	}
}

// withTemplateLock runs fn in a transaction while holding the template's lock.
func (s *TemplateService) withTemplateLock(ctx context.Context, templateID int64, fn func(q repository.Querier) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	unlock, err := s.locker.Lock(lockCtx, templateLockKey(templateID))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: template %d", ErrLockTimeout, templateID)
		}
		return fmt.Errorf("lock template %d: %w", templateID, err)
	}
	defer unlock()

	return s.store.InTx(ctx, fn)
}

// ─── Reads ──────────────────────────────────────────────────

// Get returns a template with its freshly counted reference state.
func (s *TemplateService) Get(ctx context.Context, id int64) (*model.TemplateView, error) {
	var view model.TemplateView
	err := s.store.View(ctx, func(q repository.Querier) error {
		t, err := q.GetTemplate(ctx, id, false)
		if err != nil {
			return err
		}
		refs, err := q.CountZoneReferences(ctx, id)
		if err != nil {
			return err
		}
		view = model.NewTemplateView(*t, refs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// List returns every template of a scheme, ordered by id.
func (s *TemplateService) List(ctx context.Context, schemeID int64) ([]model.TemplateView, error) {
	var views []model.TemplateView
	err := s.store.View(ctx, func(q repository.Querier) error {
		if _, err := q.GetScheme(ctx, schemeID); err != nil {
			return err
		}
		templates, err := q.ListTemplates(ctx, schemeID)
		if err != nil {
			return err
		}
		views = make([]model.TemplateView, 0, len(templates))
		for _, t := range templates {
			refs, err := q.CountZoneReferences(ctx, t.ID)
			if err != nil {
				return err
			}
			views = append(views, model.NewTemplateView(t, refs))
		}
		return nil
	})
	return views, err
}

// ─── Lifecycle operations ───────────────────────────────────

// CreateDraft creates a draft template. items may be empty; when given they
// must already form a valid partition. Retrying with the same name and items
// returns the draft the first call created.
func (s *TemplateService) CreateDraft(ctx context.Context, schemeID int64, name string, items []model.SegmentTemplateItem) (*model.TemplateView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("template name is required")
	}
	if len(items) > 0 {
		if err := pricing.ValidatePartition(items); err != nil {
			return nil, err
		}
		items = pricing.SortItems(items)
	}

	t := model.SegmentTemplate{
		SchemeID: schemeID,
		Name:     name,
		Status:   model.TemplateDraft,
		Items:    items,
	}
	replayed := false
	err := s.store.InTx(ctx, func(q repository.Querier) error {
		if err := q.LockScheme(ctx, schemeID); err != nil {
			return err
		}
		existing, err := q.ListTemplates(ctx, schemeID)
		if err != nil {
			return err
		}
		for _, cur := range existing {
			if sameDraft(cur, name, items) {
				t, replayed = cur, true
				return nil
			}
		}
		return q.CreateTemplate(ctx, &t)
	})
	if err != nil {
		return nil, err
	}
	if replayed {
		s.log.Debug("draft create replayed", zap.Int64("template_id", t.ID), zap.Int64("scheme_id", schemeID))
		view := model.NewTemplateView(t, 0)
		return &view, nil
	}

	s.log.Info("draft created",
		zap.Int64("template_id", t.ID), zap.Int64("scheme_id", schemeID), zap.Int("items", len(items)))
	view := model.NewTemplateView(t, 0)
	return &view, nil
}

// ReplaceItems swaps the template's segments for items.
//
// Checks, in order:
//  1. referenced by ≥1 zone (any status) → ErrStructureLocked
//  2. archived                           → ErrTemplateArchived
//  3. items not a partition of [0, ∞)    → pricing.ErrInvalidPartition
//
// Nothing is written unless every check passes.
func (s *TemplateService) ReplaceItems(ctx context.Context, id int64, items []model.SegmentTemplateItem) (*model.TemplateView, error) {
	var view model.TemplateView
	err := s.withTemplateLock(ctx, id, func(q repository.Querier) error {
		t, err := q.GetTemplate(ctx, id, true)
		if err != nil {
			return err
		}
		refs, err := q.CountZoneReferences(ctx, id)
		if err != nil {
			return err
		}

		switch {
		case refs > 0:
			return fmt.Errorf("%w: template %d has %d zone reference(s)", ErrStructureLocked, id, refs)
		case t.Status == model.TemplateArchived:
			return fmt.Errorf("%w: template %d", ErrTemplateArchived, id)
		}
		if err := pricing.ValidatePartition(items); err != nil {
			return err
		}

		t.Items = pricing.SortItems(items)
		if err := q.ReplaceTemplateItems(ctx, id, t.Items); err != nil {
			return err
		}
		view = model.NewTemplateView(*t, refs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("items replaced", zap.Int64("template_id", id), zap.Int("items", len(items)))
	return &view, nil
}

// Publish moves a draft to published. Its items must be a valid, non-empty
// partition. Publishing a published template is a no-op.
func (s *TemplateService) Publish(ctx context.Context, id int64) (*model.TemplateView, error) {
	return s.transition(ctx, id, model.TemplatePublished, func(t *model.SegmentTemplate, refs int) error {
		switch t.Status {
		case model.TemplateArchived:
			return fmt.Errorf("%w: template %d is archived", ErrNotDraft, id)
		case model.TemplateDraft:
			return pricing.ValidatePartition(t.Items)
		}
		return nil
	})
}

// Archive retires a published template that no zone references. Archiving an
// archived template is a no-op.
func (s *TemplateService) Archive(ctx context.Context, id int64) (*model.TemplateView, error) {
	return s.transition(ctx, id, model.TemplateArchived, func(t *model.SegmentTemplate, refs int) error {
		if refs > 0 {
			return &ReferencedError{TemplateID: id, Count: refs}
		}
		if t.Status == model.TemplateDraft {
			return fmt.Errorf("%w: template %d is a draft", ErrNotPublished, id)
		}
		return nil
	})
}

// Unarchive returns an archived template to published. Unarchiving a published
// template is a no-op.
func (s *TemplateService) Unarchive(ctx context.Context, id int64) (*model.TemplateView, error) {
	return s.transition(ctx, id, model.TemplatePublished, func(t *model.SegmentTemplate, refs int) error {
		if t.Status == model.TemplateDraft {
			return fmt.Errorf("%w: template %d is a draft", ErrNotArchived, id)
		}
		return nil
	})
}

// transition runs check under the guard and, when it passes, moves the
// template to target. A template already at target is returned unchanged.
func (s *TemplateService) transition(
	ctx context.Context,
	id int64,
	target model.TemplateStatus,
	check func(t *model.SegmentTemplate, refs int) error,
) (*model.TemplateView, error) {
	var (
		view    model.TemplateView
		changed bool
		from    model.TemplateStatus
	)
	err := s.withTemplateLock(ctx, id, func(q repository.Querier) error {
		t, err := q.GetTemplate(ctx, id, true)
		if err != nil {
			return err
		}
		refs, err := q.CountZoneReferences(ctx, id)
		if err != nil {
			return err
		}

		if t.Status == target {
			view = model.NewTemplateView(*t, refs)
			return nil
		}
		if err := check(t, refs); err != nil {
			return err
		}
		if !model.CanTransition(t.Status, target) {
			return fmt.Errorf("%w: %s → %s", ErrValidation, t.Status, target)
		}

		from = t.Status
		t.Status = target
		if err := q.UpdateTemplate(ctx, t); err != nil {
			return err
		}
		changed = true
		view = model.NewTemplateView(*t, refs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info("status changed",
			zap.Int64("template_id", id), zap.String("from", string(from)), zap.String("to", string(target)))
	}
	return &view, nil
}

// Rename changes a template's name. Allowed while locked; refused once archived.
func (s *TemplateService) Rename(ctx context.Context, id int64, name string) (*model.TemplateView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("template name is required")
	}

	var view model.TemplateView
	err := s.withTemplateLock(ctx, id, func(q repository.Querier) error {
		t, err := q.GetTemplate(ctx, id, true)
		if err != nil {
			return err
		}
		if t.Status == model.TemplateArchived {
			return fmt.Errorf("%w: template %d", ErrTemplateArchived, id)
		}
		refs, err := q.CountZoneReferences(ctx, id)
		if err != nil {
			return err
		}
		t.Name = name
		if err := q.UpdateTemplate(ctx, t); err != nil {
			return err
		}
		view = model.NewTemplateView(*t, refs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ─── Binding ("activate") ───────────────────────────────────

// BindZoneTemplate points a zone at a template, or clears the binding when
// templateID is nil. The template must be published and belong to the zone's
// scheme.
//
// Binding takes the template's guard lock, so it cannot interleave with an
// archive or item replacement of the same template: whichever commits first
// decides what the other observes.
func (s *TemplateService) BindZoneTemplate(ctx context.Context, zoneID int64, templateID *int64) (*model.Zone, error) {
	var zone *model.Zone
	bind := func(q repository.Querier) error {
		z, err := q.GetZone(ctx, zoneID, true)
		if err != nil {
			return err
		}
		if templateID != nil {
			if err := checkBindable(ctx, q, *templateID, z.SchemeID); err != nil {
				return err
			}
		}
		z.SegmentTemplateID = templateID
		if err := q.UpdateZone(ctx, z); err != nil {
			return err
		}
		zone = z
		return nil
	}

	var err error
	if templateID == nil {
		err = s.store.InTx(ctx, bind)
	} else {
		err = s.withTemplateLock(ctx, *templateID, bind)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("zone template bound", zap.Int64("zone_id", zoneID), zap.Int64p("template_id", templateID))
	return zone, nil
}

// SetSchemeDefaultTemplate sets or clears the template used by zones of the
// scheme that have none of their own. Same bindability rules as zones.
func (s *TemplateService) SetSchemeDefaultTemplate(ctx context.Context, schemeID int64, templateID *int64) (*model.PricingScheme, error) {
	var scheme *model.PricingScheme
	bind := func(q repository.Querier) error {
		sc, err := q.GetScheme(ctx, schemeID)
		if err != nil {
			return err
		}
		if templateID != nil {
			if err := checkBindable(ctx, q, *templateID, schemeID); err != nil {
				return err
			}
		}
		sc.DefaultSegmentTemplateID = templateID
		if err := q.UpdateScheme(ctx, sc); err != nil {
			return err
		}
		scheme = sc
		return nil
	}

	var err error
	if templateID == nil {
		err = s.store.InTx(ctx, bind)
	} else {
		err = s.withTemplateLock(ctx, *templateID, bind)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("scheme default template set", zap.Int64("scheme_id", schemeID), zap.Int64p("template_id", templateID))
	return scheme, nil
}

// checkBindable locks the template row and verifies it may be bound within schemeID.
func checkBindable(ctx context.Context, q repository.Querier, templateID, schemeID int64) error {
	t, err := q.GetTemplate(ctx, templateID, true)
	if err != nil {
		return err
	}
	if t.SchemeID != schemeID {
		return fmt.Errorf("%w: template %d belongs to scheme %d, not %d",
			ErrTemplateNotBindable, templateID, t.SchemeID, schemeID)
	}
	if t.Status != model.TemplatePublished {
		return fmt.Errorf("%w: template %d is %s", ErrTemplateNotBindable, templateID, t.Status)
	}
	return nil
}
