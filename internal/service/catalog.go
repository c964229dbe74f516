package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/internal/pricing"
	"github.com/shiva/shipquote/internal/repository"
	"github.com/shiva/shipquote/pkg/region"
)

// ─── CatalogService ─────────────────────────────────────────

// CatalogService configures schemes and everything hanging off them except
// template lifecycle and binding, which belong to TemplateService.
type CatalogService struct {
	store repository.Store
	log   *zap.Logger
}

// NewCatalogService creates a catalog service.
func NewCatalogService(store repository.Store, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{store: store, log: log.Named("catalog")}
}

// ─── Schemes ────────────────────────────────────────────────

// SchemePatch lists the scheme fields a PATCH may change. Nil means unchanged.
type SchemePatch struct {
	Name           *string
	Currency       *string
	Priority       *int
	Active         *bool
	BillableWeight *model.BillableWeightRule
}

// CreateScheme validates and stores a new scheme. Empty currency becomes CNY and
// a zero volumetric divisor becomes 8000.
func (s *CatalogService) CreateScheme(ctx context.Context, scheme model.PricingScheme) (*model.PricingScheme, error) {
	scheme.ID = 0
	scheme.DefaultSegmentTemplateID = nil
	if err := normalizeScheme(&scheme); err != nil {
		return nil, err
	}
	if err := s.store.InTx(ctx, func(q repository.Querier) error {
		return q.CreateScheme(ctx, &scheme)
	}); err != nil {
		return nil, err
	}
	s.log.Info("scheme created", zap.Int64("scheme_id", scheme.ID), zap.String("name", scheme.Name))
	return &scheme, nil
}

// GetScheme returns one scheme.
func (s *CatalogService) GetScheme(ctx context.Context, id int64) (*model.PricingScheme, error) {
	var out *model.PricingScheme
	err := s.store.View(ctx, func(q repository.Querier) (err error) {
		out, err = q.GetScheme(ctx, id)
		return err
	})
	return out, err
}

// ListSchemes returns every scheme ordered by priority, then id.
func (s *CatalogService) ListSchemes(ctx context.Context) ([]model.PricingScheme, error) {
	var out []model.PricingScheme
	err := s.store.View(ctx, func(q repository.Querier) (err error) {
		out, err = q.ListSchemes(ctx)
		return err
	})
	return out, err
}

// UpdateScheme applies a patch. The default template is changed only through
// TemplateService.SetSchemeDefaultTemplate.
func (s *CatalogService) UpdateScheme(ctx context.Context, id int64, p SchemePatch) (*model.PricingScheme, error) {
	var out *model.PricingScheme
	err := s.store.InTx(ctx, func(q repository.Querier) error {
		sc, err := q.GetScheme(ctx, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			sc.Name = *p.Name
		}
		if p.Currency != nil {
			sc.Currency = *p.Currency
		}
		if p.Priority != nil {
			sc.Priority = *p.Priority
		}
		if p.Active != nil {
			sc.Active = *p.Active
		}
		if p.BillableWeight != nil {
			sc.BillableWeight = *p.BillableWeight
		}
		if err := normalizeScheme(sc); err != nil {
			return err
		}
		if err := q.UpdateScheme(ctx, sc); err != nil {
			return err
		}
		out = sc
		return nil
	})
	return out, err
}

func normalizeScheme(sc *model.PricingScheme) error {
	sc.Name = strings.TrimSpace(sc.Name)
	if sc.Name == "" {
		return invalid("scheme name is required")
	}
	sc.Currency = strings.ToUpper(strings.TrimSpace(sc.Currency))
	if sc.Currency == "" {
		sc.Currency = pricing.DefaultCurrency
	}

	bw := &sc.BillableWeight
	if bw.VolumetricDivisor.IsZero() {
		bw.VolumetricDivisor = model.DefaultVolumetricDivisor
	}
	if bw.VolumetricDivisor.IsNegative() {
		return invalid("volumetric_divisor must be positive")
	}
	switch bw.Rounding.Mode {
	case "":
		bw.Rounding.Mode = model.RoundingNone
	case model.RoundingNone:
	case model.RoundingCeil:
		if !bw.Rounding.StepKg.IsPositive() {
			return invalid("rounding step_kg must be positive when mode is ceil")
		}
	default:
		return invalid("unknown rounding mode %q", bw.Rounding.Mode)
	}
	return nil
}

// ─── Zones ──────────────────────────────────────────────────

// ZonePatch lists the zone fields a PATCH may change. Nil means unchanged.
type ZonePatch struct {
	Name     *string
	Priority *int
	Active   *bool
}

// CreateZone stores a new, unbound zone. Bind a template with
// TemplateService.BindZoneTemplate. An identical retry returns the existing zone.
func (s *CatalogService) CreateZone(ctx context.Context, schemeID int64, z model.Zone) (*model.Zone, error) {
	z.ID = 0
	z.SchemeID = schemeID
	z.SegmentTemplateID = nil
	z.Name = strings.TrimSpace(z.Name)
	if z.Name == "" {
		return nil, invalid("zone name is required")
	}
	members, err := normalizeMembers(z.Members)
	if err != nil {
		return nil, err
	}
	z.Members = members

	replayed := false
	if err := s.store.InTx(ctx, func(q repository.Querier) error {
		if err := q.LockScheme(ctx, schemeID); err != nil {
			return err
		}
		existing, err := q.ListZones(ctx, schemeID)
		if err != nil {
			return err
		}
		for _, cur := range existing {
			if sameZone(cur, z) {
				z, replayed = cur, true
				return nil
			}
		}
		return q.CreateZone(ctx, &z)
	}); err != nil {
		return nil, err
	}
	if replayed {
		s.log.Debug("zone create replayed", zap.Int64("zone_id", z.ID), zap.Int64("scheme_id", schemeID))
		return &z, nil
	}
	s.log.Info("zone created",
		zap.Int64("zone_id", z.ID), zap.Int64("scheme_id", schemeID), zap.Int("members", len(members)))
	return &z, nil
}

// GetZone returns one zone with its members.
func (s *CatalogService) GetZone(ctx context.Context, id int64) (*model.Zone, error) {
	var out *model.Zone
	err := s.store.View(ctx, func(q repository.Querier) (err error) {
		out, err = q.GetZone(ctx, id, false)
		return err
	})
	return out, err
}

// ListZones returns the zones of a scheme ordered by priority, then id.
func (s *CatalogService) ListZones(ctx context.Context, schemeID int64) ([]model.Zone, error) {
	var out []model.Zone
	err := s.store.View(ctx, func(q repository.Querier) error {
		if _, err := q.GetScheme(ctx, schemeID); err != nil {
			return err
		}
		var err error
		out, err = q.ListZones(ctx, schemeID)
		return err
	})
	return out, err
}

// UpdateZone applies a patch to name, priority or active.
func (s *CatalogService) UpdateZone(ctx context.Context, id int64, p ZonePatch) (*model.Zone, error) {
	var out *model.Zone
	err := s.store.InTx(ctx, func(q repository.Querier) error {
		z, err := q.GetZone(ctx, id, true)
		if err != nil {
			return err
		}
		if p.Name != nil {
			z.Name = strings.TrimSpace(*p.Name)
			if z.Name == "" {
				return invalid("zone name is required")
			}
		}
		if p.Priority != nil {
			z.Priority = *p.Priority
		}
		if p.Active != nil {
			z.Active = *p.Active
		}
		if err := q.UpdateZone(ctx, z); err != nil {
			return err
		}
		out = z
		return nil
	})
	return out, err
}

// ReplaceZoneMembers swaps a zone's members. Duplicates (after normalization)
// are dropped, keeping the first occurrence.
func (s *CatalogService) ReplaceZoneMembers(ctx context.Context, id int64, members []model.ZoneMember) (*model.Zone, error) {
	members, err := normalizeMembers(members)
	if err != nil {
		return nil, err
	}

	var out *model.Zone
	err = s.store.InTx(ctx, func(q repository.Querier) error {
		z, err := q.GetZone(ctx, id, true)
		if err != nil {
			return err
		}
		if err := q.ReplaceZoneMembers(ctx, id, members); err != nil {
			return err
		}
		z.Members = members
		out = z
		return nil
	})
	return out, err
}

// DeleteZone removes a zone with its members and brackets. This can only lower
// a template's reference count, so it does not take the template lock.
func (s *CatalogService) DeleteZone(ctx context.Context, id int64) error {
	if err := s.store.InTx(ctx, func(q repository.Querier) error {
		return q.DeleteZone(ctx, id)
	}); err != nil {
		return err
	}
	s.log.Info("zone deleted", zap.Int64("zone_id", id))
	return nil
}

func normalizeMembers(in []model.ZoneMember) ([]model.ZoneMember, error) {
	out := make([]model.ZoneMember, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, m := range in {
		if !m.Level.Valid() {
			return nil, invalid("member %d: unknown level %q", i+1, m.Level)
		}
		m.Value = strings.TrimSpace(m.Value)
		if m.Value == "" {
			return nil, invalid("member %d: value is required", i+1)
		}
		key := memberKey(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out, nil
}

// ─── Brackets ───────────────────────────────────────────────

// ListBrackets returns a zone's brackets ordered by min_kg.
func (s *CatalogService) ListBrackets(ctx context.Context, zoneID int64) ([]model.Bracket, error) {
	var out []model.Bracket
	err := s.store.View(ctx, func(q repository.Querier) error {
		if _, err := q.GetZone(ctx, zoneID, false); err != nil {
			return err
		}
		var err error
		out, err = q.ListBrackets(ctx, zoneID)
		return err
	})
	return out, err
}

// UpsertBrackets writes brackets for a zone, each keyed by its weight range.
// Every range must equal a segment of the zone's effective template (its own,
// else the scheme default); otherwise nothing is written.
func (s *CatalogService) UpsertBrackets(ctx context.Context, zoneID int64, brackets []model.Bracket) ([]model.Bracket, error) {
	if len(brackets) == 0 {
		return nil, invalid("at least one bracket is required")
	}
	for i, b := range brackets {
		if b.Pricing == nil {
			return nil, invalid("bracket %d: pricing is required", i+1)
		}
		if _, err := model.FieldsOf(b.Pricing).Pricing(); err != nil {
			return nil, invalid("bracket %d: %v", i+1, err)
		}
	}

	var out []model.Bracket
	err := s.store.InTx(ctx, func(q repository.Querier) error {
		z, err := q.GetZone(ctx, zoneID, true)
		if err != nil {
			return err
		}
		segments, err := effectiveSegments(ctx, q, z)
		if err != nil {
			return err
		}

		for i := range brackets {
			b := brackets[i]
			if !containsRange(segments, b.Range) {
				return fmt.Errorf("%w: %s in zone %d", ErrBracketRangeUnknown, b.Range, zoneID)
			}
			b.ZoneID = zoneID
			if err := q.UpsertBracket(ctx, &b); err != nil {
				return err
			}
		}
		out, err = q.ListBrackets(ctx, zoneID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("brackets upserted", zap.Int64("zone_id", zoneID), zap.Int("count", len(brackets)))
	return out, nil
}

// DeleteBracket removes one bracket.
func (s *CatalogService) DeleteBracket(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(q repository.Querier) error {
		return q.DeleteBracket(ctx, id)
	})
}

// effectiveSegments returns the weight ranges of the template a zone prices against.
func effectiveSegments(ctx context.Context, q repository.Querier, z *model.Zone) ([]model.WeightRange, error) {
	templateID := z.SegmentTemplateID
	if templateID == nil {
		sc, err := q.GetScheme(ctx, z.SchemeID)
		if err != nil {
			return nil, err
		}
		templateID = sc.DefaultSegmentTemplateID
	}
	if templateID == nil {
		return nil, fmt.Errorf("%w: zone %d has no segment template", ErrBracketRangeUnknown, z.ID)
	}

	// Row lock: ReplaceItems may run on a scheme default template, which has
	// no zone references to stop it.
	t, err := q.GetTemplate(ctx, *templateID, true)
	if err != nil {
		return nil, err
	}
	out := make([]model.WeightRange, len(t.Items))
	for i, it := range t.Items {
		out[i] = it.Range()
	}
	return out, nil
}

func containsRange(ranges []model.WeightRange, r model.WeightRange) bool {
	for _, x := range ranges {
		if x.Equal(r) {
			return true
		}
	}
	return false
}

// ─── Surcharges ─────────────────────────────────────────────

// SurchargePatch lists the surcharge fields a PATCH may change. Nil means unchanged.
type SurchargePatch struct {
	Name      *string
	Active    *bool
	Condition *model.SurchargeCondition
	Detail    *model.SurchargeDetail
}

// CreateSurcharge validates and stores a surcharge rule. An identical retry
// returns the existing rule.
func (s *CatalogService) CreateSurcharge(ctx context.Context, schemeID int64, sc model.Surcharge) (*model.Surcharge, error) {
	sc.ID = 0
	sc.SchemeID = schemeID
	if err := validateSurcharge(&sc); err != nil {
		return nil, err
	}
	replayed := false
	if err := s.store.InTx(ctx, func(q repository.Querier) error {
		if err := q.LockScheme(ctx, schemeID); err != nil {
			return err
		}
		existing, err := q.ListSurcharges(ctx, schemeID)
		if err != nil {
			return err
		}
		for _, cur := range existing {
			if sameSurcharge(cur, sc) {
				sc, replayed = cur, true
				return nil
			}
		}
		return q.CreateSurcharge(ctx, &sc)
	}); err != nil {
		return nil, err
	}
	if replayed {
		s.log.Debug("surcharge create replayed", zap.Int64("surcharge_id", sc.ID), zap.Int64("scheme_id", schemeID))
		return &sc, nil
	}
	s.log.Info("surcharge created", zap.Int64("surcharge_id", sc.ID), zap.String("kind", string(sc.Detail.Kind)))
	return &sc, nil
}

// ListSurcharges returns the surcharges of a scheme ordered by id.
func (s *CatalogService) ListSurcharges(ctx context.Context, schemeID int64) ([]model.Surcharge, error) {
	var out []model.Surcharge
	err := s.store.View(ctx, func(q repository.Querier) error {
		if _, err := q.GetScheme(ctx, schemeID); err != nil {
			return err
		}
		var err error
		out, err = q.ListSurcharges(ctx, schemeID)
		return err
	})
	return out, err
}

// UpdateSurcharge applies a patch and revalidates the whole rule.
func (s *CatalogService) UpdateSurcharge(ctx context.Context, id int64, p SurchargePatch) (*model.Surcharge, error) {
	var out *model.Surcharge
	err := s.store.InTx(ctx, func(q repository.Querier) error {
		sc, err := q.GetSurcharge(ctx, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			sc.Name = *p.Name
		}
		if p.Active != nil {
			sc.Active = *p.Active
		}
		if p.Condition != nil {
			sc.Condition = *p.Condition
		}
		if p.Detail != nil {
			sc.Detail = *p.Detail
		}
		if err := validateSurcharge(sc); err != nil {
			return err
		}
		if err := q.UpdateSurcharge(ctx, sc); err != nil {
			return err
		}
		out = sc
		return nil
	})
	return out, err
}

// DeleteSurcharge removes one surcharge rule.
func (s *CatalogService) DeleteSurcharge(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(q repository.Querier) error {
		return q.DeleteSurcharge(ctx, id)
	})
}

func validateSurcharge(sc *model.Surcharge) error {
	sc.Name = strings.TrimSpace(sc.Name)
	if sc.Name == "" {
		return invalid("surcharge name is required")
	}
	if err := sc.Detail.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if d := sc.Condition.Dest; d != nil && d.Empty() {
		sc.Condition.Dest = nil
	}
	return nil
}

// ─── Destination adjustments ────────────────────────────────

// ListDestAdjustments returns the adjustments of a scheme ordered by id.
func (s *CatalogService) ListDestAdjustments(ctx context.Context, schemeID int64) ([]model.DestAdjustment, error) {
	var out []model.DestAdjustment
	err := s.store.View(ctx, func(q repository.Querier) error {
		if _, err := q.GetScheme(ctx, schemeID); err != nil {
			return err
		}
		var err error
		out, err = q.ListDestAdjustments(ctx, schemeID)
		return err
	})
	return out, err
}

// UpsertDestAdjustments writes adjustments keyed by (scope, province, city),
// compared in normalized form.
// All rows are validated before any is written.
func (s *CatalogService) UpsertDestAdjustments(ctx context.Context, schemeID int64, adjs []model.DestAdjustment) ([]model.DestAdjustment, error) {
	if len(adjs) == 0 {
		return nil, invalid("at least one adjustment is required")
	}
	rows := make([]model.DestAdjustment, len(adjs))
	for i, a := range adjs {
		a.ID = 0
		a.SchemeID = schemeID
		a.Province = strings.TrimSpace(a.Province)
		a.City = strings.TrimSpace(a.City)
		if a.Province == "" {
			return nil, invalid("adjustment %d: province is required", i+1)
		}
		switch a.Scope {
		case model.ScopeProvince:
			a.City = ""
		case model.ScopeCity:
			if a.City == "" {
				return nil, invalid("adjustment %d: city is required for city scope", i+1)
			}
		default:
			return nil, invalid("adjustment %d: unknown scope %q", i+1, a.Scope)
		}
		rows[i] = a
	}

	var out []model.DestAdjustment
	err := s.store.InTx(ctx, func(q repository.Querier) error {
		if _, err := q.GetScheme(ctx, schemeID); err != nil {
			return err
		}
		existing, err := q.ListDestAdjustments(ctx, schemeID)
		if err != nil {
			return err
		}
		// One row per normalized address: a new spelling of a stored key
		// writes to the stored row.
		spelling := make(map[string]model.DestAdjustment, len(existing)+len(rows))
		for _, a := range existing {
			spelling[adjustmentKey(a)] = a
		}
		for i := range rows {
			key := adjustmentKey(rows[i])
			if prev, ok := spelling[key]; ok {
				rows[i].Province, rows[i].City = prev.Province, prev.City
			} else {
				spelling[key] = rows[i]
			}
			if err := q.UpsertDestAdjustment(ctx, &rows[i]); err != nil {
				return err
			}
		}
		out, err = q.ListDestAdjustments(ctx, schemeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("dest adjustments upserted", zap.Int64("scheme_id", schemeID), zap.Int("count", len(rows)))
	return out, nil
}

func adjustmentKey(a model.DestAdjustment) string {
	return string(a.Scope) + "\x00" + region.Normalize(a.Province) + "\x00" + region.Normalize(a.City)
}

// DeleteDestAdjustment removes one adjustment.
func (s *CatalogService) DeleteDestAdjustment(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(q repository.Querier) error {
		return q.DeleteDestAdjustment(ctx, id)
	})
}

