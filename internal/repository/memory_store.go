package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shiva/shipquote/internal/model"
)

// MemoryStore keeps all configuration in process memory.
//
// Concurrency: View takes a shared lock; InTx takes the exclusive lock, works
// on a copy of the tables and swaps it in on success. Transactions are
// therefore serialized and never observe each other's partial writes.
// Calling View or InTx from inside fn deadlocks.
//
// Stored rows are never mutated in place: every write stores a fresh deep copy
// and every read returns one, so copying the table maps is enough to take a
// rollback point.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memData
	now  func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memData{
			schemes:     map[int64]model.PricingScheme{},
			templates:   map[int64]model.SegmentTemplate{},
			zones:       map[int64]model.Zone{},
			brackets:    map[int64]model.Bracket{},
			surcharges:  map[int64]model.Surcharge{},
			adjustments: map[int64]model.DestAdjustment{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// View implements Store.
func (s *MemoryStore) View(ctx context.Context, fn func(q Querier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memQuerier{d: s.data, now: s.now, readOnly: true})
}

// InTx implements Store.
func (s *MemoryStore) InTx(ctx context.Context, fn func(q Querier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&memQuerier{d: work, now: s.now}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// ─── Tables ─────────────────────────────────────────────────

type memData struct {
	seq         int64
	schemes     map[int64]model.PricingScheme
	templates   map[int64]model.SegmentTemplate
	zones       map[int64]model.Zone
	brackets    map[int64]model.Bracket
	surcharges  map[int64]model.Surcharge
	adjustments map[int64]model.DestAdjustment
}

func (d *memData) clone() *memData {
	return &memData{
		seq:         d.seq,
		schemes:     maps.Clone(d.schemes),
		templates:   maps.Clone(d.templates),
		zones:       maps.Clone(d.zones),
		brackets:    maps.Clone(d.brackets),
		surcharges:  maps.Clone(d.surcharges),
		adjustments: maps.Clone(d.adjustments),
	}
}

func (d *memData) nextID() int64 {
	d.seq++
	return d.seq
}

// memQuerier implements Querier over one memData generation.
type memQuerier struct {
	d        *memData
	now      func() time.Time
	readOnly bool
}

func (q *memQuerier) writable() error {
	if q.readOnly {
		return errReadOnly
	}
	return nil
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

// ─── Schemes ────────────────────────────────────────────────

func (q *memQuerier) CreateScheme(_ context.Context, s *model.PricingScheme) error {
	if err := q.writable(); err != nil {
		return err
	}
	s.ID = q.d.nextID()
	s.CreatedAt = q.now()
	s.UpdatedAt = s.CreatedAt
	q.d.schemes[s.ID] = cloneScheme(*s)
	return nil
}

func (q *memQuerier) GetScheme(_ context.Context, id int64) (*model.PricingScheme, error) {
	s, ok := q.d.schemes[id]
	if !ok {
		return nil, notFound("scheme", id)
	}
	out := cloneScheme(s)
	return &out, nil
}

// LockScheme only checks existence: InTx already runs one writer at a time.
func (q *memQuerier) LockScheme(_ context.Context, id int64) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.d.schemes[id]; !ok {
		return notFound("scheme", id)
	}
	return nil
}

func (q *memQuerier) ListSchemes(context.Context) ([]model.PricingScheme, error) {
	out := make([]model.PricingScheme, 0, len(q.d.schemes))
	for _, s := range q.d.schemes {
		out = append(out, cloneScheme(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (q *memQuerier) UpdateScheme(_ context.Context, s *model.PricingScheme) error {
	if err := q.writable(); err != nil {
		return err
	}
	cur, ok := q.d.schemes[s.ID]
	if !ok {
		return notFound("scheme", s.ID)
	}
	s.CreatedAt = cur.CreatedAt
	s.UpdatedAt = q.now()
	q.d.schemes[s.ID] = cloneScheme(*s)
	return nil
}

// ─── Segment templates ──────────────────────────────────────

func (q *memQuerier) GetTemplate(_ context.Context, id int64, _ bool) (*model.SegmentTemplate, error) {
	t, ok := q.d.templates[id]
	if !ok {
		return nil, notFound("segment template", id)
	}
	out := cloneTemplate(t)
	return &out, nil
}

func (q *memQuerier) CreateTemplate(_ context.Context, t *model.SegmentTemplate) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.d.schemes[t.SchemeID]; !ok {
		return notFound("scheme", t.SchemeID)
	}
	t.ID = q.d.nextID()
	t.CreatedAt = q.now()
	t.UpdatedAt = t.CreatedAt
	q.d.templates[t.ID] = cloneTemplate(*t)
	return nil
}

func (q *memQuerier) ListTemplates(_ context.Context, schemeID int64) ([]model.SegmentTemplate, error) {
	var out []model.SegmentTemplate
	for _, t := range q.d.templates {
		if t.SchemeID == schemeID {
			out = append(out, cloneTemplate(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *memQuerier) UpdateTemplate(_ context.Context, t *model.SegmentTemplate) error {
	if err := q.writable(); err != nil {
		return err
	}
	cur, ok := q.d.templates[t.ID]
	if !ok {
		return notFound("segment template", t.ID)
	}
	cur.Name = t.Name
	cur.Status = t.Status
	cur.UpdatedAt = q.now()
	q.d.templates[t.ID] = cur
	t.UpdatedAt = cur.UpdatedAt
	return nil
}

func (q *memQuerier) ReplaceTemplateItems(_ context.Context, templateID int64, items []model.SegmentTemplateItem) error {
	if err := q.writable(); err != nil {
		return err
	}
	cur, ok := q.d.templates[templateID]
	if !ok {
		return notFound("segment template", templateID)
	}
	cur.Items = cloneItems(items)
	cur.UpdatedAt = q.now()
	q.d.templates[templateID] = cur
	return nil
}

func (q *memQuerier) CountZoneReferences(_ context.Context, templateID int64) (int, error) {
	n := 0
	for _, z := range q.d.zones {
		if z.SegmentTemplateID != nil && *z.SegmentTemplateID == templateID {
			n++
		}
	}
	return n, nil
}

// ─── Zones ──────────────────────────────────────────────────

func (q *memQuerier) CreateZone(_ context.Context, z *model.Zone) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.d.schemes[z.SchemeID]; !ok {
		return notFound("scheme", z.SchemeID)
	}
	z.ID = q.d.nextID()
	z.CreatedAt = q.now()
	z.UpdatedAt = z.CreatedAt
	q.d.zones[z.ID] = cloneZone(*z)
	return nil
}

func (q *memQuerier) GetZone(_ context.Context, id int64, _ bool) (*model.Zone, error) {
	z, ok := q.d.zones[id]
	if !ok {
		return nil, notFound("zone", id)
	}
	out := cloneZone(z)
	return &out, nil
}

func (q *memQuerier) ListZones(_ context.Context, schemeID int64) ([]model.Zone, error) {
	var out []model.Zone
	for _, z := range q.d.zones {
		if z.SchemeID == schemeID {
			out = append(out, cloneZone(z))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (q *memQuerier) UpdateZone(_ context.Context, z *model.Zone) error {
	if err := q.writable(); err != nil {
		return err
	}
	cur, ok := q.d.zones[z.ID]
	if !ok {
		return notFound("zone", z.ID)
	}
	cur.Name = z.Name
	cur.Priority = z.Priority
	cur.Active = z.Active
	cur.SegmentTemplateID = clonePtr(z.SegmentTemplateID)
	cur.UpdatedAt = q.now()
	q.d.zones[z.ID] = cur
	z.UpdatedAt = cur.UpdatedAt
	return nil
}

func (q *memQuerier) ReplaceZoneMembers(_ context.Context, zoneID int64, members []model.ZoneMember) error {
	if err := q.writable(); err != nil {
		return err
	}
	cur, ok := q.d.zones[zoneID]
	if !ok {
		return notFound("zone", zoneID)
	}
	cur.Members = slices.Clone(members)
	cur.UpdatedAt = q.now()
	q.d.zones[zoneID] = cur
	return nil
}

func (q *memQuerier) DeleteZone(_ context.Context, id int64) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.d.zones[id]; !ok {
		return notFound("zone", id)
	}
	delete(q.d.zones, id)
	for bid, b := range q.d.brackets {
		if b.ZoneID == id {
			delete(q.d.brackets, bid)
		}
	}
	return nil
}

// ─── Brackets ───────────────────────────────────────────────

func (q *memQuerier) ListBrackets(_ context.Context, zoneID int64) ([]model.Bracket, error) {
	var out []model.Bracket
	for _, b := range q.d.brackets {
		if b.ZoneID == zoneID {
			out = append(out, cloneBracket(b))
		}
	}
	sortBrackets(out)
	return out, nil
}

func (q *memQuerier) ListSchemeBrackets(_ context.Context, schemeID int64) ([]model.Bracket, error) {
	var out []model.Bracket
	for _, b := range q.d.brackets {
		if z, ok := q.d.zones[b.ZoneID]; ok && z.SchemeID == schemeID {
			out = append(out, cloneBracket(b))
		}
	}
	sortBrackets(out)
	return out, nil
}

func (q *memQuerier) UpsertBracket(_ context.Context, b *model.Bracket) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.d.zones[b.ZoneID]; !ok {
		return notFound("zone", b.ZoneID)
	}
	b.ID = 0
	for id, cur := range q.d.brackets {
		if cur.ZoneID == b.ZoneID && cur.Range.Equal(b.Range) {
			b.ID = id
			break
		}
	}
	if b.ID == 0 {
		b.ID = q.d.nextID()
	}
	q.d.brackets[b.ID] = cloneBracket(*b)
	return nil
}

func (q *memQuerier) DeleteBracket(_ context.Context, id int64) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.d.brackets[id]; !ok {
		return notFound("bracket", id)
	}
	delete(q.d.brackets, id)
	return nil
}

func sortBrackets(bs []model.Bracket) {
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].ZoneID != bs[j].ZoneID {
			return bs[i].ZoneID < bs[j].ZoneID
		}
		return bs[i].Range.MinKg.LessThan(bs[j].Range.MinKg)
	})
}

// ─── Surcharges ─────────────────────────────────────────────

func (q *memQuerier) CreateSurcharge(_ context.Context, s *model.Surcharge) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.d.schemes[s.SchemeID]; !ok {
		return notFound("scheme", s.SchemeID)
	}
	s.ID = q.d.nextID()
	q.d.surcharges[s.ID] = cloneSurcharge(*s)
	return nil
}

func (q *memQuerier) GetSurcharge(_ context.Context, id int64) (*model.Surcharge, error) {
	s, ok := q.d.surcharges[id]
	if !ok {
		return nil, notFound("surcharge", id)
	}
	out := cloneSurcharge(s)
	return &out, nil
}

func (q *memQuerier) ListSurcharges(_ context.Context, schemeID int64) ([]model.Surcharge, error) {
	var out []model.Surcharge
	for _, s := range q.d.surcharges {
		if s.SchemeID == schemeID {
			out = append(out, cloneSurcharge(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *memQuerier) UpdateSurcharge(_ context.Context, s *model.Surcharge) error {
	if err := q.writable(); err != nil {
		return err
	}
	cur, ok := q.d.surcharges[s.ID]
	if !ok {
		return notFound("surcharge", s.ID)
	}
	s.SchemeID = cur.SchemeID
	q.d.surcharges[s.ID] = cloneSurcharge(*s)
	return nil
}

func (q *memQuerier) DeleteSurcharge(_ context.Context, id int64) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.d.surcharges[id]; !ok {
		return notFound("surcharge", id)
	}
	delete(q.d.surcharges, id)
	return nil
}

// ─── Destination adjustments ────────────────────────────────

func (q *memQuerier) ListDestAdjustments(_ context.Context, schemeID int64) ([]model.DestAdjustment, error) {
	var out []model.DestAdjustment
	for _, a := range q.d.adjustments {
		if a.SchemeID == schemeID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *memQuerier) UpsertDestAdjustment(_ context.Context, a *model.DestAdjustment) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.d.schemes[a.SchemeID]; !ok {
		return notFound("scheme", a.SchemeID)
	}
	a.ID = 0
	for id, cur := range q.d.adjustments {
		if cur.SchemeID == a.SchemeID && cur.Scope == a.Scope &&
			cur.Province == a.Province && cur.City == a.City {
			a.ID = id
			break
		}
	}
	if a.ID == 0 {
		a.ID = q.d.nextID()
	}
	q.d.adjustments[a.ID] = *a
	return nil
}

func (q *memQuerier) DeleteDestAdjustment(_ context.Context, id int64) error {
	if err := q.writable(); err != nil {
		return err
	}
	if _, ok := q.d.adjustments[id]; !ok {
		return notFound("dest adjustment", id)
	}
	delete(q.d.adjustments, id)
	return nil
}

// ─── Deep copies ────────────────────────────────────────────

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneScheme(s model.PricingScheme) model.PricingScheme {
	s.DefaultSegmentTemplateID = clonePtr(s.DefaultSegmentTemplateID)
	return s
}

func cloneItems(items []model.SegmentTemplateItem) []model.SegmentTemplateItem {
	if items == nil {
		return nil
	}
	out := make([]model.SegmentTemplateItem, len(items))
	for i, it := range items {
		it.MaxKg = clonePtr(it.MaxKg)
		out[i] = it
	}
	return out
}

func cloneTemplate(t model.SegmentTemplate) model.SegmentTemplate {
	t.Items = cloneItems(t.Items)
	return t
}

func cloneZone(z model.Zone) model.Zone {
	z.SegmentTemplateID = clonePtr(z.SegmentTemplateID)
	z.Members = slices.Clone(z.Members)
	return z
}

func cloneBracket(b model.Bracket) model.Bracket {
	b.Range.MaxKg = clonePtr(b.Range.MaxKg)
	return b
}

func cloneSurcharge(s model.Surcharge) model.Surcharge {
	if s.Condition.Dest != nil {
		d := model.DestPredicate{
			Province: slices.Clone(s.Condition.Dest.Province),
			City:     slices.Clone(s.Condition.Dest.City),
			District: slices.Clone(s.Condition.Dest.District),
		}
		s.Condition.Dest = &d
	}
	s.Condition.FlagAny = slices.Clone(s.Condition.FlagAny)
	s.Detail.Amount = clonePtr(s.Detail.Amount)
	s.Detail.RatePerKg = clonePtr(s.Detail.RatePerKg)
	if s.Detail.Tiers != nil {
		tiers := make([]model.SurchargeTier, len(s.Detail.Tiers))
		for i, t := range s.Detail.Tiers {
			t.MaxKg = clonePtr(t.MaxKg)
			tiers[i] = t
		}
		s.Detail.Tiers = tiers
	}
	return s
}
