package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shiva/shipquote/internal/model"
)

// ─── Zones ──────────────────────────────────────────────────

const zoneColumns = `id, scheme_id, name, priority, active, segment_template_id, created_at, updated_at`

func scanZone(row interface{ Scan(dest ...any) error }) (model.Zone, error) {
	var z model.Zone
	err := row.Scan(&z.ID, &z.SchemeID, &z.Name, &z.Priority, &z.Active,
		&z.SegmentTemplateID, &z.CreatedAt, &z.UpdatedAt)
	return z, err
}

func (q *pgQuerier) CreateZone(ctx context.Context, z *model.Zone) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO pricing_zones (scheme_id, name, priority, active, segment_template_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, z.SchemeID, z.Name, z.Priority, z.Active, z.SegmentTemplateID,
	).Scan(&z.ID, &z.CreatedAt, &z.UpdatedAt)
	if err != nil {
		return mapErr(err, "zone", z.ID)
	}
	return q.insertMembers(ctx, z.ID, z.Members)
}

// GetZone fetches a zone and its members.
// Uses SELECT ... FOR UPDATE when forUpdate is true (row-level locking).
func (q *pgQuerier) GetZone(ctx context.Context, id int64, forUpdate bool) (*model.Zone, error) {
	lockClause := ""
	if forUpdate {
		lockClause = "FOR UPDATE"
	}

	z, err := scanZone(q.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM pricing_zones WHERE id = $1 %s`, zoneColumns, lockClause), id))
	if err != nil {
		return nil, mapErr(err, "zone", id)
	}

	members, err := q.loadMembers(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	z.Members = members[id]
	return &z, nil
}

func (q *pgQuerier) ListZones(ctx context.Context, schemeID int64) ([]model.Zone, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+zoneColumns+`
		FROM pricing_zones
		WHERE scheme_id = $1
		ORDER BY priority, id
	`, schemeID)
	if err != nil {
		return nil, fmt.Errorf("list zones of scheme %d: %w", schemeID, err)
	}
	defer rows.Close()

	var (
		out []model.Zone
		ids []int64
	)
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("list zones: scan: %w", err)
		}
		out = append(out, z)
		ids = append(ids, z.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	members, err := q.loadMembers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Members = members[out[i].ID]
	}
	return out, nil
}

func (q *pgQuerier) UpdateZone(ctx context.Context, z *model.Zone) error {
	err := q.db.QueryRow(ctx, `
		UPDATE pricing_zones
		SET name = $2, priority = $3, active = $4, segment_template_id = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, z.ID, z.Name, z.Priority, z.Active, z.SegmentTemplateID).Scan(&z.UpdatedAt)
	return mapErr(err, "zone", z.ID)
}

func (q *pgQuerier) ReplaceZoneMembers(ctx context.Context, zoneID int64, members []model.ZoneMember) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE pricing_zones SET updated_at = now() WHERE id = $1`, zoneID,
	)
	if err := expectOne(tag, err, "zone", zoneID); err != nil {
		return err
	}
	if _, err := q.db.Exec(ctx, `DELETE FROM zone_members WHERE zone_id = $1`, zoneID); err != nil {
		return fmt.Errorf("replace members of zone %d: %w", zoneID, err)
	}
	return q.insertMembers(ctx, zoneID, members)
}

func (q *pgQuerier) DeleteZone(ctx context.Context, id int64) error {
	// Members and brackets go with it via ON DELETE CASCADE.
	tag, err := q.db.Exec(ctx, `DELETE FROM pricing_zones WHERE id = $1`, id)
	return expectOne(tag, err, "zone", id)
}

func (q *pgQuerier) insertMembers(ctx context.Context, zoneID int64, members []model.ZoneMember) error {
	for pos, m := range members {
		_, err := q.db.Exec(ctx, `
			INSERT INTO zone_members (zone_id, pos, level, value)
			VALUES ($1, $2, $3, $4)
		`, zoneID, pos, m.Level, m.Value)
		if err != nil {
			return mapErr(err, "zone", zoneID)
		}
	}
	return nil
}

func (q *pgQuerier) loadMembers(ctx context.Context, zoneIDs []int64) (map[int64][]model.ZoneMember, error) {
	out := make(map[int64][]model.ZoneMember, len(zoneIDs))
	if len(zoneIDs) == 0 {
		return out, nil
	}

	rows, err := q.db.Query(ctx, `
		SELECT zone_id, level, value
		FROM zone_members
		WHERE zone_id = ANY($1)
		ORDER BY zone_id, pos
	`, zoneIDs)
	if err != nil {
		return nil, fmt.Errorf("load zone members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			zoneID int64
			m      model.ZoneMember
		)
		if err := rows.Scan(&zoneID, &m.Level, &m.Value); err != nil {
			return nil, fmt.Errorf("load zone members: scan: %w", err)
		}
		out[zoneID] = append(out[zoneID], m)
	}
	return out, rows.Err()
}

// ─── Brackets ───────────────────────────────────────────────

const bracketColumns = `
	b.id, b.zone_id, b.min_kg, b.max_kg, b.pricing_mode,
	b.flat_amount, b.base_amount, b.rate_per_kg, b.base_kg`

func (q *pgQuerier) ListBrackets(ctx context.Context, zoneID int64) ([]model.Bracket, error) {
	return q.queryBrackets(ctx, `
		SELECT `+bracketColumns+`
		FROM zone_brackets b
		WHERE b.zone_id = $1
		ORDER BY b.min_kg
	`, zoneID)
}

func (q *pgQuerier) ListSchemeBrackets(ctx context.Context, schemeID int64) ([]model.Bracket, error) {
	return q.queryBrackets(ctx, `
		SELECT `+bracketColumns+`
		FROM zone_brackets b
		JOIN pricing_zones z ON z.id = b.zone_id
		WHERE z.scheme_id = $1
		ORDER BY b.zone_id, b.min_kg
	`, schemeID)
}

func (q *pgQuerier) queryBrackets(ctx context.Context, sql string, arg int64) ([]model.Bracket, error) {
	rows, err := q.db.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("list brackets: %w", err)
	}
	defer rows.Close()

	var out []model.Bracket
	for rows.Next() {
		var (
			b      model.Bracket
			fields model.PricingFields
		)
		var maxKg, flat, base, rate, baseKg decimal.NullDecimal
		if err := rows.Scan(&b.ID, &b.ZoneID, &b.Range.MinKg, &maxKg, &fields.Mode,
			&flat, &base, &rate, &baseKg); err != nil {
			return nil, fmt.Errorf("list brackets: scan: %w", err)
		}
		b.Range.MaxKg = decPtr(maxKg)
		fields.FlatAmount = decPtr(flat)
		fields.BaseAmount = decPtr(base)
		fields.RatePerKg = decPtr(rate)
		fields.BaseKg = decPtr(baseKg)

		p, err := fields.Pricing()
		if err != nil {
			return nil, fmt.Errorf("bracket %d: %w", b.ID, err)
		}
		b.Pricing = p
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *pgQuerier) UpsertBracket(ctx context.Context, b *model.Bracket) error {
	f := model.FieldsOf(b.Pricing)
	err := q.db.QueryRow(ctx, `
		INSERT INTO zone_brackets
			(zone_id, min_kg, max_kg, pricing_mode, flat_amount, base_amount, rate_per_kg, base_kg)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (zone_id, min_kg, (COALESCE(max_kg, -1))) DO UPDATE
		SET pricing_mode = EXCLUDED.pricing_mode,
		    flat_amount  = EXCLUDED.flat_amount,
		    base_amount  = EXCLUDED.base_amount,
		    rate_per_kg  = EXCLUDED.rate_per_kg,
		    base_kg      = EXCLUDED.base_kg
		RETURNING id
	`, b.ZoneID, b.Range.MinKg, nullDec(b.Range.MaxKg), f.Mode,
		nullDec(f.FlatAmount), nullDec(f.BaseAmount), nullDec(f.RatePerKg), nullDec(f.BaseKg),
	).Scan(&b.ID)
	return mapErr(err, "bracket", b.ID)
}

func (q *pgQuerier) DeleteBracket(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM zone_brackets WHERE id = $1`, id)
	return expectOne(tag, err, "bracket", id)
}
