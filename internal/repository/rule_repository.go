package repository

import (
	"context"
	"fmt"

	"github.com/shiva/shipquote/internal/model"
)

// ─── Surcharges ─────────────────────────────────────────────
// condition and detail are stored as JSONB; pgx marshals the structs directly.

const surchargeColumns = `id, scheme_id, name, active, condition, detail`

func scanSurcharge(row interface{ Scan(dest ...any) error }) (model.Surcharge, error) {
	var s model.Surcharge
	err := row.Scan(&s.ID, &s.SchemeID, &s.Name, &s.Active, &s.Condition, &s.Detail)
	return s, err
}

func (q *pgQuerier) CreateSurcharge(ctx context.Context, s *model.Surcharge) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO surcharges (scheme_id, name, active, condition, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, s.SchemeID, s.Name, s.Active, s.Condition, s.Detail).Scan(&s.ID)
	return mapErr(err, "surcharge", s.ID)
}

func (q *pgQuerier) GetSurcharge(ctx context.Context, id int64) (*model.Surcharge, error) {
	s, err := scanSurcharge(q.db.QueryRow(ctx,
		`SELECT `+surchargeColumns+` FROM surcharges WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "surcharge", id)
	}
	return &s, nil
}

func (q *pgQuerier) ListSurcharges(ctx context.Context, schemeID int64) ([]model.Surcharge, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+surchargeColumns+` FROM surcharges WHERE scheme_id = $1 ORDER BY id`, schemeID)
	if err != nil {
		return nil, fmt.Errorf("list surcharges of scheme %d: %w", schemeID, err)
	}
	defer rows.Close()

	var out []model.Surcharge
	for rows.Next() {
		s, err := scanSurcharge(rows)
		if err != nil {
			return nil, fmt.Errorf("list surcharges: scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *pgQuerier) UpdateSurcharge(ctx context.Context, s *model.Surcharge) error {
	err := q.db.QueryRow(ctx, `
		UPDATE surcharges
		SET name = $2, active = $3, condition = $4, detail = $5
		WHERE id = $1
		RETURNING scheme_id
	`, s.ID, s.Name, s.Active, s.Condition, s.Detail).Scan(&s.SchemeID)
	return mapErr(err, "surcharge", s.ID)
}

func (q *pgQuerier) DeleteSurcharge(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM surcharges WHERE id = $1`, id)
	return expectOne(tag, err, "surcharge", id)
}

// ─── Destination adjustments ────────────────────────────────

func (q *pgQuerier) ListDestAdjustments(ctx context.Context, schemeID int64) ([]model.DestAdjustment, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, scheme_id, scope, province, city, amount, active
		FROM dest_adjustments
		WHERE scheme_id = $1
		ORDER BY id
	`, schemeID)
	if err != nil {
		return nil, fmt.Errorf("list dest adjustments of scheme %d: %w", schemeID, err)
	}
	defer rows.Close()

	var out []model.DestAdjustment
	for rows.Next() {
		var a model.DestAdjustment
		if err := rows.Scan(&a.ID, &a.SchemeID, &a.Scope, &a.Province, &a.City, &a.Amount, &a.Active); err != nil {
			return nil, fmt.Errorf("list dest adjustments: scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *pgQuerier) UpsertDestAdjustment(ctx context.Context, a *model.DestAdjustment) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO dest_adjustments (scheme_id, scope, province, city, amount, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (scheme_id, scope, province, city) DO UPDATE
		SET amount = EXCLUDED.amount, active = EXCLUDED.active
		RETURNING id
	`, a.SchemeID, a.Scope, a.Province, a.City, a.Amount, a.Active).Scan(&a.ID)
	return mapErr(err, "dest adjustment", a.ID)
}

func (q *pgQuerier) DeleteDestAdjustment(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM dest_adjustments WHERE id = $1`, id)
	return expectOne(tag, err, "dest adjustment", id)
}
