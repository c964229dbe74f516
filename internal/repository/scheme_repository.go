package repository

import (
	"context"
	"fmt"

	"github.com/shiva/shipquote/internal/model"
)

const schemeColumns = `
	id, name, currency, priority, active, default_segment_template_id,
	volumetric_divisor, rounding_mode, rounding_step_kg, created_at, updated_at`

func scanScheme(row interface{ Scan(dest ...any) error }) (*model.PricingScheme, error) {
	s := &model.PricingScheme{}
	err := row.Scan(
		&s.ID, &s.Name, &s.Currency, &s.Priority, &s.Active, &s.DefaultSegmentTemplateID,
		&s.BillableWeight.VolumetricDivisor, &s.BillableWeight.Rounding.Mode,
		&s.BillableWeight.Rounding.StepKg, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func (q *pgQuerier) CreateScheme(ctx context.Context, s *model.PricingScheme) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO pricing_schemes
			(name, currency, priority, active, default_segment_template_id,
			 volumetric_divisor, rounding_mode, rounding_step_kg)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, s.Name, s.Currency, s.Priority, s.Active, s.DefaultSegmentTemplateID,
		s.BillableWeight.VolumetricDivisor, s.BillableWeight.Rounding.Mode,
		s.BillableWeight.Rounding.StepKg,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapErr(err, "scheme", s.ID)
}

func (q *pgQuerier) GetScheme(ctx context.Context, id int64) (*model.PricingScheme, error) {
	s, err := scanScheme(q.db.QueryRow(ctx,
		`SELECT`+schemeColumns+` FROM pricing_schemes WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "scheme", id)
	}
	return s, nil
}

// LockScheme takes FOR NO KEY UPDATE so foreign-key inserts from other
// transactions are not blocked, only other LockScheme callers.
func (q *pgQuerier) LockScheme(ctx context.Context, id int64) error {
	var got int64
	err := q.db.QueryRow(ctx,
		`SELECT id FROM pricing_schemes WHERE id = $1 FOR NO KEY UPDATE`, id,
	).Scan(&got)
	return mapErr(err, "scheme", id)
}

func (q *pgQuerier) ListSchemes(ctx context.Context) ([]model.PricingScheme, error) {
	rows, err := q.db.Query(ctx,
		`SELECT`+schemeColumns+` FROM pricing_schemes ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("list schemes: %w", err)
	}
	defer rows.Close()

	var out []model.PricingScheme
	for rows.Next() {
		s, err := scanScheme(rows)
		if err != nil {
			return nil, fmt.Errorf("list schemes: scan: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (q *pgQuerier) UpdateScheme(ctx context.Context, s *model.PricingScheme) error {
	err := q.db.QueryRow(ctx, `
		UPDATE pricing_schemes
		SET name = $2, currency = $3, priority = $4, active = $5,
		    default_segment_template_id = $6, volumetric_divisor = $7,
		    rounding_mode = $8, rounding_step_kg = $9, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, s.ID, s.Name, s.Currency, s.Priority, s.Active, s.DefaultSegmentTemplateID,
		s.BillableWeight.VolumetricDivisor, s.BillableWeight.Rounding.Mode,
		s.BillableWeight.Rounding.StepKg,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return mapErr(err, "scheme", s.ID)
}
