package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shiva/shipquote/internal/model"
)

// GetTemplate fetches a template and its items.
// Uses SELECT ... FOR UPDATE when forUpdate is true (row-level locking).
func (q *pgQuerier) GetTemplate(ctx context.Context, id int64, forUpdate bool) (*model.SegmentTemplate, error) {
	lockClause := ""
	if forUpdate {
		lockClause = "FOR UPDATE"
	}

	t := &model.SegmentTemplate{}
	err := q.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, scheme_id, name, status, created_at, updated_at
		FROM segment_templates
		WHERE id = $1
		%s`, lockClause), id,
	).Scan(&t.ID, &t.SchemeID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapErr(err, "segment template", id)
	}

	items, err := q.loadItems(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	t.Items = items[id]
	return t, nil
}

func (q *pgQuerier) CreateTemplate(ctx context.Context, t *model.SegmentTemplate) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO segment_templates (scheme_id, name, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, t.SchemeID, t.Name, t.Status).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return mapErr(err, "segment template", t.ID)
	}
	if len(t.Items) > 0 {
		return q.insertItems(ctx, t.ID, t.Items)
	}
	return nil
}

func (q *pgQuerier) ListTemplates(ctx context.Context, schemeID int64) ([]model.SegmentTemplate, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, scheme_id, name, status, created_at, updated_at
		FROM segment_templates
		WHERE scheme_id = $1
		ORDER BY id
	`, schemeID)
	if err != nil {
		return nil, fmt.Errorf("list templates of scheme %d: %w", schemeID, err)
	}
	defer rows.Close()

	var (
		out []model.SegmentTemplate
		ids []int64
	)
	for rows.Next() {
		var t model.SegmentTemplate
		if err := rows.Scan(&t.ID, &t.SchemeID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list templates: scan: %w", err)
		}
		out = append(out, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := q.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (q *pgQuerier) UpdateTemplate(ctx context.Context, t *model.SegmentTemplate) error {
	err := q.db.QueryRow(ctx, `
		UPDATE segment_templates
		SET name = $2, status = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, t.ID, t.Name, t.Status).Scan(&t.UpdatedAt)
	return mapErr(err, "segment template", t.ID)
}

func (q *pgQuerier) ReplaceTemplateItems(ctx context.Context, templateID int64, items []model.SegmentTemplateItem) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE segment_templates SET updated_at = now() WHERE id = $1`, templateID,
	)
	if err := expectOne(tag, err, "segment template", templateID); err != nil {
		return err
	}
	if _, err := q.db.Exec(ctx,
		`DELETE FROM segment_template_items WHERE template_id = $1`, templateID,
	); err != nil {
		return fmt.Errorf("replace items of template %d: %w", templateID, err)
	}
	return q.insertItems(ctx, templateID, items)
}

// CountZoneReferences counts bound zones across every scheme. Never cached.
//
// Complexity: O(log N + K) via idx_pricing_zones_template.
func (q *pgQuerier) CountZoneReferences(ctx context.Context, templateID int64) (int, error) {
	var n int
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*)::int FROM pricing_zones WHERE segment_template_id = $1`, templateID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count references of template %d: %w", templateID, err)
	}
	return n, nil
}

func (q *pgQuerier) insertItems(ctx context.Context, templateID int64, items []model.SegmentTemplateItem) error {
	for _, it := range items {
		_, err := q.db.Exec(ctx, `
			INSERT INTO segment_template_items (template_id, ord, min_kg, max_kg, active)
			VALUES ($1, $2, $3, $4, $5)
		`, templateID, it.Ord, it.MinKg, nullDec(it.MaxKg), it.Active)
		if err != nil {
			return mapErr(err, "segment template", templateID)
		}
	}
	return nil
}

// loadItems fetches the items of several templates in one round trip.
func (q *pgQuerier) loadItems(ctx context.Context, templateIDs []int64) (map[int64][]model.SegmentTemplateItem, error) {
	out := make(map[int64][]model.SegmentTemplateItem, len(templateIDs))
	if len(templateIDs) == 0 {
		return out, nil
	}

	rows, err := q.db.Query(ctx, `
		SELECT template_id, ord, min_kg, max_kg, active
		FROM segment_template_items
		WHERE template_id = ANY($1)
		ORDER BY template_id, ord
	`, templateIDs)
	if err != nil {
		return nil, fmt.Errorf("load template items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			templateID int64
			it         model.SegmentTemplateItem
			maxKg      decimal.NullDecimal
		)
		if err := rows.Scan(&templateID, &it.Ord, &it.MinKg, &maxKg, &it.Active); err != nil {
			return nil, fmt.Errorf("load template items: scan: %w", err)
		}
		it.MaxKg = decPtr(maxKg)
		out[templateID] = append(out[templateID], it)
	}
	return out, rows.Err()
}
