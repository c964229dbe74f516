package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/internal/repository"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func idPtr(id int64) *int64 { return &id }

// items builds a partition from its interior boundaries: items("1", "2")
// yields [0,1), [1,2), [2,∞).
func items(bounds ...string) []model.SegmentTemplateItem {
	out := make([]model.SegmentTemplateItem, 0, len(bounds)+1)
	lower := "0"
	for i, b := range bounds {
		out = append(out, model.SegmentTemplateItem{Ord: i + 1, MinKg: dec(lower), MaxKg: decPtr(b), Active: true})
		lower = b
	}
	out = append(out, model.SegmentTemplateItem{Ord: len(bounds) + 1, MinKg: dec(lower), Active: true})
	return out
}

type env struct {
	store     *repository.MemoryStore
	catalog   *CatalogService
	templates *TemplateService
	quotes    *QuoteService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := repository.NewMemoryStore()
	log := zap.NewNop()
	return &env{
		store:     store,
		catalog:   NewCatalogService(store, log),
		templates: NewTemplateService(store, NewKeyedMutex(), time.Second, log),
		quotes:    NewQuoteService(store, 10, log),
	}
}

func (e *env) scheme(t *testing.T, name string) *model.PricingScheme {
	t.Helper()
	sc, err := e.catalog.CreateScheme(context.Background(), model.PricingScheme{Name: name, Active: true})
	require.NoError(t, err)
	return sc
}

// published creates and publishes a [0,1) [1,2) [2,∞) template.
func (e *env) published(t *testing.T, schemeID int64) *model.TemplateView {
	t.Helper()
	ctx := context.Background()
	v, err := e.templates.CreateDraft(ctx, schemeID, "standard", items("1", "2"))
	require.NoError(t, err)
	v, err = e.templates.Publish(ctx, v.ID)
	require.NoError(t, err)
	return v
}

func (e *env) zone(t *testing.T, schemeID int64, province string) *model.Zone {
	t.Helper()
	z, err := e.catalog.CreateZone(context.Background(), schemeID, model.Zone{
		Name:    province,
		Active:  true,
		Members: []model.ZoneMember{{Level: model.LevelProvince, Value: province}},
	})
	require.NoError(t, err)
	return z
}

// guangdong is a fully configured scheme: one 广东省 zone bound to a
// published template, with [1,2) priced flat 20.
func (e *env) guangdong(t *testing.T) (*model.PricingScheme, *model.TemplateView, *model.Zone) {
	t.Helper()
	ctx := context.Background()
	sc := e.scheme(t, "express")
	tpl := e.published(t, sc.ID)
	z := e.zone(t, sc.ID, "广东省")

	z, err := e.templates.BindZoneTemplate(ctx, z.ID, idPtr(tpl.ID))
	require.NoError(t, err)
	_, err = e.catalog.UpsertBrackets(ctx, z.ID, []model.Bracket{{
		Range:   model.WeightRange{MinKg: dec("1"), MaxKg: decPtr("2")},
		Pricing: model.FlatPricing{Amount: dec("20")},
	}})
	require.NoError(t, err)
	return sc, tpl, z
}
