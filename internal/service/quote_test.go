package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/internal/pricing"
	"github.com/shiva/shipquote/internal/repository"
)

var shenzhen = model.Destination{Province: "广东省", City: "深圳市", District: "南山区"}

func TestQuote_EndToEnd(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sc, tpl, z := e.guangdong(t)

	q, err := e.quotes.Quote(ctx, model.QuoteRequest{
		SchemeID:     sc.ID,
		WarehouseID:  7,
		Dest:         shenzhen,
		RealWeightKg: dec("1.2"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.QuoteOK, q.QuoteStatus)
	require.NotNil(t, q.TotalAmount)
	assert.Equal(t, "20.00", q.TotalAmount.StringFixed(2))
	assert.Equal(t, z.ID, q.Zone.ID)
	assert.Equal(t, tpl.ID, q.Zone.SegmentTemplateID)
	assert.Equal(t, int64(7), q.WarehouseID)
	assert.Equal(t, "CNY", q.Currency)
}

func TestQuote_SeesCommittedConfiguration(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sc, _, _ := e.guangdong(t)
	req := model.QuoteRequest{SchemeID: sc.ID, Dest: shenzhen, RealWeightKg: dec("1.5")}

	_, err := e.catalog.UpsertDestAdjustments(ctx, sc.ID, []model.DestAdjustment{
		{Scope: model.ScopeCity, Province: "广东省", City: "深圳市", Amount: dec("3"), Active: true},
	})
	require.NoError(t, err)

	q, err := e.quotes.Quote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "23.00", q.TotalAmount.StringFixed(2))
	require.Len(t, q.Breakdown.DestAdjustments, 1)
}

func TestQuote_Failures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sc, _, _ := e.guangdong(t)

	_, err := e.quotes.Quote(ctx, model.QuoteRequest{SchemeID: sc.ID,
		Dest: model.Destination{Province: "浙江省", City: "杭州市"}, RealWeightKg: dec("1")})
	assert.ErrorIs(t, err, pricing.ErrNoZoneMatch)

	_, err = e.quotes.Quote(ctx, model.QuoteRequest{SchemeID: sc.ID, Dest: shenzhen, RealWeightKg: dec("0.5")})
	assert.ErrorIs(t, err, pricing.ErrNoBracketConfigured)

	_, err = e.quotes.Quote(ctx, model.QuoteRequest{SchemeID: sc.ID, Dest: shenzhen, RealWeightKg: dec("0")})
	assert.ErrorIs(t, err, pricing.ErrInvalidWeight)

	_, err = e.quotes.Quote(ctx, model.QuoteRequest{SchemeID: 404, Dest: shenzhen, RealWeightKg: dec("1")})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = e.quotes.Quote(ctx, model.QuoteRequest{Dest: shenzhen, RealWeightKg: dec("1")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.quotes.Quote(ctx, model.QuoteRequest{SchemeID: sc.ID, Dest: shenzhen, RealWeightKg: dec("1"),
		LengthCm: decPtr("-1"), WidthCm: decPtr("1"), HeightCm: decPtr("1")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestQuoteBatch_PreservesOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sc, _, _ := e.guangdong(t)

	reqs := []model.QuoteRequest{
		{SchemeID: sc.ID, Dest: shenzhen, RealWeightKg: dec("1.5")},
		{SchemeID: sc.ID, Dest: model.Destination{Province: "北京市"}, RealWeightKg: dec("1.5")},
		{SchemeID: 404, Dest: shenzhen, RealWeightKg: dec("1.5")},
		{SchemeID: sc.ID, Dest: shenzhen, RealWeightKg: dec("-1")},
		{SchemeID: sc.ID, Dest: shenzhen, RealWeightKg: dec("1.9")},
	}
	results, err := e.quotes.QuoteBatch(ctx, reqs)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))

	require.NoError(t, results[0].Err)
	assert.Equal(t, "20.00", results[0].Quote.TotalAmount.StringFixed(2))
	assert.ErrorIs(t, results[1].Err, pricing.ErrNoZoneMatch)
	assert.Nil(t, results[1].Quote)
	assert.ErrorIs(t, results[2].Err, repository.ErrNotFound)
	assert.ErrorIs(t, results[3].Err, pricing.ErrInvalidWeight)
	require.NoError(t, results[4].Err)
	assert.True(t, results[4].Quote.Weight.RealKg.Equal(dec("1.9")))
}

func TestQuoteBatch_Limit(t *testing.T) {
	e := newEnv(t)
	reqs := make([]model.QuoteRequest, e.quotes.BatchLimit()+1)

	_, err := e.quotes.QuoteBatch(context.Background(), reqs)
	assert.ErrorIs(t, err, ErrBatchTooLarge)

	results, err := e.quotes.QuoteBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
