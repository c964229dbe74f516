package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/shipquote/internal/model"
)

func TestAssemble_FlatBracket(t *testing.T) {
	q, err := Assemble(guangdongSnapshot(), model.QuoteRequest{
		SchemeID:     1,
		Dest:         model.Destination{Province: "广东省", City: "深圳市"},
		RealWeightKg: dec("1.5"),
	})
	require.NoError(t, err)

	assert.Equal(t, model.QuoteOK, q.QuoteStatus)
	require.NotNil(t, q.TotalAmount)
	assert.Equal(t, "20.00", q.TotalAmount.String())
	assert.Equal(t, "CNY", q.Currency)
	assert.Equal(t, int64(100), q.Zone.ID)
	assert.Equal(t, TemplateSourceZone, q.Zone.TemplateSource)
	assert.Equal(t, int64(1000), q.Bracket.ID)
	assert.Equal(t, model.ModeFlat, q.Bracket.PricingMode)
	assert.Empty(t, q.Breakdown.DestAdjustments)
	assert.Empty(t, q.Breakdown.Surcharges)
	assert.NotNil(t, q.Reasons)
	assert.Empty(t, q.Reasons)
}

func TestAssemble_AddsAdjustmentsAndSurcharges(t *testing.T) {
	snap := guangdongSnapshot()
	snap.DestAdjustments = []model.DestAdjustment{
		{ID: 1, Scope: model.ScopeProvince, Province: "广东省", Amount: dec("5"), Active: true},
		{ID: 2, Scope: model.ScopeCity, Province: "广东省", City: "深圳市", Amount: dec("8"), Active: true},
	}
	snap.Surcharges = []model.Surcharge{{
		ID: 1, Name: "fuel", Active: true,
		Detail: model.SurchargeDetail{Kind: model.SurchargePerKg, RatePerKg: decPtr("0.333")},
	}}

	q, err := Assemble(snap, model.QuoteRequest{Dest: shenzhen, RealWeightKg: dec("1.5")})
	require.NoError(t, err)

	// 20 + 8 + 0.4995 = 28.4995
	require.NotNil(t, q.TotalAmount)
	assert.Equal(t, "28.50", q.TotalAmount.String())
	s := q.Breakdown.Summary
	assert.Equal(t, "20.00", s.BaseAmount.String())
	assert.Equal(t, "8.00", s.DestAdjustmentAmount.String())
	assert.Equal(t, "0.50", s.SurchargeAmount.String())
	assert.Equal(t, "8.50", s.ExtraAmount.String())
}

func TestAssemble_RoundsOnceAtTheEnd(t *testing.T) {
	snap := guangdongSnapshot()
	snap.Brackets[0].Pricing = model.LinearTotalPricing{BaseAmount: dec("0"), RatePerKg: dec("1.003")}
	snap.Surcharges = []model.Surcharge{{
		ID: 1, Name: "fuel", Active: true,
		Detail: model.SurchargeDetail{Kind: model.SurchargePerKg, RatePerKg: decPtr("0.003")},
	}}

	// base 1.5045 and surcharge 0.0045 would round to 1.50 + 0.00; the sum 1.509 rounds to 1.51.
	q, err := Assemble(snap, model.QuoteRequest{Dest: shenzhen, RealWeightKg: dec("1.5")})
	require.NoError(t, err)
	require.NotNil(t, q.TotalAmount)
	assert.Equal(t, "1.51", q.TotalAmount.String())
}

func TestAssemble_ManualQuote(t *testing.T) {
	snap := guangdongSnapshot()
	snap.Brackets[0].Pricing = model.ManualQuotePricing{}

	q, err := Assemble(snap, model.QuoteRequest{Dest: shenzhen, RealWeightKg: dec("1.5")})
	require.NoError(t, err)

	assert.Equal(t, model.QuoteManualRequired, q.QuoteStatus)
	assert.Nil(t, q.TotalAmount)
	assert.Nil(t, q.Breakdown.Summary.TotalAmount)
	assert.Nil(t, q.Breakdown.Base.Amount)
	assert.Equal(t, int64(100), q.Zone.ID)
	assert.Equal(t, int64(1000), q.Bracket.ID)
	assert.True(t, q.Weight.BillableKg.Equal(dec("1.5")))
	assert.NotEmpty(t, q.Reasons)
}

func TestAssemble_NoZoneMatchIsAnError(t *testing.T) {
	q, err := Assemble(guangdongSnapshot(), model.QuoteRequest{
		Dest:         model.Destination{Province: "浙江省"},
		RealWeightKg: dec("1.5"),
	})
	assert.ErrorIs(t, err, ErrNoZoneMatch)
	assert.Nil(t, q)
}

func TestAssemble_InvalidWeight(t *testing.T) {
	for _, w := range []string{"0", "-1"} {
		_, err := Assemble(guangdongSnapshot(), model.QuoteRequest{Dest: shenzhen, RealWeightKg: dec(w)})
		assert.ErrorIs(t, err, ErrInvalidWeight, w)
	}
}

func TestAssemble_VolumetricWeightSelectsBracket(t *testing.T) {
	snap := guangdongSnapshot()
	snap.Brackets = append(snap.Brackets, model.Bracket{
		ID:      1001,
		ZoneID:  100,
		Range:   rng("2", nil),
		Pricing: model.StepOverPricing{BaseKg: dec("2"), BaseAmount: dec("25"), RatePerKg: dec("4")},
	})

	// 40×30×20 / 8000 = 3 kg beats the 0.8 kg real weight.
	q, err := Assemble(snap, model.QuoteRequest{
		Dest:         shenzhen,
		RealWeightKg: dec("0.8"),
		LengthCm:     decPtr("40"),
		WidthCm:      decPtr("30"),
		HeightCm:     decPtr("20"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1001), q.Bracket.ID)
	assert.True(t, q.Weight.DimsApplied)
	assert.Equal(t, "29.00", q.TotalAmount.String())
}

func TestAssemble_InactiveSchemeNoted(t *testing.T) {
	snap := guangdongSnapshot()
	snap.Scheme.Active = false

	q, err := Assemble(snap, model.QuoteRequest{Dest: shenzhen, RealWeightKg: dec("1.5")})
	require.NoError(t, err)
	assert.Len(t, q.Reasons, 1)
}
