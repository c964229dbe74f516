package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/shipquote/internal/model"
)

func TestCalculateBase(t *testing.T) {
	tests := []struct {
		name    string
		pricing model.Pricing
		weight  string
		want    string
	}{
		{"flat ignores weight", model.FlatPricing{Amount: dec("20")}, "7.3", "20.00"},
		{"linear total", model.LinearTotalPricing{BaseAmount: dec("10"), RatePerKg: dec("2")}, "3", "16.00"},
		{"linear total fractional", model.LinearTotalPricing{BaseAmount: dec("1.005"), RatePerKg: dec("0.333")}, "3", "2.00"},
		{"step over above base", model.StepOverPricing{BaseKg: dec("1"), BaseAmount: dec("8"), RatePerKg: dec("3")}, "2.5", "12.50"},
		{"step over below base", model.StepOverPricing{BaseKg: dec("1"), BaseAmount: dec("8"), RatePerKg: dec("3")}, "0.4", "8.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateBase(model.Bracket{Pricing: tt.pricing}, dec(tt.weight))
			require.NotNil(t, got.Amount)
			assert.Equal(t, tt.pricing.Mode(), got.Kind)
			assert.Equal(t, tt.want, RoundMoney(*got.Amount).String())
			assert.NotEmpty(t, got.Formula)
		})
	}
}

func TestCalculateBase_KeepsUnroundedAmount(t *testing.T) {
	got := CalculateBase(model.Bracket{
		Pricing: model.LinearTotalPricing{BaseAmount: dec("0"), RatePerKg: dec("1.111")},
	}, dec("3"))
	require.NotNil(t, got.Amount)
	assert.True(t, got.Amount.Equal(dec("3.333")))
}

func TestCalculateBase_ManualQuote(t *testing.T) {
	got := CalculateBase(model.Bracket{Pricing: model.ManualQuotePricing{}}, dec("4"))
	assert.Equal(t, model.ModeManualQuote, got.Kind)
	assert.Nil(t, got.Amount)
	assert.NotEmpty(t, got.Message)
	assert.True(t, got.BillableWeightKg.Equal(dec("4")))
}

func TestRoundMoney_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "0.13", RoundMoney(dec("0.125")).String())
	assert.Equal(t, "0.12", RoundMoney(dec("0.1249")).String())
	assert.Equal(t, "16.00", RoundMoney(dec("16")).String())
}
