package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/shipquote/internal/model"
)

func TestChargeableWeight(t *testing.T) {
	tests := []struct {
		name        string
		req         model.QuoteRequest
		want        string
		dimsApplied bool
		reasons     int
	}{
		{
			name: "real weight only",
			req:  model.QuoteRequest{RealWeightKg: dec("1.5")},
			want: "1.5", dimsApplied: false,
		},
		{
			name: "volumetric wins",
			req: model.QuoteRequest{RealWeightKg: dec("1"),
				LengthCm: decPtr("40"), WidthCm: decPtr("30"), HeightCm: decPtr("20")},
			want: "3", dimsApplied: true,
		},
		{
			name: "real wins over volumetric",
			req: model.QuoteRequest{RealWeightKg: dec("5"),
				LengthCm: decPtr("40"), WidthCm: decPtr("30"), HeightCm: decPtr("20")},
			want: "5", dimsApplied: true,
		},
		{
			name: "partial triple ignored",
			req: model.QuoteRequest{RealWeightKg: dec("1"),
				LengthCm: decPtr("400"), WidthCm: decPtr("300")},
			want: "1", dimsApplied: false, reasons: 1,
		},
		{
			name: "zero dimension ignored",
			req: model.QuoteRequest{RealWeightKg: dec("1"),
				LengthCm: decPtr("400"), WidthCm: decPtr("300"), HeightCm: decPtr("0")},
			want: "1", dimsApplied: false, reasons: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reasons := ChargeableWeight(model.DefaultBillableWeightRule(), tt.req)
			assert.True(t, got.BillableKg.Equal(dec(tt.want)), "billable = %s", got.BillableKg)
			assert.Equal(t, tt.dimsApplied, got.DimsApplied)
			assert.Len(t, reasons, tt.reasons)
			if !tt.dimsApplied {
				assert.Nil(t, got.VolumetricKg)
			}
		})
	}
}

func TestChargeableWeight_CeilRounding(t *testing.T) {
	rule := model.DefaultBillableWeightRule()
	rule.Rounding = model.WeightRounding{Mode: model.RoundingCeil, StepKg: dec("0.5")}

	got, _ := ChargeableWeight(rule, model.QuoteRequest{RealWeightKg: dec("1.2")})
	assert.True(t, got.BillableKg.Equal(dec("1.5")))
	assert.True(t, got.RealKg.Equal(dec("1.2")))
}

func TestChargeableWeight_CustomDivisor(t *testing.T) {
	rule := model.DefaultBillableWeightRule()
	rule.VolumetricDivisor = dec("6000")

	got, _ := ChargeableWeight(rule, model.QuoteRequest{RealWeightKg: dec("1"),
		LengthCm: decPtr("30"), WidthCm: decPtr("20"), HeightCm: decPtr("20")})
	require.NotNil(t, got.VolumetricKg)
	assert.True(t, got.VolumetricKg.Equal(dec("2")))
	assert.True(t, got.BillableKg.Equal(dec("2")))
}
