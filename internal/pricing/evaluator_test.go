package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/shipquote/internal/model"
)

func TestEvaluateDestAdjustments_CityBeatsProvince(t *testing.T) {
	adjs := []model.DestAdjustment{
		{ID: 1, Scope: model.ScopeProvince, Province: "广东省", Amount: dec("5"), Active: true},
		{ID: 2, Scope: model.ScopeCity, Province: "广东省", City: "深圳市", Amount: dec("8"), Active: true},
	}

	got := EvaluateDestAdjustments(adjs, shenzhen)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
	assert.True(t, got[0].Amount.Equal(dec("8")), "contribution must be 8, not 13")
	assert.Equal(t, []int64{1}, got[0].SupersededIDs)
}

func TestEvaluateDestAdjustments_ProvinceOnlyForOtherCity(t *testing.T) {
	adjs := []model.DestAdjustment{
		{ID: 1, Scope: model.ScopeProvince, Province: "广东省", Amount: dec("5"), Active: true},
		{ID: 2, Scope: model.ScopeCity, Province: "广东省", City: "深圳市", Amount: dec("8"), Active: true},
	}

	got := EvaluateDestAdjustments(adjs, model.Destination{Province: "广东省", City: "广州市"})
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Empty(t, got[0].SupersededIDs)
}

func TestEvaluateDestAdjustments_DuplicatesResolveToLowestID(t *testing.T) {
	adjs := []model.DestAdjustment{
		{ID: 9, Scope: model.ScopeProvince, Province: "广东省", Amount: dec("7"), Active: true},
		{ID: 4, Scope: model.ScopeProvince, Province: "广东省", Amount: dec("3"), Active: true},
	}

	got := EvaluateDestAdjustments(adjs, shenzhen)
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].ID)
	assert.Equal(t, []int64{9}, got[0].SupersededIDs)
}

func TestEvaluateDestAdjustments_SkipsInactiveAndForeign(t *testing.T) {
	adjs := []model.DestAdjustment{
		{ID: 1, Scope: model.ScopeCity, Province: "广东省", City: "深圳市", Amount: dec("8"), Active: false},
		{ID: 2, Scope: model.ScopeProvince, Province: "浙江省", Amount: dec("5"), Active: true},
		{ID: 3, Scope: model.ScopeCity, Province: "浙江省", City: "深圳市", Amount: dec("6"), Active: true},
	}

	got := EvaluateDestAdjustments(adjs, shenzhen)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEvaluateSurcharges(t *testing.T) {
	rules := []model.Surcharge{
		{
			ID: 3, Name: "remote", Active: true,
			Condition: model.SurchargeCondition{Dest: &model.DestPredicate{City: []string{"深圳市"}}},
			Detail:    model.SurchargeDetail{Kind: model.SurchargeFlat, Amount: decPtr("2")},
		},
		{
			ID: 1, Name: "fuel", Active: true,
			Detail: model.SurchargeDetail{Kind: model.SurchargePerKg, RatePerKg: decPtr("0.5")},
		},
		{
			ID: 2, Name: "fragile", Active: true,
			Condition: model.SurchargeCondition{FlagAny: []string{"fragile", "liquid"}},
			Detail:    model.SurchargeDetail{Kind: model.SurchargeFlat, Amount: decPtr("4")},
		},
		{
			ID: 4, Name: "disabled", Active: false,
			Detail: model.SurchargeDetail{Kind: model.SurchargeFlat, Amount: decPtr("100")},
		},
		{
			ID: 5, Name: "beijing", Active: true,
			Condition: model.SurchargeCondition{Dest: &model.DestPredicate{Province: []string{"北京市"}}},
			Detail:    model.SurchargeDetail{Kind: model.SurchargeFlat, Amount: decPtr("9")},
		},
	}

	lines, reasons := EvaluateSurcharges(rules, shenzhen, []string{"liquid"}, dec("3"))
	assert.Empty(t, reasons)
	require.Len(t, lines, 3)

	assert.Equal(t, int64(1), lines[0].ID)
	assert.True(t, lines[0].Amount.Equal(dec("1.5")))
	assert.Equal(t, []string{"dest=*"}, lines[0].MatchedOn)

	assert.Equal(t, int64(2), lines[1].ID)
	assert.Equal(t, []string{"dest=*", "flag=liquid"}, lines[1].MatchedOn)

	assert.Equal(t, int64(3), lines[2].ID)
	assert.Equal(t, []string{"city=深圳市"}, lines[2].MatchedOn)
}

func TestEvaluateSurcharges_FlagRequired(t *testing.T) {
	rules := []model.Surcharge{{
		ID: 1, Name: "fragile", Active: true,
		Condition: model.SurchargeCondition{FlagAny: []string{"fragile"}},
		Detail:    model.SurchargeDetail{Kind: model.SurchargeFlat, Amount: decPtr("4")},
	}}

	lines, _ := EvaluateSurcharges(rules, shenzhen, nil, dec("1"))
	assert.Empty(t, lines)
}

func TestEvaluateSurcharges_Table(t *testing.T) {
	table := model.SurchargeDetail{Kind: model.SurchargeTable, Tiers: []model.SurchargeTier{
		{MaxKg: decPtr("1"), Amount: dec("1")},
		{MaxKg: decPtr("5"), Amount: dec("3")},
		{Amount: dec("6")},
	}}
	rules := []model.Surcharge{{ID: 1, Name: "handling", Active: true, Detail: table}}

	for weight, want := range map[string]string{"0.5": "1", "1": "3", "4.99": "3", "5": "6", "80": "6"} {
		lines, _ := EvaluateSurcharges(rules, shenzhen, nil, dec(weight))
		require.Len(t, lines, 1, weight)
		assert.True(t, lines[0].Amount.Equal(dec(want)), "weight %s: got %s", weight, lines[0].Amount)
	}
}

func TestEvaluateSurcharges_TableWithoutCoveringTierIsSkipped(t *testing.T) {
	rules := []model.Surcharge{{ID: 1, Name: "handling", Active: true, Detail: model.SurchargeDetail{
		Kind:  model.SurchargeTable,
		Tiers: []model.SurchargeTier{{MaxKg: decPtr("1"), Amount: dec("1")}},
	}}}

	lines, reasons := EvaluateSurcharges(rules, shenzhen, nil, dec("2"))
	assert.Empty(t, lines)
	assert.Len(t, reasons, 1)
}
