package region

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shiva/shipquote/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims", "  广东省 ", "广东省"},
		{"collapses inner whitespace", "New   York\tCity", "new york city"},
		{"folds case", "ShenZhen", "shenzhen"},
		{"full-width latin", "ＡＢＣ", "abc"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestEqual_EmptyNeverMatches(t *testing.T) {
	assert.False(t, Equal("", ""))
	assert.False(t, Equal("  ", ""))
	assert.True(t, Equal("深圳市", " 深圳市"))
}

func TestContainsValue(t *testing.T) {
	values := []string{"广东省", "Zhejiang"}
	assert.True(t, ContainsValue(values, "zhejiang "))
	assert.True(t, ContainsValue(values, "广东省"))
	assert.False(t, ContainsValue(values, "江苏省"))
	assert.False(t, ContainsValue(values, ""))
}

func TestMatchedMembers(t *testing.T) {
	dest := model.Destination{Province: "广东省", City: "深圳市", District: "南山区"}
	members := []model.ZoneMember{
		{Level: model.LevelProvince, Value: "广东省"},
		{Level: model.LevelCity, Value: "广州市"},
		{Level: model.LevelDistrict, Value: "南山区"},
		{Level: model.LevelCity, Value: "广东省"}, // right value, wrong level
	}

	got := MatchedMembers(dest, members)
	assert.Equal(t, []model.ZoneMember{members[0], members[2]}, got)
}

func TestField_UnknownLevel(t *testing.T) {
	assert.Equal(t, "", Field(model.Destination{Province: "x"}, model.MemberLevel("street")))
}
