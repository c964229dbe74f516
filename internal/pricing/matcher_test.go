package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/shipquote/internal/model"
)

var shenzhen = model.Destination{Province: "广东省", City: "深圳市", District: "南山区"}

func TestMatch_EndToEndSegment(t *testing.T) {
	snap := guangdongSnapshot()

	hit, err := Match(snap, shenzhen, dec("1.5"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), hit.Zone.ID)
	assert.Equal(t, int64(1000), hit.Bracket.ID)
	assert.Equal(t, 2, hit.Item.Ord)
	assert.Equal(t, TemplateSourceZone, hit.TemplateSource)
}

func TestMatch_SegmentBoundaryIsHalfOpen(t *testing.T) {
	snap := guangdongSnapshot()

	hit, err := Match(snap, shenzhen, dec("1"))
	require.NoError(t, err)
	assert.Equal(t, 2, hit.Item.Ord)

	_, err = Match(snap, shenzhen, dec("2"))
	assert.ErrorIs(t, err, ErrNoBracketConfigured, "2 kg belongs to [2,∞), which has no bracket")
}

func TestSelectZone_TieBreakByLowestID(t *testing.T) {
	zones := []model.Zone{
		{ID: 7, Priority: 1, Members: []model.ZoneMember{{Level: model.LevelCity, Value: "深圳市"}}},
		{ID: 3, Priority: 1, Members: []model.ZoneMember{{Level: model.LevelProvince, Value: "广东省"}}},
		{ID: 5, Priority: 2, Members: []model.ZoneMember{{Level: model.LevelProvince, Value: "广东省"}}},
	}

	hit, err := SelectZone(zones, shenzhen)
	require.NoError(t, err)
	assert.Equal(t, int64(3), hit.Zone.ID)
	assert.Equal(t, []int64{3, 7, 5}, hit.Candidates)
}

func TestSelectZone_LowerPriorityWins(t *testing.T) {
	zones := []model.Zone{
		{ID: 1, Priority: 5, Members: []model.ZoneMember{{Level: model.LevelProvince, Value: "广东省"}}},
		{ID: 2, Priority: 0, Members: []model.ZoneMember{{Level: model.LevelDistrict, Value: "南山区"}}},
	}

	hit, err := SelectZone(zones, shenzhen)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hit.Zone.ID)
	assert.Equal(t, []model.ZoneMember{{Level: model.LevelDistrict, Value: "南山区"}}, hit.MatchedMembers)
}

func TestSelectZone_InactiveZoneStillMatches(t *testing.T) {
	zones := []model.Zone{
		{ID: 1, Active: false, Members: []model.ZoneMember{{Level: model.LevelProvince, Value: "广东省"}}},
	}
	hit, err := SelectZone(zones, shenzhen)
	require.NoError(t, err)
	assert.Equal(t, int64(1), hit.Zone.ID)
}

func TestSelectZone_Deterministic(t *testing.T) {
	zones := []model.Zone{
		{ID: 9, Priority: 0, Members: []model.ZoneMember{{Level: model.LevelProvince, Value: "广东省"}}},
		{ID: 4, Priority: 0, Members: []model.ZoneMember{{Level: model.LevelCity, Value: "深圳市"}}},
		{ID: 6, Priority: 0, Members: []model.ZoneMember{{Level: model.LevelDistrict, Value: "南山区"}}},
	}
	reversed := []model.Zone{zones[2], zones[1], zones[0]}

	for i := 0; i < 20; i++ {
		a, err := SelectZone(zones, shenzhen)
		require.NoError(t, err)
		b, err := SelectZone(reversed, shenzhen)
		require.NoError(t, err)
		assert.Equal(t, int64(4), a.Zone.ID)
		assert.Equal(t, a.Zone.ID, b.Zone.ID)
	}
}

func TestMatch_NoZoneMatch(t *testing.T) {
	_, err := Match(guangdongSnapshot(), model.Destination{Province: "浙江省", City: "杭州市"}, dec("1.5"))
	assert.ErrorIs(t, err, ErrNoZoneMatch)
	assert.Equal(t, "NO_ZONE_MATCH", Reason(err))
}

func TestMatch_SchemeDefaultTemplate(t *testing.T) {
	snap := guangdongSnapshot()
	snap.Zones[0].SegmentTemplateID = nil
	snap.Scheme.DefaultSegmentTemplateID = idPtr(10)

	hit, err := Match(snap, shenzhen, dec("1.5"))
	require.NoError(t, err)
	assert.Equal(t, TemplateSourceSchemeDefault, hit.TemplateSource)
	assert.Equal(t, int64(10), hit.Template.ID)
}

func TestMatch_NoTemplateBound(t *testing.T) {
	snap := guangdongSnapshot()
	snap.Zones[0].SegmentTemplateID = nil

	_, err := Match(snap, shenzhen, dec("1.5"))
	assert.ErrorIs(t, err, ErrNoTemplateBound)

	snap.Zones[0].SegmentTemplateID = idPtr(999)
	_, err = Match(snap, shenzhen, dec("1.5"))
	assert.ErrorIs(t, err, ErrNoTemplateBound)
}

func TestMatch_NoBracketMatch(t *testing.T) {
	snap := guangdongSnapshot()
	tpl := snap.Templates[10]
	tpl.Items = tpl.Items[:2] // broken partition: nothing above 2 kg
	snap.Templates[10] = tpl

	_, err := Match(snap, shenzhen, dec("3"))
	assert.ErrorIs(t, err, ErrNoBracketMatch)
}

func TestMatch_DisabledSegment(t *testing.T) {
	snap := guangdongSnapshot()
	snap.Templates[10].Items[1].Active = false

	_, err := Match(snap, shenzhen, dec("1.5"))
	assert.ErrorIs(t, err, ErrNoBracketMatch)
}

func TestMatch_NoBracketConfigured(t *testing.T) {
	_, err := Match(guangdongSnapshot(), shenzhen, dec("0.5"))
	assert.ErrorIs(t, err, ErrNoBracketConfigured)
	assert.Equal(t, "NO_BRACKET_CONFIGURED", Reason(err))
}

func TestMatch_BracketOfOtherZoneIgnored(t *testing.T) {
	snap := guangdongSnapshot()
	snap.Brackets[0].ZoneID = 101

	_, err := Match(snap, shenzhen, dec("1.5"))
	assert.ErrorIs(t, err, ErrNoBracketConfigured)
}
