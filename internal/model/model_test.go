package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oggyb/miahui/internal/model"
)

func TestTierOrdering(t *testing.T) {
	assert.Less(t, model.TierNone.Rank(), model.TierBasic.Rank())
	assert.Less(t, model.TierBasic.Rank(), model.TierPro.Rank())
	assert.Less(t, model.TierPro.Rank(), model.TierElite.Rank())
	assert.Equal(t, -1, model.Tier("GOLD").Rank())

	assert.False(t, model.TierNone.Paid())
	assert.True(t, model.TierBasic.Paid())
	assert.Error(t, model.Tier("GOLD").Validate())
}

func TestDeliveryStatusBefore(t *testing.T) {
	assert.True(t, model.StatusSending.Before(model.StatusSent))
	assert.True(t, model.StatusSent.Before(model.StatusRead))
	assert.False(t, model.StatusRead.Before(model.StatusSent))
	assert.False(t, model.StatusSent.Before(model.StatusSent))
}

func TestMessageVisibleHidesRecalledPayload(t *testing.T) {
	m := model.Message{ID: "a", Text: "hi", GiftID: "g1", AuthorIsSelf: true, Recalled: true}

	v := m.Visible()
	assert.Equal(t, "a", v.ID)
	assert.True(t, v.AuthorIsSelf)
	assert.Empty(t, v.Text)
	assert.Empty(t, v.GiftID)

	// original untouched
	assert.Equal(t, "hi", m.Text)
}

func TestProfileValidate(t *testing.T) {
	p := model.Profile{DisplayName: "阿正", Age: 26, InterestTags: []string{"音乐", "摄影"}}
	assert.NoError(t, p.Validate())

	p.InterestTags = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}
	assert.ErrorIs(t, p.Validate(), model.ErrTooManyTags)

	p.InterestTags = []string{"a", "a"}
	assert.ErrorIs(t, p.Validate(), model.ErrDuplicateTag)

	p.InterestTags = nil
	p.DisplayName = "  "
	assert.ErrorIs(t, p.Validate(), model.ErrEmptyDisplayName)

	p.DisplayName = "x"
	p.Age = 12
	assert.ErrorIs(t, p.Validate(), model.ErrAgeOutOfRange)
}

func TestProfileCloneIsDeep(t *testing.T) {
	p := model.Profile{PhotoRefs: []string{"p1"}, InterestTags: []string{"音乐"}}
	c := p.Clone()
	c.PhotoRefs[0] = "changed"
	c.InterestTags[0] = "changed"

	assert.Equal(t, "p1", p.PhotoRefs[0])
	assert.Equal(t, "音乐", p.InterestTags[0])
}
