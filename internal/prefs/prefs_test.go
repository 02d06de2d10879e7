package prefs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/miahui/internal/logger"
	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/prefs"
)

func newStore(t *testing.T) (*prefs.Store, *prefs.Memory) {
	t.Helper()
	mem := prefs.NewMemory()
	return prefs.New(mem, logger.Discard()), mem
}

func TestLoad_DefaultWhenAbsent(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	assert.Equal(t, int64(1000), prefs.Load(ctx, s, prefs.KeyWalletBalance, int64(1000)))
}

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	s, mem := newStore(t)

	prefsIn := model.NotificationPrefs{NewMsg: false, Sound: true, Vibration: true}
	require.NoError(t, s.Save(ctx, prefs.KeyNotificationPrefs, prefsIn))

	got := prefs.Load(ctx, s, prefs.KeyNotificationPrefs, model.DefaultNotificationPrefs())
	assert.Equal(t, prefsIn, got)
	assert.Equal(t, 1, mem.Writes(string(prefs.KeyNotificationPrefs)))
}

func TestLoad_MalformedFallsBack(t *testing.T) {
	ctx := context.Background()
	s, mem := newStore(t)

	cases := map[string]string{
		"not json":        "{{{",
		"legacy raw":      "1500",
		"foreign version": `{"v":7,"data":1500}`,
		"wrong type":      `{"v":1,"data":"lots"}`,
		"empty data":      `{"v":1}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			mem.Put(string(prefs.KeyWalletBalance), raw)
			assert.Equal(t, int64(1000), prefs.Load(ctx, s, prefs.KeyWalletBalance, int64(1000)))
		})
	}
}

func TestLoad_ValidatorRejects(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	require.NoError(t, s.Save(ctx, prefs.KeyMembershipTier, "GOLD"))
	assert.Equal(t, model.TierNone, prefs.Load(ctx, s, prefs.KeyMembershipTier, model.TierNone))

	require.NoError(t, s.Save(ctx, prefs.KeyMembershipTier, model.TierPro))
	assert.Equal(t, model.TierPro, prefs.Load(ctx, s, prefs.KeyMembershipTier, model.TierNone))
}

func TestLoad_BackendErrorFallsBack(t *testing.T) {
	ctx := context.Background()
	s, mem := newStore(t)
	mem.WithError(errors.New("disk gone"))

	assert.Equal(t, 5, prefs.Load(ctx, s, prefs.KeyTrialCredits, 5))
	assert.Error(t, s.Save(ctx, prefs.KeyTrialCredits, 4))
}

func TestClearRemovesEveryKey(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	require.NoError(t, s.Save(ctx, prefs.KeyTrialCredits, 3))
	require.NoError(t, s.Save(ctx, prefs.KeyTeenMode, true))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"teenModeEnabled", "trialCredits"}, keys)

	require.NoError(t, s.Clear(ctx))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestNilStore(t *testing.T) {
	ctx := context.Background()
	var s *prefs.Store

	assert.NoError(t, s.Save(ctx, prefs.KeyTeenMode, true))
	assert.False(t, prefs.Load(ctx, s, prefs.KeyTeenMode, false))
	assert.NoError(t, s.Clear(ctx))
}
