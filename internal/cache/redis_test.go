package cache_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/miahui/internal/cache"
	"github.com/oggyb/miahui/internal/config"
	"github.com/oggyb/miahui/internal/logger"
	"github.com/oggyb/miahui/internal/prefs"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Store.KeyPrefix = "test:pref:"

	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(context.Background()))
	return c, mr
}

func TestGetSet(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	_, err := c.Get(ctx, "trialCredits")
	assert.ErrorIs(t, err, prefs.ErrNotFound)

	require.NoError(t, c.Set(ctx, "trialCredits", "4"))
	v, err := c.Get(ctx, "trialCredits")
	require.NoError(t, err)
	assert.Equal(t, "4", v)

	// stored under the prefix, no TTL
	assert.True(t, mr.Exists("test:pref:trialCredits"))
	assert.Zero(t, mr.TTL("test:pref:trialCredits"))
}

func TestClearOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	require.NoError(t, c.Set(ctx, "a", "1"))
	require.NoError(t, c.Set(ctx, "b", "2"))
	require.NoError(t, mr.Set("unrelated", "keep"))

	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, c.Clear(ctx))

	keys, err = c.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.True(t, mr.Exists("unrelated"))

	// clearing an empty prefix is fine
	require.NoError(t, c.Clear(ctx))
}

func TestAsPrefsBackend(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)
	store := prefs.New(c, logger.Discard())

	require.NoError(t, store.Save(ctx, prefs.KeyTeenMode, true))
	assert.True(t, prefs.Load(ctx, store, prefs.KeyTeenMode, false))

	require.NoError(t, mr.Set("test:pref:teenModeEnabled", "yes please"))
	assert.False(t, prefs.Load(ctx, store, prefs.KeyTeenMode, false))
}
