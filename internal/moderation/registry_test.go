package moderation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/miahui/internal/logger"
	"github.com/oggyb/miahui/internal/moderation"
	"github.com/oggyb/miahui/internal/prefs"
)

func newRegistry(t *testing.T) (*moderation.Registry, *prefs.Store, *prefs.Memory) {
	t.Helper()
	mem := prefs.NewMemory()
	store := prefs.New(mem, logger.Discard())
	return moderation.Load(context.Background(), store, logger.Discard()), store, mem
}

func TestShieldIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r, _, mem := newRegistry(t)

	r.Shield(ctx, "1")
	r.Shield(ctx, "1")

	assert.Equal(t, []moderation.Entry{{CounterpartID: "1", Kind: moderation.KindShielded}}, r.Blocked())
	assert.Equal(t, 1, mem.Writes(string(prefs.KeyModeration)))
	assert.True(t, r.IsBlocked("1"))
	assert.False(t, r.IsBlacklisted("1"))
	assert.ErrorIs(t, r.Check("1"), moderation.ErrBlocked)
	assert.NoError(t, r.Check("2"))
}

func TestUnblockRemovesFromBoth(t *testing.T) {
	ctx := context.Background()
	r, _, mem := newRegistry(t)

	r.Shield(ctx, "2")
	r.Blacklist(ctx, "2")
	assert.Len(t, r.Blocked(), 1)

	r.Unblock(ctx, "2")
	assert.False(t, r.IsBlocked("2"))
	assert.Empty(t, r.Blocked())

	writes := mem.Writes(string(prefs.KeyModeration))
	r.Unblock(ctx, "never-blocked")
	assert.Equal(t, writes, mem.Writes(string(prefs.KeyModeration)))
}

func TestBlockedOrdering(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRegistry(t)
	r.Shield(ctx, "3")
	r.Blacklist(ctx, "4")
	r.Shield(ctx, "1")

	assert.Equal(t, []moderation.Entry{
		{CounterpartID: "4", Kind: moderation.KindBlacklisted},
		{CounterpartID: "1", Kind: moderation.KindShielded},
		{CounterpartID: "3", Kind: moderation.KindShielded},
	}, r.Blocked())
}

func TestRegistryPersists(t *testing.T) {
	ctx := context.Background()
	r, store, _ := newRegistry(t)
	r.Blacklist(ctx, "4")

	reloaded := moderation.Load(ctx, store, logger.Discard())
	assert.True(t, reloaded.IsBlacklisted("4"))

	reloaded.Reset(ctx)
	again := moderation.Load(ctx, store, logger.Discard())
	require.Empty(t, again.Blocked())
}
