package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/miahui/internal/db"
	"github.com/oggyb/miahui/internal/logger"
	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/prefs"
	"github.com/oggyb/miahui/internal/repository"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&db.Preference{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPreferenceRepository(setupTestDB(t))

	_, err := repo.Get(ctx, "walletBalance")
	assert.ErrorIs(t, err, prefs.ErrNotFound)

	require.NoError(t, repo.Set(ctx, "walletBalance", "1"))
	// overwrite keeps a single row
	require.NoError(t, repo.Set(ctx, "walletBalance", "2"))

	v, err := repo.Get(ctx, "walletBalance")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"walletBalance"}, keys)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPreferenceRepository(setupTestDB(t))

	require.NoError(t, repo.Set(ctx, "a", "1"))
	require.NoError(t, repo.Set(ctx, "b", "2"))
	require.NoError(t, repo.Clear(ctx))

	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestAsPrefsBackend(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	store := prefs.New(repository.NewPreferenceRepository(dbase), logger.Discard())

	require.NoError(t, store.Save(ctx, prefs.KeyMembershipTier, model.TierElite))
	assert.Equal(t, model.TierElite, prefs.Load(ctx, store, prefs.KeyMembershipTier, model.TierNone))

	// corrupt row written behind the store's back
	require.NoError(t, dbase.Model(&db.Preference{}).
		Where("`key` = ?", string(prefs.KeyMembershipTier)).
		Update("value", "garbage").Error)
	assert.Equal(t, model.TierNone, prefs.Load(ctx, store, prefs.KeyMembershipTier, model.TierNone))
}
