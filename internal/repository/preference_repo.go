package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/miahui/internal/db"
	"github.com/oggyb/miahui/internal/prefs"
)

// PreferenceRepository stores preferences in the `preferences` table.
// It satisfies prefs.Backend.
type PreferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a new repository bound to the given DB connection.
func NewPreferenceRepository(database *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: database}
}

// Get returns the raw value for key, or prefs.ErrNotFound.
func (r *PreferenceRepository) Get(ctx context.Context, key string) (string, error) {
	var p db.Preference
	err := r.db.WithContext(ctx).Where("`key` = ?", key).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", prefs.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return p.Value, nil
}

// Set inserts or overwrites key.
//
// Behavior:
//   - If the key exists, value and updated_at are replaced.
//   - Otherwise a new row is inserted.
func (r *PreferenceRepository) Set(ctx context.Context, key, value string) error {
	p := db.Preference{Key: key, Value: value}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&p).Error
}

// Clear deletes every preference row.
func (r *PreferenceRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&db.Preference{}).Error
}

// Keys lists stored keys in lexical order.
func (r *PreferenceRepository) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&db.Preference{}).
		Order("`key`").
		Pluck("key", &keys).Error
	return keys, err
}
