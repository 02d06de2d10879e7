package db

import (
	"time"
)

// Preference is one row of the flat key-value preference store.
//
// Key is the primary key so every write is an upsert of the whole value.
// Value holds the versioned JSON envelope produced by the prefs package.
type Preference struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
