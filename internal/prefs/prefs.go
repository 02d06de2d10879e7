// Package prefs is the flat key-value preference store the session mirrors
// its state into. Values are wrapped in a versioned JSON envelope; anything
// absent, corrupt, foreign-versioned or failing validation loads as the
// caller's default.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Key names a persisted preference.
type Key string

const (
	KeyProfile           Key = "profile"
	KeyWalletBalance     Key = "walletBalance"
	KeyMembershipTier    Key = "membershipTier"
	KeyTrialCredits      Key = "trialCredits"
	KeyConversations     Key = "conversations"
	KeyTeenMode          Key = "teenModeEnabled"
	KeyNotificationPrefs Key = "notificationPrefs"
	KeyModeration        Key = "moderation"
	KeyCredentials       Key = "credentials"
)

// SchemaVersion of the envelope written by Save.
const SchemaVersion = 1

// ErrNotFound is returned by backends for absent keys.
var ErrNotFound = errors.New("preference not found")

// Backend is the raw string storage medium.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
}

// Validator is implemented by values that can reject themselves after decoding.
type Validator interface {
	Validate() error
}

type envelope struct {
	V    int             `json:"v"`
	Data json.RawMessage `json:"data"`
}

// Store wraps a Backend with envelope encoding. A nil *Store is valid and
// behaves as an always-empty store that discards writes.
type Store struct {
	backend Backend
	log     *slog.Logger
}

func New(b Backend, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{backend: b, log: log}
}

// Load returns the stored value for key, or def when the value is absent or
// unusable. It never fails.
func Load[T any](ctx context.Context, s *Store, key Key, def T) T {
	if s == nil {
		return def
	}

	raw, err := s.backend.Get(ctx, string(key))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("preference read failed, using default", "key", key, "err", err)
		}
		return def
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		s.log.Warn("malformed preference, using default", "key", key, "err", err)
		return def
	}
	if env.V != SchemaVersion || len(env.Data) == 0 {
		s.log.Warn("unsupported preference version, using default", "key", key, "version", env.V)
		return def
	}

	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		s.log.Warn("malformed preference payload, using default", "key", key, "err", err)
		return def
	}
	if val, ok := any(v).(Validator); ok {
		if err := val.Validate(); err != nil {
			s.log.Warn("invalid preference, using default", "key", key, "err", err)
			return def
		}
	}
	return v
}

// Save encodes value and writes it through immediately.
func (s *Store) Save(ctx context.Context, key Key, value any) error {
	if s == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	b, err := json.Marshal(envelope{V: SchemaVersion, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", key, err)
	}
	if err := s.backend.Set(ctx, string(key), string(b)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// SaveLogged is Save for write-through call sites that cannot surface errors.
func (s *Store) SaveLogged(ctx context.Context, key Key, value any) {
	if err := s.Save(ctx, key, value); err != nil {
		s.log.Error("preference write failed", "key", key, "err", err)
	}
}

// Clear erases every key.
func (s *Store) Clear(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if err := s.backend.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear preferences: %w", err)
	}
	return nil
}

// Keys lists the keys currently stored.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	return s.backend.Keys(ctx)
}
