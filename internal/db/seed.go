package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/miahui/internal/catalog"
	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/prefs"
)

// SeedOptions controls the demo state written by SeedDemoData.
type SeedOptions struct {
	Balance       int64
	Tier          model.Tier
	TrialCredits  int
	CounterpartID string // conversation to pre-populate, empty for none
	Reset         bool   // clear the store first
	Now           time.Time
}

// SeedDemoData writes a demo wallet, profile and one short conversation.
//
// Behavior:
//  1. Optionally clears every existing preference.
//  2. Writes balance, tier and trial credits.
//  3. Writes the built-in profile.
//  4. Writes a three-message conversation with the chosen counterpart.
//
// Works against any backend, so the same data can seed sqlite, mysql or redis.
func SeedDemoData(ctx context.Context, store *prefs.Store, opts SeedOptions) error {
	if opts.Reset {
		if err := store.Clear(ctx); err != nil {
			return err
		}
	}
	if opts.Tier == "" {
		opts.Tier = model.TierNone
	}
	if !opts.Tier.Valid() {
		return fmt.Errorf("invalid tier %q", opts.Tier)
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	writes := []struct {
		key   prefs.Key
		value any
	}{
		{prefs.KeyWalletBalance, opts.Balance},
		{prefs.KeyMembershipTier, opts.Tier},
		{prefs.KeyTrialCredits, opts.TrialCredits},
		{prefs.KeyProfile, catalog.DefaultProfile()},
		{prefs.KeyNotificationPrefs, model.DefaultNotificationPrefs()},
	}
	for _, w := range writes {
		if err := store.Save(ctx, w.key, w.value); err != nil {
			return fmt.Errorf("failed to seed %s: %w", w.key, err)
		}
	}

	if opts.CounterpartID == "" {
		return nil
	}
	c, err := catalog.Counterpart(opts.CounterpartID)
	if err != nil {
		return err
	}
	convs := map[string][]model.Message{
		c.ID: demoConversation(c, opts.Now),
	}
	if err := store.Save(ctx, prefs.KeyConversations, convs); err != nil {
		return fmt.Errorf("failed to seed conversation: %w", err)
	}
	return nil
}

func demoConversation(c model.Counterpart, now time.Time) []model.Message {
	lines := []struct {
		self bool
		text string
	}{
		{false, fmt.Sprintf("你好呀，我是%s 👋", c.Name)},
		{true, "你好！看到你也在" + c.City},
		{false, "是呀，周末一起去喝咖啡吗？"},
	}

	msgs := make([]model.Message, 0, len(lines))
	for i, l := range lines {
		msgs = append(msgs, model.Message{
			ID:            seedID(),
			CounterpartID: c.ID,
			Text:          l.text,
			Timestamp:     now.Add(time.Duration(i-len(lines)) * time.Minute),
			AuthorIsSelf:  l.self,
			Status:        model.StatusRead,
		})
	}
	return msgs
}

func seedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
