// Package moderation tracks shielded and blacklisted counterparts and gates
// communication with them.
package moderation

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/oggyb/miahui/internal/prefs"
)

// ErrBlocked is returned when acting on a shielded or blacklisted counterpart.
var ErrBlocked = errors.New("counterpart is blocked")

// Kind tells why an entry is on the blacklist screen.
type Kind string

const (
	KindShielded    Kind = "shielded"
	KindBlacklisted Kind = "blacklisted"
)

// Entry is one row of the blacklist screen.
type Entry struct {
	CounterpartID string `json:"counterpartId"`
	Kind          Kind   `json:"kind"`
}

type lists struct {
	Shielded    []string `json:"shielded"`
	Blacklisted []string `json:"blacklisted"`
}

// Registry is safe for concurrent use. Membership is re-read on every Check.
type Registry struct {
	mu          sync.Mutex
	shielded    map[string]struct{}
	blacklisted map[string]struct{}

	store *prefs.Store
	log   *slog.Logger
}

func Load(ctx context.Context, store *prefs.Store, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	saved := prefs.Load(ctx, store, prefs.KeyModeration, lists{})
	r := &Registry{
		shielded:    toSet(saved.Shielded),
		blacklisted: toSet(saved.Blacklisted),
		store:       store,
		log:         log,
	}
	return r
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Shield soft-blocks id. Adding twice is a no-op.
func (r *Registry) Shield(ctx context.Context, id string) {
	r.add(ctx, r.shielded, id, KindShielded)
}

// Blacklist hard-blocks id. Adding twice is a no-op.
func (r *Registry) Blacklist(ctx context.Context, id string) {
	r.add(ctx, r.blacklisted, id, KindBlacklisted)
}

func (r *Registry) add(ctx context.Context, set map[string]struct{}, id string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := set[id]; ok {
		return
	}
	set[id] = struct{}{}
	r.persistLocked(ctx)
	r.log.Info("counterpart blocked", "counterpart", id, "kind", kind)
}

// Unblock removes id from both lists. Unknown ids are ignored.
func (r *Registry) Unblock(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, s := r.shielded[id]
	_, b := r.blacklisted[id]
	if !s && !b {
		return
	}
	delete(r.shielded, id)
	delete(r.blacklisted, id)
	r.persistLocked(ctx)
	r.log.Info("counterpart unblocked", "counterpart", id)
}

func (r *Registry) IsShielded(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.shielded[id]
	return ok
}

// IsBlacklisted also means the counterpart's details are hidden.
func (r *Registry) IsBlacklisted(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.blacklisted[id]
	return ok
}

// IsBlocked is true when id is on either list.
func (r *Registry) IsBlocked(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, s := r.shielded[id]
	_, b := r.blacklisted[id]
	return s || b
}

// Check returns ErrBlocked when id may not be contacted.
func (r *Registry) Check(id string) error {
	if r.IsBlocked(id) {
		return ErrBlocked
	}
	return nil
}

// Blocked lists every entry, blacklisted first, each group sorted by id.
// An id on both lists appears once as blacklisted.
func (r *Registry) Blocked() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.shielded)+len(r.blacklisted))
	for _, id := range sorted(r.blacklisted) {
		out = append(out, Entry{CounterpartID: id, Kind: KindBlacklisted})
	}
	for _, id := range sorted(r.shielded) {
		if _, ok := r.blacklisted[id]; ok {
			continue
		}
		out = append(out, Entry{CounterpartID: id, Kind: KindShielded})
	}
	return out
}

// Reset empties both lists.
func (r *Registry) Reset(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shielded = map[string]struct{}{}
	r.blacklisted = map[string]struct{}{}
	r.persistLocked(ctx)
}

func (r *Registry) persistLocked(ctx context.Context) {
	r.store.SaveLogged(ctx, prefs.KeyModeration, lists{
		Shielded:    sorted(r.shielded),
		Blacklisted: sorted(r.blacklisted),
	})
}
