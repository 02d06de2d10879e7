package notify

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// Level of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
)

// Notice is a user-visible toast.
type Notice struct {
	ID    uint64 `json:"id"`
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Notices holds toasts until they expire.
type Notices struct {
	c   *cache.Cache
	ttl time.Duration
	seq uint64
}

func NewNotices(ttl time.Duration) *Notices {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &Notices{
		c:   cache.New(ttl, time.Minute),
		ttl: ttl,
	}
}

// Post shows text for the notice TTL.
func (n *Notices) Post(level Level, text string) Notice {
	nt := Notice{ID: atomic.AddUint64(&n.seq, 1), Level: level, Text: text}
	n.c.Set(fmt.Sprintf("%020d", nt.ID), nt, n.ttl)
	return nt
}

// Active returns unexpired notices, oldest first.
func (n *Notices) Active() []Notice {
	items := n.c.Items()
	out := make([]Notice, 0, len(items))
	for _, it := range items {
		if nt, ok := it.Object.(Notice); ok {
			out = append(out, nt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Dismiss removes one notice early.
func (n *Notices) Dismiss(id uint64) {
	n.c.Delete(fmt.Sprintf("%020d", id))
}

func (n *Notices) Clear() {
	n.c.Flush()
}
