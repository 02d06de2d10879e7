// Package notify raises device alerts for session events and keeps the
// short-lived notices (toasts) shown on top of the current view.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/schedule"
)

// Kind of alert.
type Kind string

const (
	KindMatch   Kind = "match"
	KindMessage Kind = "message"
)

const defaultRecent = 20

// Alert is one raised notification.
type Alert struct {
	Kind          Kind      `json:"kind"`
	CounterpartID string    `json:"counterpartId"`
	Title         string    `json:"title"`
	Body          string    `json:"body,omitempty"`
	Sound         bool      `json:"sound"`
	Vibrate       bool      `json:"vibrate"`
	At            time.Time `json:"at"`
}

// Notifier turns events into alerts according to the notification prefs and
// remembers the most recent ones.
type Notifier struct {
	mu     sync.Mutex
	prefs  model.NotificationPrefs
	recent []Alert
	max    int

	clock schedule.Clock
	log   *slog.Logger
}

func NewNotifier(clock schedule.Clock, prefs model.NotificationPrefs, max int, log *slog.Logger) *Notifier {
	if max <= 0 {
		max = defaultRecent
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{prefs: prefs, max: max, clock: clock, log: log}
}

func (n *Notifier) SetPrefs(p model.NotificationPrefs) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prefs = p
}

func (n *Notifier) Prefs() model.NotificationPrefs {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.prefs
}

// MatchConnected always alerts; sound and vibration follow the prefs.
func (n *Notifier) MatchConnected(cp model.Counterpart) Alert {
	a, _ := n.raise(Alert{Kind: KindMatch, CounterpartID: cp.ID, Title: "匹配成功：" + cp.Name}, true)
	return a
}

// NewMessage alerts only when new-message alerts are enabled.
func (n *Notifier) NewMessage(cp model.Counterpart, text string) (Alert, bool) {
	return n.raise(Alert{Kind: KindMessage, CounterpartID: cp.ID, Title: cp.Name, Body: text}, false)
}

func (n *Notifier) raise(a Alert, always bool) (Alert, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !always && !n.prefs.NewMsg {
		return Alert{}, false
	}
	a.Sound = n.prefs.Sound
	a.Vibrate = n.prefs.Vibration
	a.At = n.clock.Now()

	n.recent = append(n.recent, a)
	if len(n.recent) > n.max {
		n.recent = n.recent[len(n.recent)-n.max:]
	}
	n.log.Info("alert raised", "kind", a.Kind, "counterpart", a.CounterpartID, "sound", a.Sound, "vibrate", a.Vibrate)
	return a, true
}

// Recent returns the remembered alerts, oldest first.
func (n *Notifier) Recent() []Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Alert(nil), n.recent...)
}

// Reset forgets alerts and restores prefs.
func (n *Notifier) Reset(p model.NotificationPrefs) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prefs = p
	n.recent = nil
}
