// Package session is the application-state orchestrator. Screens send
// Intents; the Session applies them to its components and answers with a
// Snapshot of everything a screen needs to render.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oggyb/miahui/internal/account"
	"github.com/oggyb/miahui/internal/catalog"
	"github.com/oggyb/miahui/internal/chat"
	"github.com/oggyb/miahui/internal/matching"
	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/moderation"
	"github.com/oggyb/miahui/internal/notify"
	"github.com/oggyb/miahui/internal/payment"
	"github.com/oggyb/miahui/internal/prefs"
	"github.com/oggyb/miahui/internal/reply"
	"github.com/oggyb/miahui/internal/schedule"
	"github.com/oggyb/miahui/internal/support"
	"github.com/oggyb/miahui/internal/wallet"
)

var (
	ErrNotLoggedIn       = errors.New("login required")
	ErrUnknownIntent     = errors.New("unknown intent")
	ErrInvalidIntent     = errors.New("invalid intent")
	ErrNoCounterpart     = errors.New("no counterpart selected")
	ErrUnknownTag        = errors.New("unknown interest tag")
	ErrMembershipPending = errors.New("a membership purchase is already in progress")
)

// Session serialises every intent and every async completion behind mu.
// Components guard their own state; their hooks run outside their locks and
// may take mu, never the other way round.
type Session struct {
	mu       sync.Mutex
	view     View
	loggedIn bool
	selected string
	profile  model.Profile
	teenMode bool
	epoch    uint64

	splash     *schedule.Task
	login      *schedule.Task
	membership *schedule.Task
	pendingPkg string

	// history is the older chat page last loaded for the selected counterpart.
	history *chat.Page

	ledger   *wallet.Ledger
	chats    *chat.Store
	match    *matching.Controller
	mod      *moderation.Registry
	pay      *payment.Processor
	acct     *account.Service
	desk     *support.Desk
	notifier *notify.Notifier
	notices  *notify.Notices

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int

	store *prefs.Store
	sched schedule.Scheduler
	opts  Options
	log   *slog.Logger
}

// New restores persisted state from deps.Store and starts on the splash
// screen, which advances to LOGIN after Options.SplashDelay.
func New(ctx context.Context, deps Deps, opts Options) *Session {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	rnd := deps.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	gen := deps.Generator
	if gen == nil {
		gen = reply.NewCanned(rnd)
	}
	if opts.DiscoverySize <= 0 {
		opts.DiscoverySize = 12
	}

	s := &Session{
		view:     ViewSplash,
		profile:  prefs.Load(ctx, deps.Store, prefs.KeyProfile, catalog.DefaultProfile()),
		teenMode: prefs.Load(ctx, deps.Store, prefs.KeyTeenMode, false),
		subs:     make(map[int]chan Snapshot),
		store:    deps.Store,
		sched:    deps.Scheduler,
		opts:     opts,
		log:      log,
	}

	s.ledger = wallet.Load(ctx, deps.Store, opts.Defaults, log.With("module", "wallet"))
	s.mod = moderation.Load(ctx, deps.Store, log.With("module", "moderation"))
	s.chats = chat.Load(ctx, deps.Store, deps.Scheduler, gen, chat.Options{
		ReadReceiptDelay: opts.ReadReceiptDelay,
		GiftAckDelay:     opts.GiftAckDelay,
		MaxTokens:        opts.ReplyMaxTokens,
	}, log.With("module", "chat"))
	s.match = matching.New(deps.Scheduler, s.ledger, rnd, matching.Options{
		Latency: opts.MatchLatency,
		Exclude: s.mod.IsBlocked,
	}, log.With("module", "matching"))
	s.pay = payment.NewProcessor(deps.Scheduler, payment.Options{
		BridgeDelay:  opts.PaymentBridgeDelay,
		ConfirmDelay: opts.PaymentConfirmDelay,
	}, log.With("module", "payment"))
	s.acct = account.Load(ctx, deps.Store, deps.Scheduler, account.Options{
		Delay: opts.AccountOpDelay,
		Cost:  opts.PasswordCost,
	}, log.With("module", "account"))
	s.desk = support.NewDesk(deps.Scheduler, gen, support.Options{
		ReplyDelay: opts.ReadReceiptDelay,
		MaxTokens:  opts.SupportMaxTokens,
	}, log.With("module", "support"))
	s.notifier = notify.NewNotifier(deps.Scheduler,
		prefs.Load(ctx, deps.Store, prefs.KeyNotificationPrefs, model.DefaultNotificationPrefs()),
		0, log.With("module", "notify"))
	s.notices = notify.NewNotices(opts.NoticeTTL)

	s.chats.OnReply(s.onReply)
	s.chats.OnChange(s.publish)
	s.desk.OnChange(s.publish)
	s.match.SetHooks(matching.Hooks{
		Connected: s.onMatched,
		NoMatch:   s.onNoMatch,
	})

	epoch := s.epoch
	s.splash = s.sched.After(opts.SplashDelay, func() { s.splashElapsed(epoch) })
	return s
}

// Dispatch applies one intent and returns the resulting snapshot. A
// rejected intent still yields a snapshot, which may carry a redirect and a
// notice explaining the rejection.
func (s *Session) Dispatch(ctx context.Context, in Intent) (Snapshot, error) {
	s.mu.Lock()
	s.reconcileCurfewLocked()
	err := s.applyLocked(ctx, in)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		s.log.Debug("intent rejected", "kind", in.Kind, "view", snap.View, "err", err)
	}
	s.broadcast(snap)
	return snap, err
}

func (s *Session) applyLocked(ctx context.Context, in Intent) error {
	curfew := s.curfewActiveLocked()
	if curfew && !allowedDuringCurfew(in.Kind) {
		s.routeLocked(ViewCurfew)
		return nil
	}
	if needsLogin(in.Kind) && !s.loggedIn && !curfew {
		return ErrNotLoggedIn
	}

	return s.handleLocked(ctx, in)
}

// Snapshot re-evaluates the curfew and returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconcileCurfewLocked()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every dispatched
// intent and every async completion. A slow reader only ever misses
// intermediate snapshots, never the latest one.
func (s *Session) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			close(ch)
			s.subMu.Unlock()
		})
	}
}

func (s *Session) broadcast(snap Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// drop the oldest queued snapshot to make room
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// publish broadcasts the current state after async work changed it.
func (s *Session) publish() {
	s.broadcast(s.Snapshot())
}

func (s *Session) curfewActiveLocked() bool {
	return s.teenMode && InCurfewHours(s.sched.Now())
}

// routeLocked moves to dest, applying the curfew override and tearing down
// whatever the previous view had in flight.
func (s *Session) routeLocked(dest View) {
	if s.curfewActiveLocked() && !curfewExempt(dest) {
		dest = ViewCurfew
	}
	if dest != ViewMatching && s.match.State() == matching.StateSearching {
		s.match.Cancel()
		s.log.Debug("search abandoned", "to", dest)
	}
	if dest != ViewVideoCall && s.match.State() == matching.StateConnected {
		if d, err := s.match.End(); err == nil {
			s.notices.Post(notify.LevelInfo, "通话结束 "+formatDuration(d))
		}
	}
	if dest != ViewChat {
		s.history = nil
	}
	if s.view != dest {
		s.log.Debug("route", "from", s.view, "to", dest)
	}
	s.view = dest
}

// reconcileCurfewLocked applies a curfew that started or ended since the
// last transition.
func (s *Session) reconcileCurfewLocked() {
	active := s.curfewActiveLocked()
	switch {
	case active && s.view != ViewCurfew && !curfewExempt(s.view):
		s.routeLocked(ViewCurfew)
	case !active && s.view == ViewCurfew:
		if s.loggedIn {
			s.routeLocked(ViewHome)
		} else {
			s.routeLocked(ViewLogin)
		}
	}
}

func (s *Session) splashElapsed(epoch uint64) {
	s.mu.Lock()
	if epoch != s.epoch || s.view != ViewSplash {
		s.mu.Unlock()
		return
	}
	s.splash = nil
	s.routeLocked(ViewLogin)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.broadcast(snap)
}

func (s *Session) loginCompleted(epoch uint64) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.login = nil
	s.loggedIn = true
	s.routeLocked(ViewHome)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info("logged in")
	s.broadcast(snap)
}

func (s *Session) onReply(m model.Message) {
	cp, err := catalog.Counterpart(m.CounterpartID)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == ViewChat && s.selected == m.CounterpartID {
		return
	}
	s.notifier.NewMessage(cp, m.Text)
}

func (s *Session) onMatched(cp model.Counterpart) {
	s.mu.Lock()
	s.notifier.MatchConnected(cp)
	s.routeLocked(ViewVideoCall)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.broadcast(snap)
}

func (s *Session) onNoMatch() {
	s.mu.Lock()
	s.notices.Post(notify.LevelWarn, "暂时没有可匹配的用户，请稍后再试")
	if s.view == ViewMatching {
		s.routeLocked(ViewHome)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.broadcast(snap)
}

func formatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
