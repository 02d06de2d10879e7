// Package matching simulates the random partner search and the call it leads to.
package matching

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oggyb/miahui/internal/catalog"
	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/schedule"
	"github.com/oggyb/miahui/internal/wallet"
)

var (
	ErrBusy         = errors.New("a search or call is already in progress")
	ErrNotConnected = errors.New("no call in progress")
)

// State of the controller.
type State string

const (
	StateIdle      State = "IDLE"
	StateSearching State = "SEARCHING"
	StateConnected State = "CONNECTED"
)

// Allowance gates a search on the trial allowance.
type Allowance interface {
	HasAllowance() bool
	ConsumeTrial(ctx context.Context) error
}

// Call is the active call session.
type Call struct {
	Counterpart model.Counterpart `json:"counterpart"`
	StartedAt   time.Time         `json:"startedAt"`
	Matched     bool              `json:"matched"`
}

// Hooks run after a scheduled transition, outside the controller lock.
type Hooks struct {
	Connected func(model.Counterpart)
	NoMatch   func()
}

type Options struct {
	Latency time.Duration
	// Exclude drops candidates from the random pick, e.g. blocked counterparts.
	Exclude func(id string) bool
}

// Controller moves IDLE → SEARCHING → CONNECTED → IDLE. Every search carries
// an attempt number; a fired search whose attempt is stale does nothing.
type Controller struct {
	mu      sync.Mutex
	state   State
	attempt uint64
	task    *schedule.Task
	call    *Call
	last    time.Duration
	hooks   Hooks

	sched     schedule.Scheduler
	rnd       *rand.Rand
	allowance Allowance
	opts      Options
	log       *slog.Logger
}

func New(sched schedule.Scheduler, allowance Allowance, rnd *rand.Rand, opts Options, log *slog.Logger) *Controller {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		state:     StateIdle,
		sched:     sched,
		rnd:       rnd,
		allowance: allowance,
		opts:      opts,
		log:       log,
	}
}

func (c *Controller) SetHooks(h Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = h
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Call returns the active call, if any.
func (c *Controller) Call() (Call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.call == nil {
		return Call{}, false
	}
	return *c.call, true
}

// Elapsed is the duration of the active call so far.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.call == nil {
		return 0
	}
	return c.sched.Now().Sub(c.call.StartedAt)
}

// LastDuration is the length of the most recently ended call.
func (c *Controller) LastDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Start begins a search. Without allowance it fails with
// wallet.ErrTrialExhausted and nothing changes; otherwise a non-paying user
// spends one trial credit that Cancel never refunds.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return ErrBusy
	}
	if !c.allowance.HasAllowance() {
		c.log.Debug("match rejected, no allowance")
		return wallet.ErrTrialExhausted
	}
	if err := c.allowance.ConsumeTrial(ctx); err != nil {
		return err
	}

	c.attempt++
	attempt := c.attempt
	c.state = StateSearching
	c.task = c.sched.After(c.opts.Latency, func() { c.matched(attempt) })
	c.log.Debug("match search started", "attempt", attempt)
	return nil
}

func (c *Controller) matched(attempt uint64) {
	c.mu.Lock()
	if c.attempt != attempt || c.state != StateSearching {
		c.mu.Unlock()
		return
	}
	c.task = nil

	candidates := c.candidatesLocked()
	if len(candidates) == 0 {
		c.state = StateIdle
		noMatch := c.hooks.NoMatch
		c.mu.Unlock()
		c.log.Info("no eligible match")
		if noMatch != nil {
			noMatch()
		}
		return
	}

	pick := candidates[c.rnd.Intn(len(candidates))]
	c.state = StateConnected
	c.call = &Call{Counterpart: pick, StartedAt: c.sched.Now(), Matched: true}
	connected := c.hooks.Connected
	c.mu.Unlock()

	c.log.Info("match connected", "counterpart", pick.ID, "attempt", attempt)
	if connected != nil {
		connected(pick)
	}
}

func (c *Controller) candidatesLocked() []model.Counterpart {
	all := catalog.Counterparts()
	if c.opts.Exclude == nil {
		return all
	}
	out := all[:0]
	for _, cp := range all {
		if !c.opts.Exclude(cp.ID) {
			out = append(out, cp)
		}
	}
	return out
}

// Cancel abandons a running search. It reports false when there was none.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSearching {
		return false
	}
	c.cancelLocked()
	c.log.Debug("match search cancelled", "attempt", c.attempt)
	return true
}

func (c *Controller) cancelLocked() {
	c.task.Cancel()
	c.task = nil
	// a callback that already passed Cancel sees a stale attempt
	c.attempt++
	c.state = StateIdle
}

// Connect starts a direct call from the details or chat screen. The
// allowance is checked but not spent. A running search is abandoned.
func (c *Controller) Connect(cp model.Counterpart) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnected {
		return ErrBusy
	}
	if !c.allowance.HasAllowance() {
		return wallet.ErrTrialExhausted
	}
	if c.state == StateSearching {
		c.cancelLocked()
	}
	c.state = StateConnected
	c.call = &Call{Counterpart: cp, StartedAt: c.sched.Now()}
	c.log.Info("direct call connected", "counterpart", cp.ID)
	return nil
}

// End hangs up and returns the call duration.
func (c *Controller) End() (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.call == nil {
		return 0, ErrNotConnected
	}
	d := c.sched.Now().Sub(c.call.StartedAt)
	c.last = d
	c.log.Info("call ended", "counterpart", c.call.Counterpart.ID, "duration", d)
	c.call = nil
	c.state = StateIdle
	return d, nil
}

// Reset abandons any search or call.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSearching {
		c.cancelLocked()
	}
	c.state = StateIdle
	c.call = nil
	c.last = 0
}
