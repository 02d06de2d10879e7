// Package payment simulates the two recharge payment rails. A charge bridges
// to the rail, confirms, and then always succeeds unless it was cancelled.
package payment

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/schedule"
)

var (
	ErrUnknownRail   = errors.New("unknown payment rail")
	ErrChargeBusy    = errors.New("a charge is already in progress")
	ErrUnknownCharge = errors.New("unknown charge")
)

// Rail is a payment provider. Both behave identically.
type Rail string

const (
	RailWechat Rail = "WECHAT"
	RailAlipay Rail = "ALIPAY"
)

func (r Rail) Valid() bool { return r == RailWechat || r == RailAlipay }

// Stage of a charge.
type Stage string

const (
	StageBridging   Stage = "BRIDGING"
	StageConfirming Stage = "CONFIRMING"
)

// Receipt is handed to the success callback.
type Receipt struct {
	ChargeID  string `json:"chargeId"`
	PackageID string `json:"packageId"`
	Coins     int64  `json:"coins"`
	Price     int64  `json:"price"`
	Rail      Rail   `json:"rail"`
}

// Status describes a charge in flight.
type Status struct {
	ChargeID  string `json:"chargeId"`
	PackageID string `json:"packageId"`
	Rail      Rail   `json:"rail"`
	Stage     Stage  `json:"stage"`
}

type Options struct {
	BridgeDelay  time.Duration
	ConfirmDelay time.Duration
}

type charge struct {
	status    Status
	receipt   Receipt
	task      *schedule.Task
	onSuccess func(Receipt)
}

// Processor runs at most one charge at a time, as the wallet screen does.
type Processor struct {
	mu     sync.Mutex
	active *charge

	sched schedule.Scheduler
	opts  Options
	log   *slog.Logger
}

func NewProcessor(sched schedule.Scheduler, opts Options, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{sched: sched, opts: opts, log: log}
}

// Charge starts paying for pkg on rail. onSuccess runs once, outside any
// lock, after both delays, unless the charge is cancelled first.
func (p *Processor) Charge(pkg model.RechargePackage, rail Rail, onSuccess func(Receipt)) (Status, error) {
	if !rail.Valid() {
		return Status{}, ErrUnknownRail
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		return Status{}, ErrChargeBusy
	}

	id := uuid.NewString()
	c := &charge{
		status:    Status{ChargeID: id, PackageID: pkg.ID, Rail: rail, Stage: StageBridging},
		receipt:   Receipt{ChargeID: id, PackageID: pkg.ID, Coins: pkg.Coins, Price: pkg.Price, Rail: rail},
		onSuccess: onSuccess,
	}
	c.task = p.sched.After(p.opts.BridgeDelay, func() { p.bridged(c) })
	p.active = c
	p.log.Info("charge started", "charge", id, "package", pkg.ID, "rail", rail, "price", pkg.Price)
	return c.status, nil
}

func (p *Processor) bridged(c *charge) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != c {
		return
	}
	c.status.Stage = StageConfirming
	c.task = p.sched.After(p.opts.ConfirmDelay, func() { p.confirmed(c) })
}

func (p *Processor) confirmed(c *charge) {
	p.mu.Lock()
	if p.active != c {
		p.mu.Unlock()
		return
	}
	p.active = nil
	p.mu.Unlock()

	p.log.Info("charge confirmed", "charge", c.receipt.ChargeID, "coins", c.receipt.Coins)
	if c.onSuccess != nil {
		c.onSuccess(c.receipt)
	}
}

// Cancel abandons the charge in flight. Nothing is credited afterwards.
func (p *Processor) Cancel() (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return Status{}, ErrUnknownCharge
	}
	c := p.active
	c.task.Cancel()
	p.active = nil
	p.log.Info("charge cancelled", "charge", c.status.ChargeID, "stage", c.status.Stage)
	return c.status, nil
}

// Active returns the charge in flight.
func (p *Processor) Active() (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return Status{}, false
	}
	return p.active.status, true
}

// Rails lists the providers in display order.
func Rails() []Rail {
	return []Rail{RailWechat, RailAlipay}
}
