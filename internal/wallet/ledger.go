// Package wallet tracks the coin balance, the membership tier and the
// trial allowance of non-paying users.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/prefs"
)

var (
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrTrialExhausted    = errors.New("trial credits exhausted")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidTier       = errors.New("invalid membership tier")
)

var multipliers = map[model.Tier]decimal.Decimal{
	model.TierNone:  decimal.NewFromInt(1),
	model.TierBasic: decimal.RequireFromString("0.95"),
	model.TierPro:   decimal.RequireFromString("0.85"),
	model.TierElite: decimal.RequireFromString("0.80"),
}

// Multiplier returns the price multiplier for tier; unknown tiers pay full price.
func Multiplier(tier model.Tier) decimal.Decimal {
	if m, ok := multipliers[tier]; ok {
		return m
	}
	return multipliers[model.TierNone]
}

// DiscountedPrice is floor(base × multiplier(tier)). Always rounds down.
func DiscountedPrice(base int64, tier model.Tier) int64 {
	return decimal.NewFromInt(base).Mul(Multiplier(tier)).Floor().IntPart()
}

// Defaults seeds a fresh ledger and is restored by Reset.
type Defaults struct {
	Balance            int64
	TrialCredits       int
	MembershipCoinRate int64
}

// balance and credits reject negative persisted values on load.
type balance int64

func (b balance) Validate() error {
	if b < 0 {
		return fmt.Errorf("negative balance %d", b)
	}
	return nil
}

type credits int

func (c credits) Validate() error {
	if c < 0 {
		return fmt.Errorf("negative trial credits %d", c)
	}
	return nil
}

// Ledger serialises every balance, tier and trial mutation behind one mutex
// so a debit always observes the latest balance.
type Ledger struct {
	mu       sync.Mutex
	balance  int64
	tier     model.Tier
	trial    int
	defaults Defaults

	store *prefs.Store
	log   *slog.Logger
}

// Load restores the ledger from the store, falling back to defaults per key.
func Load(ctx context.Context, store *prefs.Store, defaults Defaults, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	if defaults.MembershipCoinRate <= 0 {
		defaults.MembershipCoinRate = 10
	}
	return &Ledger{
		balance:  int64(prefs.Load(ctx, store, prefs.KeyWalletBalance, balance(defaults.Balance))),
		tier:     prefs.Load(ctx, store, prefs.KeyMembershipTier, model.TierNone),
		trial:    int(prefs.Load(ctx, store, prefs.KeyTrialCredits, credits(defaults.TrialCredits))),
		defaults: defaults,
		store:    store,
		log:      log,
	}
}

func (l *Ledger) Balance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

func (l *Ledger) Tier() model.Tier {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tier
}

func (l *Ledger) TrialCredits() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trial
}

// Credit adds amount coins. There is no upper bound.
func (l *Ledger) Credit(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance += amount
	l.store.SaveLogged(ctx, prefs.KeyWalletBalance, l.balance)
	l.log.Debug("wallet credited", "amount", amount, "balance", l.balance)
	return nil
}

// Debit removes amount coins, or fails with ErrInsufficientFunds leaving the balance untouched.
func (l *Ledger) Debit(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debitLocked(ctx, amount)
}

func (l *Ledger) debitLocked(ctx context.Context, amount int64) error {
	if l.balance < amount {
		l.log.Debug("debit rejected", "amount", amount, "balance", l.balance)
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, amount, l.balance)
	}
	l.balance -= amount
	l.store.SaveLogged(ctx, prefs.KeyWalletBalance, l.balance)
	l.log.Debug("wallet debited", "amount", amount, "balance", l.balance)
	return nil
}

// Price applies the current tier's discount to base.
func (l *Ledger) Price(base int64) int64 {
	return DiscountedPrice(base, l.Tier())
}

// DebitDiscounted charges base at the current tier's discount, reading the
// tier and the balance under the same lock. It returns the amount charged.
func (l *Ledger) DebitDiscounted(ctx context.Context, base int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	price := DiscountedPrice(base, l.tier)
	if price <= 0 {
		// a 1-coin gift at a discount floors to 0 and is free
		return 0, nil
	}
	if err := l.debitLocked(ctx, price); err != nil {
		return 0, err
	}
	return price, nil
}

// MembershipCost converts a package's price into coins.
func (l *Ledger) MembershipCost(pkg model.MembershipPackage) int64 {
	return pkg.Price * l.defaults.MembershipCoinRate
}

// PurchaseMembership debits the package cost and activates its tier.
// On failure nothing changes.
func (l *Ledger) PurchaseMembership(ctx context.Context, pkg model.MembershipPackage) error {
	if !pkg.Tier.Paid() {
		return ErrInvalidTier
	}
	cost := l.MembershipCost(pkg)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debitLocked(ctx, cost); err != nil {
		return err
	}
	l.tier = pkg.Tier
	l.store.SaveLogged(ctx, prefs.KeyMembershipTier, l.tier)
	l.log.Info("membership activated", "package", pkg.ID, "tier", pkg.Tier, "cost", cost)
	return nil
}

// SetTier replaces the active tier.
func (l *Ledger) SetTier(ctx context.Context, tier model.Tier) error {
	if !tier.Valid() {
		return ErrInvalidTier
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tier = tier
	l.store.SaveLogged(ctx, prefs.KeyMembershipTier, l.tier)
	return nil
}

// HasAllowance reports whether a gated action may proceed: any paid tier, or trial credits left.
func (l *Ledger) HasAllowance() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tier.Paid() || l.trial > 0
}

// ConsumeTrial spends one trial credit for a gated action. Paid tiers spend
// nothing; an exhausted allowance fails with ErrTrialExhausted.
func (l *Ledger) ConsumeTrial(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tier.Paid() {
		return nil
	}
	if l.trial <= 0 {
		return ErrTrialExhausted
	}
	l.trial--
	l.store.SaveLogged(ctx, prefs.KeyTrialCredits, l.trial)
	return nil
}

// Reset restores the first-run balance, tier and trial credits.
func (l *Ledger) Reset(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance = l.defaults.Balance
	l.tier = model.TierNone
	l.trial = l.defaults.TrialCredits
	l.store.SaveLogged(ctx, prefs.KeyWalletBalance, l.balance)
	l.store.SaveLogged(ctx, prefs.KeyMembershipTier, l.tier)
	l.store.SaveLogged(ctx, prefs.KeyTrialCredits, l.trial)
}

// Defaults returns the first-run values.
func (l *Ledger) Defaults() Defaults { return l.defaults }
