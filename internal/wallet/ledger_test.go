package wallet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/miahui/internal/catalog"
	"github.com/oggyb/miahui/internal/logger"
	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/prefs"
	"github.com/oggyb/miahui/internal/wallet"
)

var defaults = wallet.Defaults{Balance: 1000, TrialCredits: 5, MembershipCoinRate: 10}

func newLedger(t *testing.T) (*wallet.Ledger, *prefs.Store, *prefs.Memory) {
	t.Helper()
	mem := prefs.NewMemory()
	store := prefs.New(mem, logger.Discard())
	return wallet.Load(context.Background(), store, defaults, logger.Discard()), store, mem
}

func TestDiscountedPrice(t *testing.T) {
	cases := []struct {
		base int64
		tier model.Tier
		want int64
	}{
		{199, model.TierPro, 169}, // 169.15 floors, never 170
		{199, model.TierNone, 199},
		{199, model.TierBasic, 189},
		{199, model.TierElite, 159},
		{20, model.TierBasic, 19},
		{1314, model.TierPro, 1116},
		{1, model.TierBasic, 0},
		{100, model.Tier("UNKNOWN"), 100},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, wallet.DiscountedPrice(c.base, c.tier), "%d @ %s", c.base, c.tier)
	}
}

func TestDebitRejectsOverdraft(t *testing.T) {
	ctx := context.Background()
	l, _, mem := newLedger(t)

	err := l.Debit(ctx, 1500)
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
	assert.Equal(t, int64(1000), l.Balance())
	assert.Zero(t, mem.Writes(string(prefs.KeyWalletBalance)))

	require.NoError(t, l.Debit(ctx, 1000))
	assert.Equal(t, int64(0), l.Balance())
	assert.Equal(t, 1, mem.Writes(string(prefs.KeyWalletBalance)))
}

func TestCreditAndInvalidAmounts(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newLedger(t)

	require.NoError(t, l.Credit(ctx, 680))
	assert.Equal(t, int64(1680), l.Balance())

	assert.ErrorIs(t, l.Credit(ctx, 0), wallet.ErrInvalidAmount)
	assert.ErrorIs(t, l.Debit(ctx, -5), wallet.ErrInvalidAmount)

	// write-through
	assert.Equal(t, int64(1680), prefs.Load(ctx, store, prefs.KeyWalletBalance, int64(0)))
}

func TestBalanceNeverNegative(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)

	ops := []int64{300, -200, 900, -50, 2000, 10, -1}
	for _, op := range ops {
		if op > 0 {
			_ = l.Debit(ctx, op)
		} else {
			_ = l.Credit(ctx, -op)
		}
		assert.GreaterOrEqual(t, l.Balance(), int64(0))
	}
}

func TestPurchaseMembership(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newLedger(t)

	elite, err := catalog.MembershipPackage("m3")
	require.NoError(t, err)

	// 198 × 10 = 1980 > 1000
	assert.ErrorIs(t, l.PurchaseMembership(ctx, elite), wallet.ErrInsufficientFunds)
	assert.Equal(t, model.TierNone, l.Tier())
	assert.Equal(t, int64(1000), l.Balance())

	basic, err := catalog.MembershipPackage("m1")
	require.NoError(t, err)
	require.NoError(t, l.PurchaseMembership(ctx, basic))
	assert.Equal(t, model.TierBasic, l.Tier())
	assert.Equal(t, int64(700), l.Balance())
	assert.Equal(t, model.TierBasic, prefs.Load(ctx, store, prefs.KeyMembershipTier, model.TierNone))
}

func TestDebitDiscountedUsesCurrentTier(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)
	require.NoError(t, l.SetTier(ctx, model.TierPro))

	charged, err := l.DebitDiscounted(ctx, 199)
	require.NoError(t, err)
	assert.Equal(t, int64(169), charged)
	assert.Equal(t, int64(831), l.Balance())

	_, err = l.DebitDiscounted(ctx, 2000)
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
	assert.Equal(t, int64(831), l.Balance())
}

func TestTrialCredits(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, l.ConsumeTrial(ctx))
	}
	assert.Equal(t, 0, l.TrialCredits())
	assert.False(t, l.HasAllowance())
	assert.ErrorIs(t, l.ConsumeTrial(ctx), wallet.ErrTrialExhausted)
	assert.Equal(t, 0, l.TrialCredits())

	require.NoError(t, l.SetTier(ctx, model.TierBasic))
	assert.True(t, l.HasAllowance())
	require.NoError(t, l.ConsumeTrial(ctx))
	assert.Equal(t, 0, l.TrialCredits())
}

func TestLoadRejectsCorruptValues(t *testing.T) {
	ctx := context.Background()
	mem := prefs.NewMemory()
	store := prefs.New(mem, logger.Discard())

	require.NoError(t, store.Save(ctx, prefs.KeyWalletBalance, -40))
	require.NoError(t, store.Save(ctx, prefs.KeyTrialCredits, -1))
	mem.Put(string(prefs.KeyMembershipTier), "PRO") // pre-envelope format

	l := wallet.Load(ctx, store, defaults, logger.Discard())
	assert.Equal(t, int64(1000), l.Balance())
	assert.Equal(t, 5, l.TrialCredits())
	assert.Equal(t, model.TierNone, l.Tier())
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger(t)

	require.NoError(t, l.SetTier(ctx, model.TierElite))
	require.NoError(t, l.Debit(ctx, 999))

	l.Reset(ctx)
	assert.Equal(t, int64(1000), l.Balance())
	assert.Equal(t, model.TierNone, l.Tier())
	assert.Equal(t, 5, l.TrialCredits())
}
