package payment_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/miahui/internal/catalog"
	"github.com/oggyb/miahui/internal/logger"
	"github.com/oggyb/miahui/internal/payment"
	"github.com/oggyb/miahui/internal/schedule"
)

var opts = payment.Options{BridgeDelay: 2 * time.Second, ConfirmDelay: 1500 * time.Millisecond}

func TestChargeSucceedsAfterBothDelays(t *testing.T) {
	clock := schedule.NewManual(time.Date(2026, 10, 17, 10, 0, 0, 0, time.Local))
	p := payment.NewProcessor(clock, opts, logger.Discard())
	pkg, err := catalog.RechargePackage("p2")
	require.NoError(t, err)

	var receipts []payment.Receipt
	st, err := p.Charge(pkg, payment.RailAlipay, func(r payment.Receipt) { receipts = append(receipts, r) })
	require.NoError(t, err)
	assert.Equal(t, payment.StageBridging, st.Stage)

	_, err = p.Charge(pkg, payment.RailWechat, nil)
	assert.ErrorIs(t, err, payment.ErrChargeBusy)

	clock.Advance(2 * time.Second)
	active, ok := p.Active()
	require.True(t, ok)
	assert.Equal(t, payment.StageConfirming, active.Stage)
	assert.Empty(t, receipts)

	clock.Advance(1500 * time.Millisecond)
	require.Len(t, receipts, 1)
	assert.Equal(t, pkg.Coins, receipts[0].Coins)
	assert.Equal(t, payment.RailAlipay, receipts[0].Rail)
	_, ok = p.Active()
	assert.False(t, ok)
}

func TestCancelledChargeCreditsNothing(t *testing.T) {
	for _, after := range []time.Duration{time.Second, 3 * time.Second} {
		clock := schedule.NewManual(time.Date(2026, 10, 17, 10, 0, 0, 0, time.Local))
		p := payment.NewProcessor(clock, opts, logger.Discard())
		pkg, err := catalog.RechargePackage("p1")
		require.NoError(t, err)

		credited := false
		_, err = p.Charge(pkg, payment.RailWechat, func(payment.Receipt) { credited = true })
		require.NoError(t, err)

		clock.Advance(after)
		_, err = p.Cancel()
		require.NoError(t, err)

		clock.Advance(time.Minute)
		assert.False(t, credited, "cancelled after %s", after)
		assert.Zero(t, clock.Pending())
	}
}

func TestUnknownRail(t *testing.T) {
	p := payment.NewProcessor(schedule.NewManual(time.Now()), opts, logger.Discard())
	pkg, err := catalog.RechargePackage("p1")
	require.NoError(t, err)

	_, err = p.Charge(pkg, payment.Rail("PAYPAL"), nil)
	assert.ErrorIs(t, err, payment.ErrUnknownRail)

	_, err = p.Cancel()
	assert.ErrorIs(t, err, payment.ErrUnknownCharge)
	assert.Equal(t, []payment.Rail{payment.RailWechat, payment.RailAlipay}, payment.Rails())
}
