package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oggyb/miahui/internal/account"
	"github.com/oggyb/miahui/internal/logger"
	"github.com/oggyb/miahui/internal/prefs"
	"github.com/oggyb/miahui/internal/schedule"
)

const delay = 1500 * time.Millisecond

func newService(t *testing.T) (*account.Service, *schedule.Manual, *prefs.Store) {
	t.Helper()
	clock := schedule.NewManual(time.Date(2026, 10, 17, 15, 0, 0, 0, time.Local))
	store := prefs.New(prefs.NewMemory(), logger.Discard())
	svc := account.Load(context.Background(), store, clock, account.Options{Delay: delay, Cost: bcrypt.MinCost}, logger.Discard())
	return svc, clock, store
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, clock, store := newService(t)

	assert.ErrorIs(t, svc.ChangePassword(ctx, "", "123", nil), account.ErrWeakPassword)

	var done []account.View
	require.NoError(t, svc.ChangePassword(ctx, "", "secret1", func(v account.View) { done = append(done, v) }))
	assert.Equal(t, account.OpChangePassword, svc.View().Pending)
	assert.ErrorIs(t, svc.BindWechat(ctx, nil), account.ErrBusy)

	clock.Advance(delay)
	require.Len(t, done, 1)
	assert.True(t, done[0].HasPassword)
	assert.Empty(t, done[0].Pending)
	assert.True(t, svc.VerifyPassword("secret1"))

	assert.ErrorIs(t, svc.ChangePassword(ctx, "wrong", "secret2", nil), account.ErrWrongPassword)
	require.NoError(t, svc.ChangePassword(ctx, "secret1", "secret2", nil))
	clock.Advance(delay)
	assert.True(t, svc.VerifyPassword("secret2"))
	assert.False(t, svc.VerifyPassword("secret1"))

	reloaded := account.Load(ctx, store, clock, account.Options{Delay: delay, Cost: bcrypt.MinCost}, logger.Discard())
	assert.True(t, reloaded.VerifyPassword("secret2"))
}

func TestBindPhoneMasksNumber(t *testing.T) {
	ctx := context.Background()
	svc, clock, _ := newService(t)
	assert.Equal(t, "138****8888", svc.View().Phone)

	assert.ErrorIs(t, svc.BindPhone(ctx, "12345", nil), account.ErrInvalidPhone)
	assert.ErrorIs(t, svc.BindPhone(ctx, "2591234567a", nil), account.ErrInvalidPhone)

	require.NoError(t, svc.BindPhone(ctx, "15912345678", nil))
	assert.Equal(t, "138****8888", svc.View().Phone)
	clock.Advance(delay)
	assert.Equal(t, "159****5678", svc.View().Phone)
}

func TestBindWechatOnce(t *testing.T) {
	ctx := context.Background()
	svc, clock, _ := newService(t)

	require.NoError(t, svc.BindWechat(ctx, nil))
	clock.Advance(delay)
	assert.True(t, svc.View().WechatBound)
	assert.ErrorIs(t, svc.BindWechat(ctx, nil), account.ErrAlreadyBound)
}

func TestSubmitRealName(t *testing.T) {
	ctx := context.Background()
	svc, clock, _ := newService(t)

	assert.ErrorIs(t, svc.SubmitRealName(ctx, "张", "11010519491231002X", nil), account.ErrInvalidRealName)
	assert.ErrorIs(t, svc.SubmitRealName(ctx, "张三", "1101051949", nil), account.ErrInvalidRealName)

	require.NoError(t, svc.SubmitRealName(ctx, "张三", "11010519491231002X", nil))
	clock.Advance(delay)
	assert.True(t, svc.View().RealNamePending)
}

func TestResetCancelsPendingOperation(t *testing.T) {
	ctx := context.Background()
	svc, clock, _ := newService(t)

	called := false
	require.NoError(t, svc.BindWechat(ctx, func(account.View) { called = true }))
	svc.Reset(ctx)
	clock.Advance(time.Minute)

	assert.False(t, called)
	assert.False(t, svc.View().WechatBound)
	assert.Empty(t, svc.View().Pending)
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "138****0000", account.MaskPhone("13800000000"))
	assert.Equal(t, "123", account.MaskPhone("123"))
}
