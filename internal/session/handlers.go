package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/oggyb/miahui/internal/account"
	"github.com/oggyb/miahui/internal/catalog"
	"github.com/oggyb/miahui/internal/chat"
	"github.com/oggyb/miahui/internal/matching"
	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/notify"
	"github.com/oggyb/miahui/internal/payment"
	"github.com/oggyb/miahui/internal/prefs"
	"github.com/oggyb/miahui/internal/wallet"
)

func (s *Session) handleLocked(ctx context.Context, in Intent) error {
	switch in.Kind {
	case KindNavigate:
		return s.navigate(ctx, in)
	case KindSplashDone:
		return s.splashDone()
	case KindLogin:
		return s.startLogin()
	case KindLogout:
		return s.logout()
	case KindStartMatch:
		return s.startMatch(ctx)
	case KindCancelMatch:
		return s.cancelMatch()
	case KindEndCall:
		return s.endCall()
	case KindOpenUserDetails:
		return s.openUserDetails(s.target(in))
	case KindSearch:
		return s.search(in.Query)
	case KindOpenChat:
		return s.openChat(ctx, s.target(in))
	case KindStartCall:
		return s.startCall(s.target(in))
	case KindSendMessage:
		return s.sendMessage(ctx, s.target(in), in.Text)
	case KindSendGift:
		return s.sendGift(ctx, s.target(in), in.GiftID)
	case KindRecall:
		return s.chats.Recall(ctx, in.MessageID)
	case KindMarkAllRead:
		s.chats.MarkAllRead(ctx, s.target(in))
		return nil
	case KindLoadHistory:
		return s.loadHistory(in.Before)
	case KindRecharge:
		return s.recharge(in.PackageID, in.Rail)
	case KindCancelRecharge:
		return s.cancelRecharge()
	case KindPurchaseMembership:
		return s.purchaseMembership(in.PackageID)
	case KindEditProfile:
		return s.editProfile(ctx, in.Profile)
	case KindShield, KindBlacklist, KindUnblock:
		return s.moderate(ctx, in.Kind, s.target(in))
	case KindSetTeenMode:
		return s.setTeenMode(ctx, in.Enabled)
	case KindSetNotificationPrefs:
		return s.setNotificationPrefs(ctx, in.Notifications)
	case KindChangePassword:
		return s.acct.ChangePassword(ctx, in.OldPassword, in.NewPassword, s.accountDone("密码修改成功", nil))
	case KindBindPhone:
		return s.acct.BindPhone(ctx, in.Phone, s.accountDone("手机号绑定成功", func() {
			s.profile.Verification.PhoneBound = true
		}))
	case KindBindWechat:
		return s.acct.BindWechat(ctx, s.accountDone("微信绑定成功", nil))
	case KindSubmitRealName:
		return s.acct.SubmitRealName(ctx, in.RealName, in.IDNumber, s.accountDone("实名认证已提交，预计24小时内完成审核", func() {
			s.profile.Verification.RealName = true
		}))
	case KindAskSupport:
		return s.askSupport(ctx, in)
	case KindDeleteAccount:
		return s.deleteAccount(ctx)
	}
	return fmt.Errorf("%w: %q", ErrUnknownIntent, in.Kind)
}

// target is the counterpart an intent acts on.
func (s *Session) target(in Intent) string {
	if in.CounterpartID != "" {
		return in.CounterpartID
	}
	return s.selected
}

func (s *Session) navigate(ctx context.Context, in Intent) error {
	if !in.View.Valid() {
		return fmt.Errorf("%w: unknown view %q", ErrInvalidIntent, in.View)
	}
	if !in.View.navigable() {
		return fmt.Errorf("%w: %s is not directly reachable", ErrInvalidIntent, in.View)
	}
	if s.curfewActiveLocked() && !curfewExempt(in.View) {
		s.routeLocked(ViewCurfew)
		return nil
	}
	switch in.View {
	case ViewUserDetails:
		return s.openUserDetails(s.target(in))
	case ViewChat:
		return s.openChat(ctx, s.target(in))
	}
	s.routeLocked(in.View)
	return nil
}

func (s *Session) splashDone() error {
	if s.view != ViewSplash {
		return nil
	}
	s.splash.Cancel()
	s.splash = nil
	s.routeLocked(ViewLogin)
	return nil
}

func (s *Session) startLogin() error {
	if s.loggedIn || s.login.Pending() {
		return nil
	}
	if s.view != ViewLogin {
		return fmt.Errorf("%w: login from %s", ErrInvalidIntent, s.view)
	}
	epoch := s.epoch
	s.login = s.sched.After(s.opts.LoginDelay, func() { s.loginCompleted(epoch) })
	return nil
}

func (s *Session) logout() error {
	s.login.Cancel()
	s.login = nil
	s.pay.Cancel()
	s.loggedIn = false
	s.selected = ""
	s.routeLocked(ViewLogin)
	s.log.Info("logged out")
	return nil
}

// trialExhausted redirects to the screen where the user can pay for more.
func (s *Session) trialExhausted(dest View) error {
	s.notices.Post(notify.LevelWarn, "免费次数已用完，开通会员即可无限畅聊")
	s.routeLocked(dest)
	return wallet.ErrTrialExhausted
}

func (s *Session) blocked(err error) error {
	s.notices.Post(notify.LevelWarn, "对方已被屏蔽，无法发起聊天或通话")
	return err
}

func (s *Session) startMatch(ctx context.Context) error {
	if s.match.State() != matching.StateIdle {
		return matching.ErrBusy
	}
	if !s.ledger.HasAllowance() {
		return s.trialExhausted(ViewWallet)
	}
	if err := s.match.Start(ctx); err != nil {
		if errors.Is(err, wallet.ErrTrialExhausted) {
			return s.trialExhausted(ViewWallet)
		}
		return err
	}
	s.routeLocked(ViewMatching)
	return nil
}

func (s *Session) cancelMatch() error {
	s.match.Cancel()
	s.routeLocked(ViewHome)
	return nil
}

func (s *Session) endCall() error {
	d, err := s.match.End()
	if err != nil {
		return err
	}
	s.notices.Post(notify.LevelInfo, "通话结束 "+formatDuration(d))
	s.routeLocked(ViewHome)
	return nil
}

func (s *Session) counterpart(id string) (model.Counterpart, error) {
	if id == "" {
		return model.Counterpart{}, ErrNoCounterpart
	}
	return catalog.Counterpart(id)
}

func (s *Session) openUserDetails(id string) error {
	cp, err := s.counterpart(id)
	if err != nil {
		return err
	}
	s.selected = cp.ID
	s.routeLocked(ViewUserDetails)
	return nil
}

func (s *Session) search(query string) error {
	cp, ok := catalog.Search(query)
	if !ok {
		s.notices.Post(notify.LevelInfo, "未找到该用户")
		return fmt.Errorf("%w: %q", catalog.ErrUnknownCounterpart, query)
	}
	return s.openUserDetails(cp.ID)
}

func (s *Session) openChat(ctx context.Context, id string) error {
	cp, err := s.counterpart(id)
	if err != nil {
		return err
	}
	if err := s.mod.Check(cp.ID); err != nil {
		return s.blocked(err)
	}
	s.selected = cp.ID
	s.history = nil
	s.chats.Open(ctx, cp)
	s.routeLocked(ViewChat)
	return nil
}

// loadHistory fetches the page older than before for the open chat.
func (s *Session) loadHistory(before string) error {
	if s.view != ViewChat || s.selected == "" {
		return fmt.Errorf("%w: history needs an open chat", ErrInvalidIntent)
	}
	if before == "" {
		return fmt.Errorf("%w: before token is required", ErrInvalidIntent)
	}
	page, err := s.chats.Page(s.selected, before, s.opts.HistoryPageSize)
	if err != nil {
		return err
	}
	s.history = &page
	return nil
}

func (s *Session) startCall(id string) error {
	cp, err := s.counterpart(id)
	if err != nil {
		return err
	}
	if err := s.mod.Check(cp.ID); err != nil {
		return s.blocked(err)
	}
	if !s.ledger.HasAllowance() {
		return s.trialExhausted(ViewWallet)
	}
	if err := s.match.Connect(cp); err != nil {
		return err
	}
	s.selected = cp.ID
	s.routeLocked(ViewVideoCall)
	return nil
}

func (s *Session) sendMessage(ctx context.Context, id, text string) error {
	cp, err := s.counterpart(id)
	if err != nil {
		return err
	}
	if err := s.mod.Check(cp.ID); err != nil {
		return s.blocked(err)
	}
	if strings.TrimSpace(text) == "" {
		return chat.ErrEmptyMessage
	}
	if err := s.ledger.ConsumeTrial(ctx); err != nil {
		if errors.Is(err, wallet.ErrTrialExhausted) {
			return s.trialExhausted(ViewMembership)
		}
		return err
	}
	_, err = s.chats.SendText(ctx, cp.ID, text)
	return err
}

func (s *Session) sendGift(ctx context.Context, id, giftID string) error {
	cp, err := s.counterpart(id)
	if err != nil {
		return err
	}
	if err := s.mod.Check(cp.ID); err != nil {
		return s.blocked(err)
	}
	gift, err := catalog.Gift(giftID)
	if err != nil {
		return err
	}
	_, charged, err := s.chats.SendGift(ctx, cp.ID, gift, s.ledger)
	if errors.Is(err, wallet.ErrInsufficientFunds) {
		s.notices.Post(notify.LevelWarn, "秒币余额不足，请先充值")
		s.routeLocked(ViewWallet)
		return err
	}
	if err != nil {
		return err
	}
	s.notices.Post(notify.LevelSuccess, fmt.Sprintf("已赠送 %s 给 %s，消耗 %d 秒币", gift.Name, cp.Name, charged))
	return nil
}

func (s *Session) recharge(pkgID string, rail payment.Rail) error {
	pkg, err := catalog.RechargePackage(pkgID)
	if err != nil {
		return err
	}
	epoch := s.epoch
	_, err = s.pay.Charge(pkg, rail, func(r payment.Receipt) { s.recharged(epoch, r) })
	return err
}

func (s *Session) recharged(epoch uint64, r payment.Receipt) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	if err := s.ledger.Credit(context.Background(), r.Coins); err != nil {
		s.log.Error("failed to credit recharge", "charge", r.ChargeID, "err", err)
	} else {
		s.notices.Post(notify.LevelSuccess, fmt.Sprintf("充值成功，到账 %d 秒币", r.Coins))
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.broadcast(snap)
}

func (s *Session) cancelRecharge() error {
	if _, err := s.pay.Cancel(); err != nil {
		return err
	}
	s.notices.Post(notify.LevelInfo, "已取消支付")
	return nil
}

// purchaseMembership checks the balance up front so the user is redirected
// at once; the purchase itself commits after the simulated delay.
func (s *Session) purchaseMembership(pkgID string) error {
	pkg, err := catalog.MembershipPackage(pkgID)
	if err != nil {
		return err
	}
	if s.membership.Pending() {
		return ErrMembershipPending
	}
	cost := s.ledger.MembershipCost(pkg)
	if s.ledger.Balance() < cost {
		s.notices.Post(notify.LevelWarn, fmt.Sprintf("秒币不足，需要 %d 秒币，当前余额 %d", cost, s.ledger.Balance()))
		s.routeLocked(ViewWallet)
		return wallet.ErrInsufficientFunds
	}
	epoch := s.epoch
	s.pendingPkg = pkg.ID
	s.membership = s.sched.After(s.opts.MembershipDelay, func() { s.membershipCommitted(epoch, pkg) })
	return nil
}

func (s *Session) membershipCommitted(epoch uint64, pkg model.MembershipPackage) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.membership = nil
	s.pendingPkg = ""
	if err := s.ledger.PurchaseMembership(context.Background(), pkg); err != nil {
		s.notices.Post(notify.LevelWarn, "开通失败：秒币余额不足")
		s.log.Info("membership purchase failed", "package", pkg.ID, "err", err)
	} else {
		s.notices.Post(notify.LevelSuccess, "已开通"+pkg.Name)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.broadcast(snap)
}

func (s *Session) editProfile(ctx context.Context, p *model.Profile) error {
	if p == nil {
		return fmt.Errorf("%w: profile is required", ErrInvalidIntent)
	}
	next := p.Clone()
	// verification flags are earned through account security, never edited
	next.Verification = s.profile.Verification
	if err := next.Validate(); err != nil {
		return err
	}
	for _, tag := range next.InterestTags {
		if !slices.Contains(catalog.InterestTags, tag) {
			return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
		}
	}
	if err := s.store.Save(ctx, prefs.KeyProfile, next); err != nil {
		return err
	}
	s.profile = next
	s.notices.Post(notify.LevelSuccess, "资料已保存")
	s.routeLocked(ViewProfile)
	return nil
}

func (s *Session) moderate(ctx context.Context, kind Kind, id string) error {
	cp, err := s.counterpart(id)
	if err != nil {
		return err
	}
	switch kind {
	case KindShield:
		s.mod.Shield(ctx, cp.ID)
		s.notices.Post(notify.LevelInfo, "已屏蔽 "+cp.Name)
	case KindBlacklist:
		s.mod.Blacklist(ctx, cp.ID)
		s.notices.Post(notify.LevelInfo, "已将 "+cp.Name+" 加入黑名单")
	case KindUnblock:
		s.mod.Unblock(ctx, cp.ID)
		s.notices.Post(notify.LevelInfo, "已解除对 "+cp.Name+" 的限制")
	}
	return nil
}

func (s *Session) setTeenMode(ctx context.Context, enabled *bool) error {
	if enabled == nil {
		return fmt.Errorf("%w: enabled is required", ErrInvalidIntent)
	}
	s.teenMode = *enabled
	s.store.SaveLogged(ctx, prefs.KeyTeenMode, s.teenMode)
	if s.teenMode {
		s.notices.Post(notify.LevelInfo, "青少年模式已开启")
	} else {
		s.notices.Post(notify.LevelInfo, "青少年模式已关闭")
	}
	s.reconcileCurfewLocked()
	return nil
}

func (s *Session) setNotificationPrefs(ctx context.Context, p *model.NotificationPrefs) error {
	if p == nil {
		return fmt.Errorf("%w: notifications are required", ErrInvalidIntent)
	}
	s.notifier.SetPrefs(*p)
	s.store.SaveLogged(ctx, prefs.KeyNotificationPrefs, *p)
	return nil
}

// accountDone returns the completion callback of an account operation.
// apply runs under the session lock before the notice is posted.
func (s *Session) accountDone(msg string, apply func()) func(account.View) {
	epoch := s.epoch
	return func(account.View) {
		s.mu.Lock()
		if epoch != s.epoch {
			s.mu.Unlock()
			return
		}
		if apply != nil {
			apply()
			s.store.SaveLogged(context.Background(), prefs.KeyProfile, s.profile)
		}
		s.notices.Post(notify.LevelSuccess, msg)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.broadcast(snap)
	}
}

func (s *Session) askSupport(ctx context.Context, in Intent) error {
	var err error
	if in.FAQID != "" {
		_, err = s.desk.AskFAQ(ctx, in.FAQID)
	} else {
		_, err = s.desk.Ask(ctx, in.Text)
	}
	return err
}

// deleteAccount wipes every persisted and in-memory trace of the user. Each
// component is reset before the store is cleared so that no write lands
// after the clear.
func (s *Session) deleteAccount(ctx context.Context) error {
	s.epoch++
	s.splash.Cancel()
	s.login.Cancel()
	s.membership.Cancel()
	s.splash, s.login, s.membership = nil, nil, nil
	s.pendingPkg = ""

	s.pay.Cancel()
	s.match.Reset()
	s.chats.Reset(ctx)
	s.mod.Reset(ctx)
	s.ledger.Reset(ctx)
	s.acct.Reset(ctx)
	s.desk.Reset()
	s.notifier.Reset(model.DefaultNotificationPrefs())
	s.notices.Clear()

	s.profile = catalog.DefaultProfile()
	s.teenMode = false
	s.loggedIn = false
	s.selected = ""

	if err := s.store.Clear(ctx); err != nil {
		s.log.Error("failed to clear preference store", "err", err)
		return err
	}
	s.routeLocked(ViewLogin)
	s.notices.Post(notify.LevelInfo, "账号已注销，所有数据已清除")
	s.log.Info("account deleted")
	return nil
}
