package session

import (
	"time"

	"github.com/oggyb/miahui/internal/account"
	"github.com/oggyb/miahui/internal/catalog"
	"github.com/oggyb/miahui/internal/chat"
	"github.com/oggyb/miahui/internal/matching"
	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/moderation"
	"github.com/oggyb/miahui/internal/notify"
	"github.com/oggyb/miahui/internal/payment"
	"github.com/oggyb/miahui/internal/support"
)

// Snapshot is the read-only state handed to screens. Catalog sections are
// filled only on the views that render them.
type Snapshot struct {
	View      View      `json:"view"`
	ShowNav   bool      `json:"showNav"`
	Curfew    bool      `json:"curfew"`
	LoggedIn  bool      `json:"loggedIn"`
	LoggingIn bool      `json:"loggingIn"`
	At        time.Time `json:"at"`

	Profile       model.Profile           `json:"profile"`
	Balance       int64                   `json:"balance"`
	Tier          model.Tier              `json:"tier"`
	TrialCredits  int                     `json:"trialCredits"`
	TeenMode      bool                    `json:"teenMode"`
	Notifications model.NotificationPrefs `json:"notifications"`
	Account       account.View            `json:"account"`

	// Selected is the counterpart the details, chat and call screens are
	// about. A blacklisted counterpart keeps only id, name and avatar.
	Selected        *model.Counterpart `json:"selected,omitempty"`
	SelectedBlocked bool               `json:"selectedBlocked,omitempty"`
	DetailsHidden   bool               `json:"detailsHidden,omitempty"`

	Match matching.State `json:"match"`
	Call  *CallInfo      `json:"call,omitempty"`

	Conversations []chat.Summary          `json:"conversations"`
	Unread        int                     `json:"unread"`
	Chat          []model.Message         `json:"chat,omitempty"`
	ChatNext      string                  `json:"chatNext,omitempty"`
	ChatTyping    bool                    `json:"chatTyping,omitempty"`
	History       []model.Message         `json:"history,omitempty"`
	HistoryNext   string                  `json:"historyNext,omitempty"`
	SentGifts     []string                `json:"sentGifts,omitempty"`
	Blocked       []moderation.Entry      `json:"blocked"`
	Charge        *payment.Status         `json:"charge,omitempty"`
	Membership    string                  `json:"membershipPending,omitempty"`
	Support       []support.Line          `json:"support,omitempty"`
	SupportTyping bool                    `json:"supportTyping,omitempty"`
	FAQs          []support.FAQ           `json:"faqs,omitempty"`
	Directory     []model.Counterpart     `json:"directory,omitempty"`
	Discovery     []model.Counterpart     `json:"discovery,omitempty"`
	Gifts         []PricedGift            `json:"gifts,omitempty"`
	Recharge      []model.RechargePackage `json:"recharge,omitempty"`
	Memberships   []PricedMembership      `json:"memberships,omitempty"`
	InterestTags  []string                `json:"interestTags,omitempty"`

	Notices []notify.Notice `json:"notices"`
	Alerts  []notify.Alert  `json:"alerts"`
}

// CallInfo describes the call shown on VIDEO_CALL.
type CallInfo struct {
	Counterpart model.Counterpart `json:"counterpart"`
	Matched     bool              `json:"matched"`
	Elapsed     time.Duration     `json:"elapsed"`
}

// PricedGift is a gift with the price the current tier pays.
type PricedGift struct {
	model.Gift
	Price int64 `json:"price"`
}

// PricedMembership is a membership package with its cost in coins.
type PricedMembership struct {
	model.MembershipPackage
	Coins int64 `json:"coins"`
}

func (s *Session) snapshotLocked() Snapshot {
	now := s.sched.Now()
	snap := Snapshot{
		View:          s.view,
		ShowNav:       s.view.ShowsNav(),
		Curfew:        s.curfewActiveLocked(),
		LoggedIn:      s.loggedIn,
		LoggingIn:     s.login.Pending(),
		At:            now,
		Profile:       s.profile.Clone(),
		Balance:       s.ledger.Balance(),
		Tier:          s.ledger.Tier(),
		TrialCredits:  s.ledger.TrialCredits(),
		TeenMode:      s.teenMode,
		Notifications: s.notifier.Prefs(),
		Account:       s.acct.View(),
		Match:         s.match.State(),
		Conversations: s.chats.Summaries(),
		Unread:        s.chats.Unread(),
		Blocked:       s.mod.Blocked(),
		Membership:    s.pendingPkg,
		Notices:       s.notices.Active(),
		Alerts:        s.notifier.Recent(),
	}

	if s.selected != "" {
		if cp, err := catalog.Counterpart(s.selected); err == nil {
			snap.SelectedBlocked = s.mod.IsBlocked(cp.ID)
			if s.mod.IsBlacklisted(cp.ID) {
				cp = model.Counterpart{ID: cp.ID, Name: cp.Name, AvatarRef: cp.AvatarRef}
				snap.DetailsHidden = true
			}
			snap.Selected = &cp
		}
	}
	if call, ok := s.match.Call(); ok {
		snap.Call = &CallInfo{
			Counterpart: call.Counterpart,
			Matched:     call.Matched,
			Elapsed:     s.match.Elapsed(),
		}
	}
	if st, ok := s.pay.Active(); ok {
		snap.Charge = &st
	}

	switch s.view {
	case ViewHome:
		snap.Directory = catalog.Counterparts()
	case ViewDiscovery:
		snap.Discovery = catalog.Discovery(s.opts.DiscoverySize)
	case ViewChat:
		if s.selected != "" {
			// an empty token never fails
			latest, _ := s.chats.Page(s.selected, "", s.opts.HistoryPageSize)
			snap.Chat, snap.ChatNext = latest.Messages, latest.Next
			snap.ChatTyping = s.chats.Typing(s.selected)
		}
		if s.history != nil {
			snap.History, snap.HistoryNext = s.history.Messages, s.history.Next
		}
		snap.SentGifts = s.chats.SentGiftIDs()
		for _, g := range catalog.Gifts() {
			snap.Gifts = append(snap.Gifts, PricedGift{Gift: g, Price: s.ledger.Price(g.BasePrice)})
		}
	case ViewWallet:
		snap.Recharge = catalog.RechargePackages()
	case ViewMembership:
		for _, p := range catalog.MembershipPackages() {
			snap.Memberships = append(snap.Memberships, PricedMembership{MembershipPackage: p, Coins: s.ledger.MembershipCost(p)})
		}
	case ViewCustomerService:
		snap.Support = s.desk.Lines()
		snap.SupportTyping = s.desk.Typing()
		snap.FAQs = support.FAQs()
	case ViewEditProfile:
		snap.InterestTags = append([]string(nil), catalog.InterestTags...)
	case ViewProfile:
		snap.SentGifts = s.chats.SentGiftIDs()
	}
	return snap
}
