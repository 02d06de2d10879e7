package session

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/oggyb/miahui/internal/config"
	"github.com/oggyb/miahui/internal/prefs"
	"github.com/oggyb/miahui/internal/reply"
	"github.com/oggyb/miahui/internal/schedule"
	"github.com/oggyb/miahui/internal/wallet"
)

// Options holds the simulated latencies and first-run values.
type Options struct {
	SplashDelay         time.Duration
	LoginDelay          time.Duration
	MatchLatency        time.Duration
	ReadReceiptDelay    time.Duration
	GiftAckDelay        time.Duration
	PaymentBridgeDelay  time.Duration
	PaymentConfirmDelay time.Duration
	MembershipDelay     time.Duration
	AccountOpDelay      time.Duration
	NoticeTTL           time.Duration

	ReplyMaxTokens   int
	SupportMaxTokens int
	DiscoverySize    int
	// HistoryPageSize bounds each chat history page; zero means the chat default.
	HistoryPageSize int
	// PasswordCost is the bcrypt cost; zero means the library default.
	PasswordCost int

	Defaults wallet.Defaults
}

// OptionsFromConfig maps the environment config onto session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SplashDelay:         cfg.Timing.SplashDelay,
		LoginDelay:          cfg.Timing.LoginDelay,
		MatchLatency:        cfg.Timing.MatchLatency,
		ReadReceiptDelay:    cfg.Timing.ReadReceiptDelay,
		GiftAckDelay:        cfg.Timing.GiftAckDelay,
		PaymentBridgeDelay:  cfg.Timing.PaymentBridgeDelay,
		PaymentConfirmDelay: cfg.Timing.PaymentConfirmDelay,
		MembershipDelay:     cfg.Timing.MembershipDelay,
		AccountOpDelay:      cfg.Timing.AccountOpDelay,
		NoticeTTL:           cfg.Timing.NoticeTTL,
		ReplyMaxTokens:      cfg.Reply.MaxTokens,
		SupportMaxTokens:    2 * cfg.Reply.MaxTokens,
		DiscoverySize:       12,
		HistoryPageSize:     cfg.Defaults.HistoryPageSize,
		Defaults: wallet.Defaults{
			Balance:            cfg.Defaults.WalletBalance,
			TrialCredits:       cfg.Defaults.TrialCredits,
			MembershipCoinRate: cfg.Defaults.MembershipCoinRate,
		},
	}
}

// Deps are the collaborators a Session is built from.
type Deps struct {
	Store     *prefs.Store
	Scheduler schedule.Scheduler
	Generator reply.Generator
	Rand      *rand.Rand
	Log       *slog.Logger
}
