// Package account implements the account security screen: password change,
// phone and WeChat binding, and real-name submission.
package account

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	valid "github.com/asaskevich/govalidator"
	"golang.org/x/crypto/bcrypt"

	"github.com/oggyb/miahui/internal/prefs"
	"github.com/oggyb/miahui/internal/schedule"
)

var (
	ErrWrongPassword   = errors.New("current password does not match")
	ErrWeakPassword    = errors.New("password must be at least 6 characters")
	ErrInvalidPhone    = errors.New("invalid mobile number")
	ErrInvalidRealName = errors.New("invalid real name or id number")
	ErrAlreadyBound    = errors.New("wechat already bound")
	ErrBusy            = errors.New("another account operation is in progress")
)

const (
	minPasswordLength = 6
	defaultPhone      = "138****8888"

	phonePattern = `^1[3-9][0-9]{9}$`
	idPattern    = `^[0-9]{17}[0-9Xx]$`
)

// Op names an account operation.
type Op string

const (
	OpChangePassword Op = "CHANGE_PASSWORD"
	OpBindPhone      Op = "BIND_PHONE"
	OpBindWechat     Op = "BIND_WECHAT"
	OpRealName       Op = "REAL_NAME"
)

// Credentials is the persisted account security state.
type Credentials struct {
	PasswordHash    string `json:"passwordHash,omitempty"`
	Phone           string `json:"phone"`
	WechatBound     bool   `json:"wechatBound"`
	RealNamePending bool   `json:"realNamePending"`
}

// View is Credentials without the hash.
type View struct {
	HasPassword     bool   `json:"hasPassword"`
	Phone           string `json:"phone"`
	WechatBound     bool   `json:"wechatBound"`
	RealNamePending bool   `json:"realNamePending"`
	Pending         Op     `json:"pending,omitempty"`
}

func defaultCredentials() Credentials {
	return Credentials{Phone: defaultPhone}
}

type Options struct {
	Delay time.Duration
	// Cost is the bcrypt cost, bcrypt.DefaultCost when zero.
	Cost int
}

// Service runs one operation at a time; each commits after Options.Delay.
type Service struct {
	mu      sync.Mutex
	creds   Credentials
	pending Op
	task    *schedule.Task

	sched schedule.Scheduler
	opts  Options
	store *prefs.Store
	log   *slog.Logger
}

func Load(ctx context.Context, store *prefs.Store, sched schedule.Scheduler, opts Options, log *slog.Logger) *Service {
	if opts.Cost == 0 {
		opts.Cost = bcrypt.DefaultCost
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		creds: prefs.Load(ctx, store, prefs.KeyCredentials, defaultCredentials()),
		sched: sched,
		opts:  opts,
		store: store,
		log:   log,
	}
}

func (s *Service) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		HasPassword:     s.creds.PasswordHash != "",
		Phone:           s.creds.Phone,
		WechatBound:     s.creds.WechatBound,
		RealNamePending: s.creds.RealNamePending,
		Pending:         s.pending,
	}
}

// ChangePassword checks old against the stored hash (skipped when no
// password is set yet) and stores a hash of next after the delay.
func (s *Service) ChangePassword(ctx context.Context, old, next string, done func(View)) error {
	if len([]rune(next)) < minPasswordLength {
		return ErrWeakPassword
	}

	s.mu.Lock()
	hash := s.creds.PasswordHash
	s.mu.Unlock()
	if hash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(old)); err != nil {
			return ErrWrongPassword
		}
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(next), s.opts.Cost)
	if err != nil {
		return err
	}
	return s.run(ctx, OpChangePassword, func(c *Credentials) { c.PasswordHash = string(newHash) }, done)
}

// VerifyPassword reports whether password matches the stored hash.
func (s *Service) VerifyPassword(password string) bool {
	s.mu.Lock()
	hash := s.creds.PasswordHash
	s.mu.Unlock()
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BindPhone stores the masked number.
func (s *Service) BindPhone(ctx context.Context, number string, done func(View)) error {
	if !valid.Matches(number, phonePattern) {
		return ErrInvalidPhone
	}
	masked := MaskPhone(number)
	return s.run(ctx, OpBindPhone, func(c *Credentials) { c.Phone = masked }, done)
}

// MaskPhone keeps the first three and last four digits.
func MaskPhone(number string) string {
	if len(number) < 7 {
		return number
	}
	return number[:3] + "****" + number[len(number)-4:]
}

func (s *Service) BindWechat(ctx context.Context, done func(View)) error {
	s.mu.Lock()
	bound := s.creds.WechatBound
	s.mu.Unlock()
	if bound {
		return ErrAlreadyBound
	}
	return s.run(ctx, OpBindWechat, func(c *Credentials) { c.WechatBound = true }, done)
}

// SubmitRealName files a real-name check. Only the pending flag is kept;
// name and id number are never stored.
func (s *Service) SubmitRealName(ctx context.Context, name, idNumber string, done func(View)) error {
	if !valid.IsUTFLetter(name) || !valid.RuneLength(name, "2", "20") || !valid.Matches(idNumber, idPattern) {
		return ErrInvalidRealName
	}
	return s.run(ctx, OpRealName, func(c *Credentials) { c.RealNamePending = true }, done)
}

func (s *Service) run(ctx context.Context, op Op, commit func(*Credentials), done func(View)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != "" {
		return ErrBusy
	}
	s.pending = op

	var task *schedule.Task
	bg := context.WithoutCancel(ctx)
	task = s.sched.After(s.opts.Delay, func() {
		s.mu.Lock()
		if s.task != task {
			s.mu.Unlock()
			return
		}
		commit(&s.creds)
		s.pending = ""
		s.task = nil
		s.store.SaveLogged(bg, prefs.KeyCredentials, s.creds)
		s.mu.Unlock()

		s.log.Info("account operation completed", "op", op)
		if done != nil {
			done(s.View())
		}
	})
	s.task = task
	return nil
}

// Reset cancels any pending operation and forgets all credentials.
func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task.Cancel()
	s.task = nil
	s.pending = ""
	s.creds = defaultCredentials()
	s.store.SaveLogged(ctx, prefs.KeyCredentials, s.creds)
}
