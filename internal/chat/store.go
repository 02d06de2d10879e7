// Package chat owns the per-counterpart message histories and sequences the
// simulated replies of the counterpart.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/miahui/internal/catalog"
	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/prefs"
	"github.com/oggyb/miahui/internal/reply"
	"github.com/oggyb/miahui/internal/schedule"
	"github.com/oggyb/miahui/internal/utils/pagination"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyMessage    = errors.New("message text is empty")
	ErrNotRecallable   = errors.New("only own messages can be recalled")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Debiter charges a gift at the payer's current discount.
type Debiter interface {
	DebitDiscounted(ctx context.Context, base int64) (int64, error)
}

// Options holds the reply latencies.
type Options struct {
	ReadReceiptDelay time.Duration
	GiftAckDelay     time.Duration
	MaxTokens        int
}

// Summary is one row of the message list.
type Summary struct {
	CounterpartID string        `json:"counterpartId"`
	Last          model.Message `json:"last"`
	Unread        int           `json:"unread"`
}

// Page is a slice of one conversation in chronological order. Next is empty
// when there is nothing older.
type Page struct {
	Messages []model.Message `json:"messages"`
	Next     string          `json:"next,omitempty"`
}

type conversations map[string][]model.Message

func (c conversations) Validate() error {
	for id, msgs := range c {
		for i, m := range msgs {
			if m.ID == "" {
				return fmt.Errorf("conversation %s: message %d has no id", id, i)
			}
			if m.CounterpartID != id {
				return fmt.Errorf("conversation %s: message %s belongs to %s", id, m.ID, m.CounterpartID)
			}
			switch m.Status {
			case model.StatusSending, model.StatusSent, model.StatusRead:
			default:
				return fmt.Errorf("conversation %s: message %s has status %q", id, m.ID, m.Status)
			}
		}
	}
	return nil
}

// Store is safe for concurrent use. Scheduled replies that land after Reset
// are dropped.
type Store struct {
	mu    sync.Mutex
	convs conversations
	replies map[*pendingReply]struct{}
	epoch uint64

	genCtx    context.Context
	genCancel context.CancelFunc

	onReply  func(model.Message)
	onChange func()

	sched schedule.Scheduler
	gen   reply.Generator
	opts  Options
	store *prefs.Store
	log   *slog.Logger
}

// Load restores persisted conversations. gen is wrapped so a failed
// generation yields the counterpart fallback line.
func Load(ctx context.Context, store *prefs.Store, sched schedule.Scheduler, gen reply.Generator, opts Options, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	convs := prefs.Load(ctx, store, prefs.KeyConversations, conversations{})
	if convs == nil {
		convs = conversations{}
	}
	genCtx, cancel := context.WithCancel(context.Background())
	return &Store{
		convs:     convs,
		replies:   make(map[*pendingReply]struct{}),
		genCtx:    genCtx,
		genCancel: cancel,
		sched:     sched,
		gen:       reply.WithFallback(gen, reply.FallbackCounterpart, log),
		opts:      opts,
		store:     store,
		log:       log,
	}
}

// OnReply registers fn to run after a counterpart reply is appended.
func (s *Store) OnReply(fn func(model.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReply = fn
}

// OnChange registers fn to run after any asynchronous mutation.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Append adds msg to the end of the conversation with counterpartID, creating
// it if absent. Id, counterpart and timestamp are assigned here.
func (s *Store) Append(ctx context.Context, counterpartID string, msg model.Message) model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.appendLocked(counterpartID, msg)
	s.persistLocked(ctx)
	return m
}

func (s *Store) appendLocked(counterpartID string, msg model.Message) model.Message {
	msg.CounterpartID = counterpartID
	if msg.ID == "" {
		msg.ID = newID()
	}
	if msg.Status == "" {
		msg.Status = model.StatusSending
	}

	now := s.sched.Now()
	list := s.convs[counterpartID]
	if n := len(list); n > 0 && now.Before(list[n-1].Timestamp) {
		now = list[n-1].Timestamp
	}
	msg.Timestamp = now

	s.convs[counterpartID] = append(list, msg)
	return msg
}

func (s *Store) persistLocked(ctx context.Context) {
	s.store.SaveLogged(ctx, prefs.KeyConversations, s.convs)
}

// Open returns the conversation, seeding the counterpart's greeting the first
// time it is opened.
func (s *Store) Open(ctx context.Context, c model.Counterpart) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.convs[c.ID]) == 0 {
		s.appendLocked(c.ID, model.Message{
			Text:   fmt.Sprintf("嘿，我是%s，很高兴认识你！✨", c.Name),
			Status: model.StatusRead,
		})
		s.persistLocked(ctx)
	}
	return visible(s.convs[c.ID])
}

// Has reports whether a conversation with counterpartID exists.
func (s *Store) Has(counterpartID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs[counterpartID]) > 0
}

// Messages returns the renderable history of one conversation.
func (s *Store) Messages(counterpartID string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return visible(s.convs[counterpartID])
}

// Message returns a stored message as it may be rendered.
func (s *Store) Message(id string) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cid, i, ok := s.findLocked(id)
	if !ok {
		return model.Message{}, ErrMessageNotFound
	}
	return s.convs[cid][i].Visible(), nil
}

func visible(list []model.Message) []model.Message {
	out := make([]model.Message, len(list))
	for i, m := range list {
		out[i] = m.Visible()
	}
	return out
}

func (s *Store) findLocked(id string) (string, int, bool) {
	for cid, list := range s.convs {
		for i := range list {
			if list[i].ID == id {
				return cid, i, true
			}
		}
	}
	return "", 0, false
}

// MarkDelivered moves a message to sent. Later statuses are kept.
func (s *Store) MarkDelivered(ctx context.Context, id string) error {
	return s.advance(ctx, id, model.StatusSent)
}

// MarkRead moves a message to read.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	return s.advance(ctx, id, model.StatusRead)
}

func (s *Store) advance(ctx context.Context, id string, to model.DeliveryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed, err := s.advanceLocked(id, to)
	if err != nil {
		return err
	}
	if changed {
		s.persistLocked(ctx)
	}
	return nil
}

func (s *Store) advanceLocked(id string, to model.DeliveryStatus) (bool, error) {
	cid, i, ok := s.findLocked(id)
	if !ok {
		return false, ErrMessageNotFound
	}
	m := &s.convs[cid][i]
	if !m.Status.Before(to) {
		s.log.Debug("ignoring status regression", "message", id, "from", m.Status, "to", to)
		return false, nil
	}
	m.Status = to
	return true, nil
}

// Recall tombstones one of the user's own messages. Recalling twice is a no-op.
func (s *Store) Recall(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cid, i, ok := s.findLocked(id)
	if !ok {
		return ErrMessageNotFound
	}
	m := &s.convs[cid][i]
	if !m.AuthorIsSelf {
		return ErrNotRecallable
	}
	if m.Recalled {
		return nil
	}
	m.Recalled = true
	s.persistLocked(ctx)
	return nil
}

// MarkAllRead marks every counterpart message read, in one conversation or
// in all of them when counterpartID is empty. It returns how many changed.
func (s *Store) MarkAllRead(ctx context.Context, counterpartID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for cid, list := range s.convs {
		if counterpartID != "" && cid != counterpartID {
			continue
		}
		for i := range list {
			if !list[i].AuthorIsSelf && list[i].Status != model.StatusRead {
				list[i].Status = model.StatusRead
				n++
			}
		}
	}
	if n > 0 {
		s.persistLocked(ctx)
	}
	return n
}

// SendText appends a user message and schedules the counterpart's reply.
func (s *Store) SendText(ctx context.Context, counterpartID, text string) (model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Message{}, ErrEmptyMessage
	}
	m := s.Append(ctx, counterpartID, model.Message{Text: text, AuthorIsSelf: true, Status: model.StatusSent})
	s.SimulateReply(counterpartID, m.ID, text)
	return m, nil
}

// SendGift charges the gift and appends the gift message as one unit: when
// the debit fails nothing is appended. It returns the message and the coins
// charged.
func (s *Store) SendGift(ctx context.Context, counterpartID string, gift model.Gift, ledger Debiter) (model.Message, int64, error) {
	s.mu.Lock()
	charged, err := ledger.DebitDiscounted(ctx, gift.BasePrice)
	if err != nil {
		s.mu.Unlock()
		return model.Message{}, 0, err
	}
	m := s.appendLocked(counterpartID, model.Message{
		Text:         "赠送了 " + gift.Name,
		AuthorIsSelf: true,
		Status:       model.StatusSent,
		GiftID:       gift.ID,
	})
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.log.Info("gift sent", "counterpart", counterpartID, "gift", gift.ID, "charged", charged)
	s.scheduleReply(counterpartID, m.ID, reply.GiftPrompt(gift.Name), s.opts.GiftAckDelay)
	return m, charged, nil
}

// SimulateReply marks triggerID read after the read-receipt delay and then
// appends the generated counterpart reply.
func (s *Store) SimulateReply(counterpartID, triggerID, prompt string) *schedule.Task {
	return s.scheduleReply(counterpartID, triggerID, prompt, s.opts.ReadReceiptDelay)
}

// pendingReply tracks one counterpart reply from scheduling until it lands.
type pendingReply struct {
	counterpartID string
	triggerID     string
	prompt        string
	epoch         uint64
	task          *schedule.Task
}

func (s *Store) scheduleReply(counterpartID, triggerID, prompt string, delay time.Duration) *schedule.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &pendingReply{counterpartID: counterpartID, triggerID: triggerID, prompt: prompt, epoch: s.epoch}
	r.task = s.sched.After(delay, func() { s.deliverReply(r) })
	s.replies[r] = struct{}{}
	return r.task
}

func (s *Store) deliverReply(r *pendingReply) {
	ctx := context.Background()
	counterpartID, triggerID := r.counterpartID, r.triggerID

	s.mu.Lock()
	if r.epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	if triggerID != "" {
		if changed, _ := s.advanceLocked(triggerID, model.StatusRead); changed {
			s.persistLocked(ctx)
		}
	}
	genCtx := s.genCtx
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange()
	}

	// generation may block on the network, no lock held
	text, _ := s.gen.Generate(genCtx, reply.Request{
		Persona:   persona(counterpartID),
		Prompt:    r.prompt,
		MaxTokens: s.opts.MaxTokens,
	})

	s.mu.Lock()
	if r.epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	delete(s.replies, r)
	m := s.appendLocked(counterpartID, model.Message{Text: text, Status: model.StatusSent})
	s.persistLocked(ctx)
	onReply, onChange := s.onReply, s.onChange
	s.mu.Unlock()

	if onReply != nil {
		onReply(m)
	}
	if onChange != nil {
		onChange()
	}
}

func persona(counterpartID string) string {
	c, err := catalog.Counterpart(counterpartID)
	if err != nil {
		return "你是一个开朗、直接、喜欢用表情符号的女生。"
	}
	return reply.CounterpartPersona(c)
}

// Summaries lists conversations by most recent message first.
func (s *Store) Summaries() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Summary, 0, len(s.convs))
	for cid, list := range s.convs {
		if len(list) == 0 {
			continue
		}
		sum := Summary{CounterpartID: cid, Last: list[len(list)-1].Visible()}
		for _, m := range list {
			if !m.AuthorIsSelf && m.Status != model.StatusRead {
				sum.Unread++
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Last.Timestamp.Equal(out[j].Last.Timestamp) {
			return out[i].CounterpartID < out[j].CounterpartID
		}
		return out[i].Last.Timestamp.After(out[j].Last.Timestamp)
	})
	return out
}

// Unread counts unread counterpart messages across all conversations.
func (s *Store) Unread() int {
	n := 0
	for _, sum := range s.Summaries() {
		n += sum.Unread
	}
	return n
}

// Page returns up to limit messages older than the cursor in token, newest
// page first.
func (s *Store) Page(counterpartID, token string, limit int) (Page, error) {
	cur, err := pagination.Decode(token)
	if err != nil {
		return Page{}, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.convs[counterpartID]

	end := len(list)
	if cur.MessageID != "" {
		end = -1
		for i := range list {
			if list[i].ID == cur.MessageID {
				end = i
				break
			}
		}
		if end < 0 {
			return Page{}, pagination.ErrInvalidToken
		}
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	page := Page{Messages: visible(list[start:end])}
	if start > 0 {
		first := list[start]
		next, err := pagination.Encode(pagination.Cursor{MessageID: first.ID, SentUnix: first.Timestamp.UnixMilli()})
		if err != nil {
			return Page{}, err
		}
		page.Next = next
	}
	return page, nil
}

// SentGiftIDs lists the distinct gifts the user has sent, first send first.
func (s *Store) SentGiftIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	type sent struct {
		id string
		at time.Time
	}
	var all []sent
	for _, list := range s.convs {
		for _, m := range list {
			if m.AuthorIsSelf && !m.Recalled && m.GiftID != "" {
				all = append(all, sent{id: m.GiftID, at: m.Timestamp})
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	seen := map[string]struct{}{}
	ids := make([]string, 0, len(all))
	for _, g := range all {
		if _, ok := seen[g.id]; ok {
			continue
		}
		seen[g.id] = struct{}{}
		ids = append(ids, g.id)
	}
	return ids
}

// Pending counts replies that are scheduled or generating.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies)
}

// Typing reports whether a reply from counterpartID is on its way.
func (s *Store) Typing(counterpartID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for r := range s.replies {
		if r.counterpartID == counterpartID {
			return true
		}
	}
	return false
}

// Reset drops every conversation and cancels outstanding replies.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for r := range s.replies {
		r.task.Cancel()
	}
	s.replies = make(map[*pendingReply]struct{})
	s.epoch++
	s.genCancel()
	s.genCtx, s.genCancel = context.WithCancel(context.Background())
	s.convs = conversations{}
	s.persistLocked(ctx)
}
