// Package support is the customer-service conversation. It is not persisted.
package support

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/miahui/internal/reply"
	"github.com/oggyb/miahui/internal/schedule"
)

var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrUnknownFAQ    = errors.New("unknown faq item")
)

const greeting = "您好！我是MIAHUI极速客服专员。请问有什么可以帮您的吗？如果您遇到了技术问题、充值疑问或举报建议，请随时告诉我。"

// FAQ is a help-center shortcut.
type FAQ struct {
	ID    string `json:"id"`
	Icon  string `json:"icon"`
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

var faqs = []FAQ{
	{ID: "f1", Icon: "💰", Title: "充值没到账", Desc: "秒币充值异常处理"},
	{ID: "f2", Icon: "💎", Title: "会员权益", Desc: "VIP各等级详细特权"},
	{ID: "f3", Icon: "🔒", Title: "账号注销", Desc: "如何找回或注销账号"},
	{ID: "f4", Icon: "🚫", Title: "举报投诉", Desc: "发现违规行为怎么办"},
}

func FAQs() []FAQ { return append([]FAQ(nil), faqs...) }

// Line is one message in the support conversation.
type Line struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	FromUser  bool      `json:"fromUser"`
	Timestamp time.Time `json:"timestamp"`
}

type Options struct {
	ReplyDelay time.Duration
	MaxTokens  int
}

// Desk holds the conversation with the support agent.
type Desk struct {
	mu       sync.Mutex
	lines    []Line
	epoch    uint64
	answers  map[*pendingAnswer]struct{}
	onChange func()

	genCtx    context.Context
	genCancel context.CancelFunc

	sched schedule.Scheduler
	gen   reply.Generator
	opts  Options
	log   *slog.Logger
}

func NewDesk(sched schedule.Scheduler, gen reply.Generator, opts Options, log *slog.Logger) *Desk {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 200
	}
	if log == nil {
		log = slog.Default()
	}
	genCtx, cancel := context.WithCancel(context.Background())
	d := &Desk{
		answers:   make(map[*pendingAnswer]struct{}),
		genCtx:    genCtx,
		genCancel: cancel,
		sched:     sched,
		gen:       reply.WithFallback(gen, reply.FallbackSupport, log),
		opts:      opts,
		log:       log,
	}
	d.lines = []Line{d.line(greeting, false)}
	return d
}

func (d *Desk) OnChange(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = fn
}

func (d *Desk) line(text string, fromUser bool) Line {
	return Line{ID: uuid.NewString(), Text: text, FromUser: fromUser, Timestamp: d.sched.Now()}
}

// Lines returns the conversation so far.
func (d *Desk) Lines() []Line {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Line(nil), d.lines...)
}

// Typing reports whether an agent reply is on its way.
func (d *Desk) Typing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.answers) > 0
}

// Ask appends the user's question and schedules the agent's answer.
func (d *Desk) Ask(ctx context.Context, text string) (Line, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Line{}, ErrEmptyQuestion
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	q := d.line(text, true)
	d.lines = append(d.lines, q)

	a := &pendingAnswer{question: text, epoch: d.epoch}
	a.task = d.sched.After(d.opts.ReplyDelay, func() { d.answer(a) })
	d.answers[a] = struct{}{}
	return q, nil
}

// AskFAQ asks about a help-center item.
func (d *Desk) AskFAQ(ctx context.Context, id string) (Line, error) {
	for _, f := range faqs {
		if f.ID == id {
			return d.Ask(ctx, fmt.Sprintf("关于\"%s\"的问题咨询", f.Title))
		}
	}
	return Line{}, ErrUnknownFAQ
}

type pendingAnswer struct {
	question string
	epoch    uint64
	task     *schedule.Task
}

func (d *Desk) answer(a *pendingAnswer) {
	d.mu.Lock()
	stale := a.epoch != d.epoch
	genCtx := d.genCtx
	d.mu.Unlock()
	if stale {
		return
	}

	text, _ := d.gen.Generate(genCtx, reply.Request{
		Persona:   reply.SupportPersona,
		Prompt:    a.question,
		MaxTokens: d.opts.MaxTokens,
	})

	d.mu.Lock()
	if a.epoch != d.epoch {
		d.mu.Unlock()
		return
	}
	delete(d.answers, a)
	d.lines = append(d.lines, d.line(text, false))
	onChange := d.onChange
	d.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

// Reset restarts the conversation from the greeting.
func (d *Desk) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for a := range d.answers {
		a.task.Cancel()
	}
	d.answers = make(map[*pendingAnswer]struct{})
	d.epoch++
	d.genCancel()
	d.genCtx, d.genCancel = context.WithCancel(context.Background())
	d.lines = []Line{d.line(greeting, false)}
}
