// Package reply is the narrow contract to the generative reply service that
// voices counterparts and the support agent.
package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"github.com/oggyb/miahui/internal/model"
)

//go:generate mockgen -destination=./reply_mock.go -package=reply -source=reply.go

// ErrEmptyReply means the service answered with no text.
var ErrEmptyReply = errors.New("empty reply")

// Fallback lines used when the service fails.
const (
	FallbackCounterpart = "哎呀，刚才信号晃了一下，你说什么？😊"
	FallbackSupport     = "抱歉，由于网络波动，我暂时无法处理您的请求。请稍后再试或点击FAQ查看。"
)

// Request is one generation call.
type Request struct {
	Persona   string `json:"persona"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"maxTokens"`
}

// Generator produces a reply for a persona and a prompt. It may fail.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// CounterpartPersona describes a directory entry to the generator.
func CounterpartPersona(c model.Counterpart) string {
	return fmt.Sprintf(
		"你是%s，一个%d岁的%s女生。你的性格开朗、直接，喜欢用表情符号。如果你收到了礼物，要表现得非常开心和感激。",
		c.Name, c.Age, c.City,
	)
}

// SupportPersona is the customer-service agent.
const SupportPersona = `你是MIAHUI极速社交应用的官方客服。你的名字叫"秒回小助手"。
MIAHUI的核心功能是极速视频匹配和即时回复（秒回）。
应用内货币是"秒币"（1元=10秒币）。
会员等级分为基础会员、专业会员、精英会员。
你的语气必须非常专业、礼貌且高效。始终以帮助用户解决问题为首要任务。
如果用户询问充值没到账，请告知他们提供订单号并稍等，系统正在自动同步。`

// GiftPrompt is the system event sent to the generator after a gift.
func GiftPrompt(giftName string) string {
	return fmt.Sprintf("[系统消息] 我刚才送了你一个 %s，你看到了吗？", giftName)
}

// Canned answers from a fixed set of lines without any remote call.
type Canned struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	lines []string
	gift  []string
}

// NewCanned builds a canned generator. rnd may be nil.
func NewCanned(rnd *rand.Rand) *Canned {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	return &Canned{
		rnd: rnd,
		lines: []string{
			"哈哈，你好有趣呀 😄",
			"真的吗？快跟我多说说！✨",
			"我也这么觉得～ 要不要视频聊聊？📹",
			"今天过得怎么样呀？☀️",
			"嗯嗯，我在听呢 😊",
		},
		gift: []string{
			"哇！谢谢你的礼物，太开心啦 🥰",
			"收到啦！你也太好了吧 💕",
		},
	}
}

func (c *Canned) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pool := c.lines
	if strings.HasPrefix(req.Prompt, "[系统消息]") {
		pool = c.gift
	}
	return pool[c.rnd.Intn(len(pool))], nil
}

// Fallback wraps a Generator so that it never fails.
type Fallback struct {
	next Generator
	line string
	log  *slog.Logger
}

// WithFallback substitutes line whenever next errors or returns blank text.
func WithFallback(next Generator, line string, log *slog.Logger) *Fallback {
	if log == nil {
		log = slog.Default()
	}
	return &Fallback{next: next, line: line, log: log}
}

func (f *Fallback) Generate(ctx context.Context, req Request) (string, error) {
	text, err := f.next.Generate(ctx, req)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyReply
	}
	if err != nil {
		f.log.Warn("reply generation failed, using fallback", "err", err)
		return f.line, nil
	}
	return text, nil
}
