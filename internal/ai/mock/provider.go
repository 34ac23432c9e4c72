package mock

import (
	"context"
	"sync"

	"github.com/suPer8Hu/assist-platform/internal/ai"
)

type Call struct {
	Messages  []ai.Message
	MaxTokens int
}

// System returns the system prompt of the call, if any.
func (c Call) System() string {
	if len(c.Messages) > 0 && c.Messages[0].Role == ai.RoleSystem {
		return c.Messages[0].Content
	}
	return ""
}

type Provider struct {
	// ChatFunc replaces the default "ok" reply when set.
	ChatFunc func(ctx context.Context, messages []ai.Message, maxTokens int) (string, error)

	mu    sync.Mutex
	calls []Call
}

func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Chat(ctx context.Context, messages []ai.Message, maxTokens int) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Messages: append([]ai.Message(nil), messages...), MaxTokens: maxTokens})
	p.mu.Unlock()

	if p.ChatFunc != nil {
		return p.ChatFunc(ctx, messages, maxTokens)
	}
	return "ok", nil
}

func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Last returns the most recent call; ok is false when there was none.
func (p *Provider) Last() (Call, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return Call{}, false
	}
	return p.calls[len(p.calls)-1], true
}

func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}
