package ai

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Provider is the generation interface. maxTokens <= 0 leaves the limit to the backend.
type Provider interface {
	Chat(ctx context.Context, messages []Message, maxTokens int) (string, error)
}

// Embedder converts text to a fixed-length vector. It never returns an empty vector without an error.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var ErrEmptyEmbedding = errors.New("ai: embedder returned an empty vector")

// Generate prepends the system prompt to history and calls p.
func Generate(ctx context.Context, p Provider, systemPrompt string, history []Message, maxTokens int) (string, error) {
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, Message{Role: RoleSystem, Content: systemPrompt})
	msgs = append(msgs, history...)
	return p.Chat(ctx, msgs, maxTokens)
}
