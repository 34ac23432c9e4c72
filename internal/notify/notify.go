// Package notify tells the business that a conversation needs a human.
// It runs only when an escalation is confirmed, once per confirmation.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Notification struct {
	EscalationID   string    `json:"escalation_id"`
	TenantID       string    `json:"tenant_id"`
	ConversationID string    `json:"conversation_id"`
	BusinessName   string    `json:"business_name"`
	TriggerMessage string    `json:"trigger_message"`
	TranscriptRef  string    `json:"transcript_ref"`
	Channels       []string  `json:"channels"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	ConfirmedAt    time.Time `json:"confirmed_at"`
}

// Text is the human-readable body shared by every channel.
func (n Notification) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "A customer in conversation %s asked to talk to a person", n.ConversationID)
	if n.BusinessName != "" {
		fmt.Fprintf(&b, " at %s", n.BusinessName)
	}
	b.WriteString(".")
	if n.TriggerMessage != "" {
		fmt.Fprintf(&b, "\nTheir message: %q", n.TriggerMessage)
	}
	return b.String()
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Channel is one side-effecting delivery target.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

var ErrUnknownChannel = errors.New("notify: unknown channel")

// Dispatcher fans a notification out to the channels it names. Each channel is
// called at most once; failures are logged and joined, never retried.
type Dispatcher struct {
	channels map[string]Channel
	log      *zap.Logger
}

func NewDispatcher(log *zap.Logger, channels ...Channel) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{channels: make(map[string]Channel, len(channels)), log: log}
	for _, c := range channels {
		d.channels[c.Name()] = c
	}
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, n Notification) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	seen := map[string]bool{}
	for _, name := range n.Channels {
		name := name
		if seen[name] {
			continue
		}
		seen[name] = true

		ch, ok := d.channels[name]
		if !ok {
			d.log.Warn("notification channel not configured",
				zap.String("channel", name),
				zap.String("tenant_id", n.TenantID))
			mu.Lock()
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownChannel, name))
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			if err := ch.Send(ctx, n); err != nil {
				d.log.Error("notification failed",
					zap.Error(err),
					zap.String("channel", name),
					zap.String("tenant_id", n.TenantID),
					zap.String("escalation_id", n.EscalationID))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				return nil
			}
			d.log.Info("notification sent",
				zap.String("channel", name),
				zap.String("tenant_id", n.TenantID),
				zap.String("escalation_id", n.EscalationID))
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}
