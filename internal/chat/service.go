// Package chat runs one inbound customer message through cooldown, escalation
// handling, retrieval and generation, and stores the exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/assist-platform/internal/ai"
	"github.com/suPer8Hu/assist-platform/internal/cooldown"
	"github.com/suPer8Hu/assist-platform/internal/escalation"
	"github.com/suPer8Hu/assist-platform/internal/intervention"
	"github.com/suPer8Hu/assist-platform/internal/notify"
	"github.com/suPer8Hu/assist-platform/internal/prompt"
	"github.com/suPer8Hu/assist-platform/internal/retrieval"
	"github.com/suPer8Hu/assist-platform/internal/tenant"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrEmptyMessage  = errors.New("chat: empty message")
	ErrUnknownTenant = errors.New("chat: unknown tenant")
	// ErrUpstream marks embedding or generation failures. The turn was aborted
	// without side effects and may be redelivered.
	ErrUpstream = errors.New("chat: upstream model call failed")
)

const (
	defaultHoldingMessage = "Thank you. I've let the team know and a person will reply here as soon as possible."
	fallbackReply         = "Sorry, I didn't quite catch that. Could you rephrase your question?"
)

var reassurances = []string{
	"A member of our team has your conversation and will be with you shortly.",
	"Thanks for your patience. Someone from the team is on it.",
	"You haven't been forgotten. A person will reply to you here.",
	"We're still on it. A teammate will get back to you in this chat.",
}

type Action string

const (
	ActionDropped               Action = "dropped"
	ActionReplied               Action = "replied"
	ActionConfirmationRequested Action = "confirmation_requested"
	ActionEscalated             Action = "escalated"
	ActionDeclined              Action = "escalation_declined"
	ActionReassured             Action = "reassured"
)

type Inbound struct {
	TenantID       string
	ConversationID string
	// Sender keys the cooldown; empty means ConversationID.
	Sender string
	Text   string
}

type Outcome struct {
	Action       Action            `json:"action"`
	Reply        string            `json:"reply,omitempty"`
	Status       escalation.Status `json:"escalation_status"`
	EscalationID string            `json:"escalation_id,omitempty"`
	ReplyTurnID  uint64            `json:"reply_turn_id,omitempty"`
}

type TenantStore interface {
	GetProfile(ctx context.Context, tenantID string) (*tenant.Profile, error)
	ListRules(ctx context.Context, tenantID string) ([]tenant.Rule, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, tenantID, query string, opts retrieval.Options) (retrieval.Result, error)
}

type Deps struct {
	Repo       *Repo
	Tenants    TenantStore
	Gate       *cooldown.Gate
	Classifier *intervention.Classifier
	Machine    *escalation.Machine
	Retriever  Retriever
	Provider   ai.Provider
	Notifier   notify.Notifier
	Log        *zap.Logger

	ContextWindowSize int
	ReplyMaxTokens    int
	ReassureInterval  time.Duration
}

type Service struct {
	Deps
	locks *keyedMutex
	now   func() time.Time
}

func NewService(d Deps) *Service {
	if d.ContextWindowSize <= 0 || d.ContextWindowSize > 100 {
		d.ContextWindowSize = 20
	}
	if d.ReassureInterval <= 0 {
		d.ReassureInterval = 10 * time.Minute
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Service{Deps: d, locks: newKeyedMutex(), now: time.Now}
}

// turn carries what every branch of HandleInbound needs.
type turn struct {
	in      Inbound
	text    string
	profile *tenant.Profile
	recent  []Turn
	history []ai.Message
}

// HandleInbound processes one message. Turns of the same conversation run in
// arrival order. On error nothing is stored and escalation state is unchanged.
func (s *Service) HandleInbound(ctx context.Context, in Inbound) (Outcome, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Outcome{}, ErrEmptyMessage
	}
	sender := in.Sender
	if sender == "" {
		sender = in.ConversationID
	}

	allowed, err := s.Gate.Allow(ctx, in.TenantID, sender)
	if err != nil {
		return Outcome{}, fmt.Errorf("cooldown: %w", err)
	}
	if !allowed {
		s.Log.Debug("inbound dropped by cooldown",
			zap.String("tenant_id", in.TenantID),
			zap.String("conversation_id", in.ConversationID))
		return Outcome{Action: ActionDropped, Status: escalation.StatusNone}, nil
	}

	unlock := s.locks.Lock(in.TenantID + "/" + in.ConversationID)
	defer unlock()

	profile, err := s.Tenants.GetProfile(ctx, in.TenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Outcome{}, ErrUnknownTenant
		}
		return Outcome{}, err
	}

	recent, err := s.Repo.ListRecentTurnsDesc(ctx, in.TenantID, in.ConversationID, s.ContextWindowSize)
	if err != nil {
		return Outcome{}, err
	}
	t := &turn{in: in, text: text, profile: profile, recent: recent, history: toProviderMessages(recent)}

	rec, err := s.Machine.Get(ctx, in.TenantID, in.ConversationID)
	if err != nil {
		return Outcome{}, err
	}

	switch {
	case rec != nil && rec.Status == escalation.StatusAwaiting:
		return s.handleAwaiting(ctx, t, rec)
	case rec != nil && rec.Status == escalation.StatusPending:
		return s.handlePending(ctx, t, rec)
	default:
		return s.handleOpen(ctx, t)
	}
}

// handleOpen runs the trigger rules on an unescalated conversation.
func (s *Service) handleOpen(ctx context.Context, t *turn) (Outcome, error) {
	rules, err := s.Tenants.ListRules(ctx, t.in.TenantID)
	if err != nil {
		return Outcome{}, err
	}

	triggered, err := s.Classifier.Classify(ctx, intervention.Partition(rules), t.history, t.text, t.profile)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: classify: %w", ErrUpstream, err)
	}

	directive := prompt.DirectiveNone
	if triggered {
		directive = prompt.DirectiveAskConfirmation
	}
	reply, err := s.generate(ctx, t, directive)
	if err != nil {
		return Outcome{}, err
	}

	if !triggered {
		id, err := s.save(ctx, t, reply)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Action: ActionReplied, Reply: reply, Status: escalation.StatusNone, ReplyTurnID: id}, nil
	}

	rec, created, err := s.Machine.Open(ctx, t.in.TenantID, t.in.ConversationID, t.text, transcriptRef(t.recent))
	if err != nil {
		return Outcome{}, err
	}
	if !created {
		s.Log.Warn("escalation already open, folding trigger into it",
			zap.String("tenant_id", t.in.TenantID),
			zap.String("conversation_id", t.in.ConversationID),
			zap.String("escalation_id", rec.ID),
			zap.String("status", string(rec.Status)))
	} else {
		s.Log.Info("escalation awaiting confirmation",
			zap.String("tenant_id", t.in.TenantID),
			zap.String("conversation_id", t.in.ConversationID),
			zap.String("escalation_id", rec.ID))
	}

	id, err := s.save(ctx, t, reply)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Action:       ActionConfirmationRequested,
		Reply:        reply,
		Status:       rec.Status,
		EscalationID: rec.ID,
		ReplyTurnID:  id,
	}, nil
}

// handleAwaiting runs only the confirmation classifier.
func (s *Service) handleAwaiting(ctx context.Context, t *turn, rec *escalation.Record) (Outcome, error) {
	confirmed, err := s.Classifier.Confirm(ctx, t.history, t.text, t.profile)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: confirm: %w", ErrUpstream, err)
	}

	if !confirmed {
		reply, err := s.generate(ctx, t, prompt.DirectiveNone)
		if err != nil {
			return Outcome{}, err
		}
		if err := s.Machine.Decline(ctx, t.in.TenantID, t.in.ConversationID); err != nil && !errors.Is(err, escalation.ErrInvalidTransition) {
			return Outcome{}, err
		}
		s.Log.Info("escalation declined",
			zap.String("tenant_id", t.in.TenantID),
			zap.String("conversation_id", t.in.ConversationID),
			zap.String("escalation_id", rec.ID))

		id, err := s.save(ctx, t, reply)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Action: ActionDeclined, Reply: reply, Status: escalation.StatusNone, ReplyTurnID: id}, nil
	}

	reply := holdingMessage(t.profile)
	updated, err := s.Machine.Confirm(ctx, t.in.TenantID, t.in.ConversationID)
	switch {
	case errors.Is(err, escalation.ErrInvalidTransition):
		// confirmed elsewhere; the winner notified
		updated, err = s.Machine.Get(ctx, t.in.TenantID, t.in.ConversationID)
		if err != nil {
			return Outcome{}, err
		}
		if updated == nil {
			return Outcome{}, escalation.ErrInvalidTransition
		}
	case err != nil:
		return Outcome{}, err
	default:
		n := notification(t.profile, updated)
		if err := s.Notifier.Notify(ctx, n); err != nil {
			s.Log.Error("escalation notification failed",
				zap.Error(err),
				zap.String("tenant_id", t.in.TenantID),
				zap.String("escalation_id", updated.ID))
		}
		if err := s.Machine.MarkReassured(ctx, updated.ID, s.now()); err != nil {
			return Outcome{}, err
		}
		s.Log.Info("escalation pending",
			zap.String("tenant_id", t.in.TenantID),
			zap.String("conversation_id", t.in.ConversationID),
			zap.String("escalation_id", updated.ID),
			zap.Strings("channels", n.Channels))
	}

	id, err := s.save(ctx, t, reply)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Action:       ActionEscalated,
		Reply:        reply,
		Status:       escalation.StatusPending,
		EscalationID: updated.ID,
		ReplyTurnID:  id,
	}, nil
}

// handlePending never asks about escalation again. It reassures at most once
// per interval and otherwise keeps answering.
func (s *Service) handlePending(ctx context.Context, t *turn, rec *escalation.Record) (Outcome, error) {
	now := s.now()
	if rec.LastReassuredAt == nil || now.Sub(*rec.LastReassuredAt) >= s.ReassureInterval {
		reply := reassurances[rec.ReassuranceCount%len(reassurances)]
		if err := s.Machine.MarkReassured(ctx, rec.ID, now); err != nil {
			return Outcome{}, err
		}
		id, err := s.save(ctx, t, reply)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Action: ActionReassured, Reply: reply, Status: escalation.StatusPending, EscalationID: rec.ID, ReplyTurnID: id}, nil
	}

	reply, err := s.generate(ctx, t, prompt.DirectiveEscalationPending)
	if err != nil {
		return Outcome{}, err
	}
	id, err := s.save(ctx, t, reply)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Action: ActionReplied, Reply: reply, Status: escalation.StatusPending, EscalationID: rec.ID, ReplyTurnID: id}, nil
}

// generate retrieves context, assembles the system prompt and calls the provider
// with the conversation history plus the new message.
func (s *Service) generate(ctx context.Context, t *turn, directive prompt.Directive) (string, error) {
	res, err := s.Retriever.Retrieve(ctx, t.in.TenantID, t.text, retrieval.Options{})
	if err != nil {
		return "", fmt.Errorf("%w: retrieve: %w", ErrUpstream, err)
	}
	system := prompt.Assemble(prompt.BasePrompt(t.profile, directive), res.Docs, res.Faqs, t.text)

	msgs := append(append([]ai.Message(nil), t.history...), ai.Message{Role: ai.RoleUser, Content: t.text})
	reply, err := ai.Generate(ctx, s.Provider, system, msgs, s.ReplyMaxTokens)
	if err != nil {
		return "", fmt.Errorf("%w: generate: %w", ErrUpstream, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		s.Log.Warn("provider returned an empty reply",
			zap.String("tenant_id", t.in.TenantID),
			zap.String("conversation_id", t.in.ConversationID))
		return fallbackReply, nil
	}
	return reply, nil
}

func (s *Service) save(ctx context.Context, t *turn, reply string) (uint64, error) {
	user := &Turn{TenantID: t.in.TenantID, ConversationID: t.in.ConversationID, Role: ai.RoleUser, Content: t.text}
	assistant := &Turn{TenantID: t.in.TenantID, ConversationID: t.in.ConversationID, Role: ai.RoleAssistant, Content: reply}
	if err := s.Repo.SaveExchange(ctx, user, assistant); err != nil {
		return 0, err
	}
	return assistant.ID, nil
}

func (s *Service) ListTurns(ctx context.Context, tenantID, conversationID string, limit int, beforeID uint64) ([]Turn, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.Repo.ListTurns(ctx, tenantID, conversationID, limit, beforeID)
}

func holdingMessage(p *tenant.Profile) string {
	if m := strings.TrimSpace(p.HoldingMessage); m != "" {
		return m
	}
	return defaultHoldingMessage
}

func notification(p *tenant.Profile, rec *escalation.Record) notify.Notification {
	n := notify.Notification{
		EscalationID:   rec.ID,
		TenantID:       rec.TenantID,
		ConversationID: rec.ConversationID,
		BusinessName:   p.BusinessName,
		TriggerMessage: rec.TriggerMessage,
		TranscriptRef:  rec.TranscriptRef,
		Channels:       append([]string(nil), p.NotifyChannels...),
		Email:          p.NotifyEmail,
		Phone:          p.NotifyPhone,
	}
	if rec.ConfirmedAt != nil {
		n.ConfirmedAt = *rec.ConfirmedAt
	}
	return n
}

// transcriptRef points at the newest stored turn before the trigger.
func transcriptRef(recentDesc []Turn) string {
	if len(recentDesc) == 0 {
		return ""
	}
	return fmt.Sprintf("chat_messages:%d", recentDesc[0].ID)
}
