// Package escalation owns the lifecycle of a human-intervention request per
// (tenant, conversation): none -> awaiting_confirmation -> pending -> removed.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suPer8Hu/assist-platform/internal/common"
	"gorm.io/gorm"
)

var ErrInvalidTransition = errors.New("escalation: invalid transition")

var transitions = map[Status][]Status{
	StatusNone:     {StatusAwaiting},
	StatusAwaiting: {StatusPending, StatusNone},
	StatusPending:  {StatusNone},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Machine struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMachine(db *gorm.DB) *Machine {
	return &Machine{db: db, now: time.Now}
}

// Get returns the open record, or nil when the conversation is not escalated.
func (m *Machine) Get(ctx context.Context, tenantID, conversationID string) (*Record, error) {
	var rec Record
	err := m.db.WithContext(ctx).
		Where("tenant_id = ? AND conversation_id = ?", tenantID, conversationID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Open creates an awaiting_confirmation record unless one already exists, in
// which case the existing record is returned and created is false.
func (m *Machine) Open(ctx context.Context, tenantID, conversationID, triggerMessage, transcriptRef string) (*Record, bool, error) {
	id, err := common.NewULID()
	if err != nil {
		return nil, false, err
	}
	rec := &Record{
		ID:             id,
		TenantID:       tenantID,
		ConversationID: conversationID,
		Status:         StatusAwaiting,
		TriggerMessage: triggerMessage,
		TranscriptRef:  transcriptRef,
	}

	createErr := m.db.WithContext(ctx).Create(rec).Error
	if createErr == nil {
		return rec, true, nil
	}

	// lost the race or already escalated: fold into the existing record
	existing, getErr := m.Get(ctx, tenantID, conversationID)
	if getErr != nil {
		return nil, false, getErr
	}
	if existing == nil {
		return nil, false, createErr
	}
	return existing, false, nil
}

// Confirm moves awaiting_confirmation to pending. Only one caller can win; the
// others get ErrInvalidTransition, so side effects keyed on success run once.
func (m *Machine) Confirm(ctx context.Context, tenantID, conversationID string) (*Record, error) {
	now := m.now()
	if err := m.transition(ctx, tenantID, conversationID, StatusAwaiting, StatusPending, map[string]any{
		"status":       StatusPending,
		"confirmed_at": now,
	}); err != nil {
		return nil, err
	}
	return m.Get(ctx, tenantID, conversationID)
}

// Decline discards an awaiting_confirmation record entirely.
func (m *Machine) Decline(ctx context.Context, tenantID, conversationID string) error {
	return m.transition(ctx, tenantID, conversationID, StatusAwaiting, StatusNone, nil)
}

// Resolve removes a pending record once a human has handled it.
func (m *Machine) Resolve(ctx context.Context, tenantID, conversationID string) error {
	return m.transition(ctx, tenantID, conversationID, StatusPending, StatusNone, nil)
}

func (m *Machine) MarkReassured(ctx context.Context, recordID string, at time.Time) error {
	res := m.db.WithContext(ctx).Model(&Record{}).
		Where("id = ? AND status = ?", recordID, StatusPending).
		Updates(map[string]any{
			"reassurance_count": gorm.Expr("reassurance_count + 1"),
			"last_reassured_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (m *Machine) transition(ctx context.Context, tenantID, conversationID string, from, to Status, updates map[string]any) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	q := m.db.WithContext(ctx).
		Where("tenant_id = ? AND conversation_id = ? AND status = ?", tenantID, conversationID, from)

	var res *gorm.DB
	if to == StatusNone {
		res = q.Delete(&Record{})
	} else {
		res = q.Model(&Record{}).Updates(updates)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: no %s record", ErrInvalidTransition, from)
	}
	return nil
}
