package chat

import (
	"context"

	"github.com/suPer8Hu/assist-platform/internal/ai"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// SaveExchange stores the user turn and the reply together.
func (r *Repo) SaveExchange(ctx context.Context, user, assistant *Turn) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(assistant).Error
	})
}

// ListTurns returns turns in DESC id order (newest -> oldest).
func (r *Repo) ListTurns(ctx context.Context, tenantID, conversationID string, limit int, beforeID uint64) ([]Turn, error) {
	q := r.db.WithContext(ctx).
		Where("tenant_id = ? AND conversation_id = ?", tenantID, conversationID).
		Order("id DESC").
		Limit(limit)

	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var turns []Turn
	if err := q.Find(&turns).Error; err != nil {
		return nil, err
	}
	return turns, nil
}

// ListRecentTurnsDesc returns the most recent turns in DESC id order (newest -> oldest).
func (r *Repo) ListRecentTurnsDesc(ctx context.Context, tenantID, conversationID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.ListTurns(ctx, tenantID, conversationID, limit, 0)
}

// toProviderMessages reverses DESC turns into the ASC order providers expect.
func toProviderMessages(desc []Turn) []ai.Message {
	msgs := make([]ai.Message, 0, len(desc)+1)
	for i := len(desc) - 1; i >= 0; i-- {
		msgs = append(msgs, ai.Message{Role: desc[i].Role, Content: desc[i].Content})
	}
	return msgs
}
