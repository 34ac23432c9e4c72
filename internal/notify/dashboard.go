package notify

import (
	"context"
	"time"

	"github.com/suPer8Hu/assist-platform/internal/common"
	"github.com/suPer8Hu/assist-platform/internal/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DashboardNotice is what the business sees in its inbox.
type DashboardNotice struct {
	ID             string     `gorm:"primaryKey;size:26" json:"id"`
	TenantID       string     `gorm:"size:26;index;not null" json:"tenant_id"`
	EscalationID   string     `gorm:"size:26;uniqueIndex;not null" json:"escalation_id"`
	ConversationID string     `gorm:"size:128;not null" json:"conversation_id"`
	Message        string     `gorm:"type:text;not null" json:"message"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (DashboardNotice) TableName() string { return "dashboard_notices" }

type DashboardChannel struct {
	db *gorm.DB
}

func NewDashboardChannel(db *gorm.DB) *DashboardChannel {
	return &DashboardChannel{db: db}
}

func (*DashboardChannel) Name() string { return tenant.ChannelDashboard }

// Send stores one notice per escalation; a redelivered notification is a no-op.
func (d *DashboardChannel) Send(ctx context.Context, n Notification) error {
	id, err := common.NewULID()
	if err != nil {
		return err
	}
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "escalation_id"}}, DoNothing: true}).
		Create(&DashboardNotice{
			ID:             id,
			TenantID:       n.TenantID,
			EscalationID:   n.EscalationID,
			ConversationID: n.ConversationID,
			Message:        n.Text(),
		}).Error
}

func (d *DashboardChannel) List(ctx context.Context, tenantID string, limit int) ([]DashboardNotice, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []DashboardNotice
	err := d.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
