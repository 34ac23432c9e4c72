package escalation

import "time"

type Status string

const (
	// StatusNone is never stored: no row means no escalation.
	StatusNone     Status = "none"
	StatusAwaiting Status = "awaiting_confirmation"
	StatusPending  Status = "pending"
)

type Record struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID

	TenantID       string `gorm:"size:26;not null;index:uniq_escalation_conversation,unique,priority:1" json:"tenant_id"`
	ConversationID string `gorm:"size:128;not null;index:uniq_escalation_conversation,unique,priority:2" json:"conversation_id"`

	Status Status `gorm:"type:varchar(32);index;not null" json:"status"`

	TriggerMessage string `gorm:"type:text" json:"trigger_message"`
	// TranscriptRef points at the last stored turn when the record was created.
	TranscriptRef string  `gorm:"type:varchar(64)" json:"transcript_ref"`
	SummaryRef    *string `gorm:"type:varchar(64)" json:"summary_ref,omitempty"`

	ReassuranceCount int        `gorm:"not null;default:0" json:"reassurance_count"`
	LastReassuredAt  *time.Time `json:"last_reassured_at,omitempty"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Record) TableName() string { return "escalation_records" }
