package tenant

import (
	"time"

	"gorm.io/datatypes"
)

type RuleKind string

const (
	KindKeywordMatch    RuleKind = "keyword_match"
	KindRetryExhaustion RuleKind = "retry_exhaustion"
	KindEmotionDetected RuleKind = "emotion_detected"
)

func (k RuleKind) Valid() bool {
	switch k {
	case KindKeywordMatch, KindRetryExhaustion, KindEmotionDetected:
		return true
	}
	return false
}

const (
	ChannelEmail     = "email"
	ChannelSMS       = "sms"
	ChannelDashboard = "dashboard"
)

// Profile is the read-only configuration surface of a business.
type Profile struct {
	TenantID       string `gorm:"primaryKey;size:26" json:"tenant_id"`
	BusinessName   string `gorm:"type:varchar(128);not null" json:"business_name"`
	Tone           string `gorm:"type:varchar(64)" json:"tone"`
	UseEmoji       bool   `json:"use_emoji"`
	Signature      string `gorm:"type:varchar(255)" json:"signature"`
	HoldingMessage string `gorm:"type:text" json:"holding_message"`

	NotifyChannels datatypes.JSONSlice[string] `json:"notify_channels"`
	NotifyEmail    string                      `gorm:"type:varchar(255)" json:"notify_email"`
	NotifyPhone    string                      `gorm:"type:varchar(32)" json:"notify_phone"`

	WebhookSecretHash string `gorm:"type:varchar(72)" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "tenant_profiles" }

// Notifies reports whether channel is enabled for the tenant.
func (p *Profile) Notifies(channel string) bool {
	for _, c := range p.NotifyChannels {
		if c == channel {
			return true
		}
	}
	return false
}

// Rule is a configured escalation trigger.
type Rule struct {
	ID       uint64   `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID string   `gorm:"size:26;index;not null" json:"tenant_id"`
	Kind     RuleKind `gorm:"type:varchar(32);not null" json:"kind"`

	// keywords for keyword_match, target emotions for emotion_detected
	Patterns   datatypes.JSONSlice[string] `json:"patterns"`
	Confidence float64                     `gorm:"not null" json:"confidence"`
	MaxRetries int                         `json:"max_retries"`
	Action     string                      `gorm:"type:varchar(32)" json:"action"`

	CreatedAt time.Time `json:"created_at"`
}

func (Rule) TableName() string { return "threshold_rules" }
