package chat

import "time"

// Turn is one stored message of a conversation.
type Turn struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID       string    `gorm:"size:26;not null;index:idx_chat_msg_tenant_conversation,priority:1" json:"tenant_id"`
	ConversationID string    `gorm:"size:128;not null;index:idx_chat_msg_tenant_conversation,priority:2" json:"conversation_id"`
	Role           string    `gorm:"type:varchar(16);not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Turn) TableName() string { return "chat_messages" }
