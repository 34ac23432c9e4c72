package knowledge

import (
	"time"

	"gorm.io/datatypes"
)

type Document struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	TenantID    string    `gorm:"size:26;not null;uniqueIndex:uniq_doc_tenant_hash,priority:1" json:"tenant_id"`
	Title       string    `gorm:"type:varchar(255)" json:"title"`
	SourceType  string    `gorm:"type:varchar(32)" json:"source_type"`
	ContentHash string    `gorm:"type:char(64);not null;uniqueIndex:uniq_doc_tenant_hash,priority:2" json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Document) TableName() string { return "knowledge_documents" }

// Chunk is one indexed slice of a document. Rows are never updated.
type Chunk struct {
	ID          string                       `gorm:"primaryKey;size:36" json:"id"`
	TenantID    string                       `gorm:"size:26;not null;uniqueIndex:uniq_chunk_tenant_hash,priority:1" json:"tenant_id"`
	DocumentID  string                       `gorm:"size:36;index;not null" json:"document_id"`
	Seq         int                          `gorm:"not null" json:"seq"`
	Content     string                       `gorm:"type:text;not null" json:"content"`
	ContentHash string                       `gorm:"type:char(64);not null;uniqueIndex:uniq_chunk_tenant_hash,priority:2" json:"content_hash"`
	Embedding   datatypes.JSONSlice[float32] `json:"-"`
	TokenCount  int                          `json:"token_count"`
	CreatedAt   time.Time                    `json:"created_at"`
}

func (Chunk) TableName() string { return "knowledge_chunks" }

type Faq struct {
	ID                 string                       `gorm:"primaryKey;size:36" json:"id"`
	TenantID           string                       `gorm:"size:26;index;not null" json:"tenant_id"`
	Category           string                       `gorm:"type:varchar(64)" json:"category"`
	Question           string                       `gorm:"type:text;not null" json:"question"`
	Answer             string                       `gorm:"type:text;not null" json:"answer"`
	QuestionEmbedding  datatypes.JSONSlice[float32] `json:"-"`
	CompositeEmbedding datatypes.JSONSlice[float32] `json:"-"`
	CreatedAt          time.Time                    `json:"created_at"`
	UpdatedAt          time.Time                    `json:"updated_at"`
}

func (Faq) TableName() string { return "knowledge_faqs" }
