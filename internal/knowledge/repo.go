package knowledge

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/suPer8Hu/assist-platform/internal/ai"
	"github.com/suPer8Hu/assist-platform/internal/chunker"
	"github.com/suPer8Hu/assist-platform/internal/common"
	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"
)

// answerPreviewRunes bounds the answer part of the FAQ composite embedding.
const answerPreviewRunes = 240

type PutResult int

const (
	Stored PutResult = iota + 1
	SkippedDuplicate
)

func (r PutResult) String() string {
	switch r {
	case Stored:
		return "stored"
	case SkippedDuplicate:
		return "skipped-duplicate"
	}
	return "unknown"
}

var ErrEmptyText = errors.New("knowledge: text is empty")

// ContentHash is the stable blake2b-256 hash of whitespace-normalized text.
func ContentHash(text string) string {
	sum := blake2b.Sum256([]byte(strings.Join(strings.Fields(text), " ")))
	return hex.EncodeToString(sum[:])
}

// FaqComposite is the "question + answer preview" text embedded next to the bare question.
func FaqComposite(question, answer string) string {
	answer = strings.TrimSpace(answer)
	if utf8.RuneCountInString(answer) > answerPreviewRunes {
		answer = string([]rune(answer)[:answerPreviewRunes])
	}
	return strings.TrimSpace(question) + "\n" + answer
}

type Repo struct {
	db       *gorm.DB
	embedder ai.Embedder
}

func NewRepo(db *gorm.DB, embedder ai.Embedder) *Repo {
	return &Repo{db: db, embedder: embedder}
}

func (r *Repo) findChunkByHash(ctx context.Context, tenantID, hash string) (*Chunk, error) {
	var c Chunk
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND content_hash = ?", tenantID, hash).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// PutChunk stores text for the tenant unless a chunk with the same content hash exists.
// An embedder failure fails the write; nothing is stored.
func (r *Repo) PutChunk(ctx context.Context, tenantID, documentID string, seq int, text string) (*Chunk, PutResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, 0, ErrEmptyText
	}
	hash := ContentHash(text)

	existing, err := r.findChunkByHash(ctx, tenantID, hash)
	if err == nil {
		return existing, SkippedDuplicate, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, err
	}

	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, 0, fmt.Errorf("embed chunk: %w", err)
	}
	if len(vec) == 0 {
		return nil, 0, ai.ErrEmptyEmbedding
	}

	c := &Chunk{
		ID:          common.NewUUID(),
		TenantID:    tenantID,
		DocumentID:  documentID,
		Seq:         seq,
		Content:     text,
		ContentHash: hash,
		Embedding:   vec,
		TokenCount:  chunker.EstimateTokens(text),
	}
	createErr := r.db.WithContext(ctx).Create(c).Error
	if createErr == nil {
		return c, Stored, nil
	}

	// lost a race on (tenant_id, content_hash)
	existing, err = r.findChunkByHash(ctx, tenantID, hash)
	if err == nil {
		return existing, SkippedDuplicate, nil
	}
	return nil, 0, createErr
}

func (r *Repo) embedFaq(ctx context.Context, question, answer string) (q, composite []float32, err error) {
	if q, err = r.embedder.Embed(ctx, question); err != nil {
		return nil, nil, fmt.Errorf("embed faq question: %w", err)
	}
	if composite, err = r.embedder.Embed(ctx, FaqComposite(question, answer)); err != nil {
		return nil, nil, fmt.Errorf("embed faq composite: %w", err)
	}
	if len(q) == 0 || len(composite) == 0 {
		return nil, nil, ai.ErrEmptyEmbedding
	}
	return q, composite, nil
}

// PutFaq embeds the question and the composite, then stores the entry.
func (r *Repo) PutFaq(ctx context.Context, tenantID, category, question, answer string) (*Faq, error) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyText
	}
	q, composite, err := r.embedFaq(ctx, question, answer)
	if err != nil {
		return nil, err
	}
	f := &Faq{
		ID:                 common.NewUUID(),
		TenantID:           tenantID,
		Category:           category,
		Question:           question,
		Answer:             answer,
		QuestionEmbedding:  q,
		CompositeEmbedding: composite,
	}
	if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
		return nil, err
	}
	return f, nil
}

// UpdateFaq rewrites the entry in place and recomputes both embeddings.
func (r *Repo) UpdateFaq(ctx context.Context, tenantID, id, category, question, answer string) (*Faq, error) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyText
	}
	var f Faq
	if err := r.db.WithContext(ctx).First(&f, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		return nil, err
	}
	q, composite, err := r.embedFaq(ctx, question, answer)
	if err != nil {
		return nil, err
	}

	f.Category = category
	f.Question = question
	f.Answer = answer
	f.QuestionEmbedding = q
	f.CompositeEmbedding = composite
	if err := r.db.WithContext(ctx).Save(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repo) DeleteFaq(ctx context.Context, tenantID, id string) error {
	res := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&Faq{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ScanChunks returns every chunk of the tenant for similarity scoring, in insertion order.
func (r *Repo) ScanChunks(ctx context.Context, tenantID string) ([]Chunk, error) {
	var out []Chunk
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC, document_id ASC, seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ScanFaqs returns every FAQ of the tenant for similarity scoring.
func (r *Repo) ScanFaqs(ctx context.Context, tenantID string) ([]Faq, error) {
	var out []Faq
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CreateDocumentOrGetExisting inserts doc unless the tenant already has a document with its content hash.
func (r *Repo) CreateDocumentOrGetExisting(ctx context.Context, doc *Document) (*Document, bool, error) {
	err := r.db.WithContext(ctx).Create(doc).Error
	if err == nil {
		return doc, true, nil
	}

	var existing Document
	getErr := r.db.WithContext(ctx).
		Where("tenant_id = ? AND content_hash = ?", doc.TenantID, doc.ContentHash).
		First(&existing).Error
	if getErr == nil {
		return &existing, false, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}

// DeleteDocument removes the document and its chunks.
func (r *Repo) DeleteDocument(ctx context.Context, tenantID, documentID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("tenant_id = ? AND id = ?", tenantID, documentID).Delete(&Document{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("tenant_id = ? AND document_id = ?", tenantID, documentID).Delete(&Chunk{}).Error
	})
}
