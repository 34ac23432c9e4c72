package knowledge

import (
	"context"
	"strings"

	"github.com/suPer8Hu/assist-platform/internal/chunker"
	"github.com/suPer8Hu/assist-platform/internal/common"
	"go.uber.org/zap"
)

type Service struct {
	repo         *Repo
	targetTokens int
	overlap      int
	log          *zap.Logger
}

func NewService(repo *Repo, targetTokens, overlap int, log *zap.Logger) *Service {
	if targetTokens <= 0 {
		targetTokens = chunker.DefaultTargetTokens
	}
	if overlap < 0 {
		overlap = chunker.DefaultOverlap
	}
	return &Service{repo: repo, targetTokens: targetTokens, overlap: overlap, log: log}
}

func (s *Service) Repo() *Repo { return s.repo }

type IngestReport struct {
	Document *Document `json:"document"`
	Created  bool      `json:"created"`
	Stored   int       `json:"stored"`
	Skipped  int       `json:"skipped"`
	Hashes   []string  `json:"hashes"`
}

// IngestDocument chunks already-extracted text and stores every chunk.
// Re-ingesting the same text stores nothing new and fills in chunks a failed run missed.
func (s *Service) IngestDocument(ctx context.Context, tenantID, title, sourceType, text string) (*IngestReport, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	doc, created, err := s.repo.CreateDocumentOrGetExisting(ctx, &Document{
		ID:          common.NewUUID(),
		TenantID:    tenantID,
		Title:       title,
		SourceType:  sourceType,
		ContentHash: ContentHash(text),
	})
	if err != nil {
		return nil, err
	}

	report := &IngestReport{Document: doc, Created: created}
	for i, piece := range chunker.Chunk(text, s.targetTokens, s.overlap) {
		c, res, err := s.repo.PutChunk(ctx, tenantID, doc.ID, i, piece)
		if err != nil {
			s.log.Error("chunk ingestion failed",
				zap.Error(err),
				zap.String("tenant_id", tenantID),
				zap.String("document_id", doc.ID),
				zap.Int("seq", i))
			return nil, err
		}
		switch res {
		case Stored:
			report.Stored++
		case SkippedDuplicate:
			report.Skipped++
		}
		report.Hashes = append(report.Hashes, c.ContentHash)
	}

	s.log.Info("document ingested",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", doc.ID),
		zap.Bool("created", created),
		zap.Int("stored", report.Stored),
		zap.Int("skipped", report.Skipped))
	return report, nil
}
