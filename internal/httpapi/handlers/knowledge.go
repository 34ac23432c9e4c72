package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/assist-platform/internal/common"
	"github.com/suPer8Hu/assist-platform/internal/knowledge"
	"github.com/suPer8Hu/assist-platform/internal/retrieval"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ingestReq struct {
	Title      string `json:"title" binding:"required"`
	SourceType string `json:"source_type"`
	Text       string `json:"text"`
}

// IngestDocument accepts already-extracted text. Re-posting the same text is safe.
func (h *Handler) IngestDocument(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	var req ingestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.SourceType == "" {
		req.SourceType = "text"
	}

	report, err := h.Knowledge.IngestDocument(c.Request.Context(), tid, req.Title, req.SourceType, req.Text)
	if err != nil {
		if errors.Is(err, knowledge.ErrEmptyText) {
			common.Fail(c, http.StatusBadRequest, 10002, "text required")
			return
		}
		common.Fail(c, http.StatusBadGateway, 50202, "ingestion failed")
		return
	}
	common.OK(c, report)
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	if err := h.Knowledge.Repo().DeleteDocument(c.Request.Context(), tid, c.Param("id")); err != nil {
		failLookup(c, err, "failed to delete document")
		return
	}
	common.OK(c, gin.H{"deleted": c.Param("id")})
}

type faqReq struct {
	Category string `json:"category"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (h *Handler) ListFaqs(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	faqs, err := h.Knowledge.Repo().ScanFaqs(c.Request.Context(), tid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50009, "failed to list faqs")
		return
	}
	common.OK(c, gin.H{"faqs": faqs})
}

func (h *Handler) CreateFaq(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	var req faqReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	f, err := h.Knowledge.Repo().PutFaq(c.Request.Context(), tid, req.Category, req.Question, req.Answer)
	if err != nil {
		failFaq(c, h.Log, err)
		return
	}
	common.OK(c, f)
}

func (h *Handler) UpdateFaq(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	var req faqReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	f, err := h.Knowledge.Repo().UpdateFaq(c.Request.Context(), tid, c.Param("id"), req.Category, req.Question, req.Answer)
	if err != nil {
		failFaq(c, h.Log, err)
		return
	}
	common.OK(c, f)
}

func (h *Handler) DeleteFaq(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	if err := h.Knowledge.Repo().DeleteFaq(c.Request.Context(), tid, c.Param("id")); err != nil {
		failLookup(c, err, "failed to delete faq")
		return
	}
	common.OK(c, gin.H{"deleted": c.Param("id")})
}

type searchReq struct {
	Query   string `json:"query" binding:"required"`
	TopDocs int    `json:"top_docs"`
	TopFaqs int    `json:"top_faqs"`
}

// Search previews what a customer message would retrieve.
func (h *Handler) Search(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	var req searchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	res, err := h.Retriever.Retrieve(c.Request.Context(), tid, req.Query, retrieval.Options{TopDocK: req.TopDocs, TopFaqK: req.TopFaqs})
	if err != nil {
		common.Fail(c, http.StatusBadGateway, 50203, "embedding service unavailable")
		return
	}
	common.OK(c, gin.H{"docs": res.Docs, "faqs": res.Faqs})
}

func failFaq(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, knowledge.ErrEmptyText):
		common.Fail(c, http.StatusBadRequest, 10002, "question and answer required")
	case errors.Is(err, gorm.ErrRecordNotFound):
		common.Fail(c, http.StatusNotFound, 40402, "faq not found")
	default:
		log.Error("faq write failed", zap.Error(err))
		common.Fail(c, http.StatusBadGateway, 50202, "faq write failed")
	}
}

func failLookup(c *gin.Context, err error, msg string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		common.Fail(c, http.StatusNotFound, 40402, "not found")
		return
	}
	common.Fail(c, http.StatusInternalServerError, 50010, msg)
}
