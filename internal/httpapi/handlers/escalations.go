package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/assist-platform/internal/common"
	"github.com/suPer8Hu/assist-platform/internal/escalation"
	"go.uber.org/zap"
)

func (h *Handler) GetEscalation(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	rec, err := h.Escalations.Get(c.Request.Context(), tid, c.Param("conversation_id"))
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50011, "failed to load escalation")
		return
	}
	if rec == nil {
		common.OK(c, gin.H{"status": escalation.StatusNone})
		return
	}
	common.OK(c, rec)
}

// ResolveEscalation is called by the operator after a human took over.
func (h *Handler) ResolveEscalation(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	conv := c.Param("conversation_id")
	if err := h.Escalations.Resolve(c.Request.Context(), tid, conv); err != nil {
		if errors.Is(err, escalation.ErrInvalidTransition) {
			common.Fail(c, http.StatusConflict, 40901, "no pending escalation")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50012, "failed to resolve escalation")
		return
	}
	h.Log.Info("escalation resolved", zap.String("tenant_id", tid), zap.String("conversation_id", conv))
	common.OK(c, gin.H{"status": escalation.StatusNone})
}

func (h *Handler) ListNotices(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	notices, err := h.Notices.List(c.Request.Context(), tid, 50)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50013, "failed to list notices")
		return
	}
	common.OK(c, gin.H{"notices": notices})
}
