package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/assist-platform/internal/chat"
	"github.com/suPer8Hu/assist-platform/internal/common"
	"go.uber.org/zap"
)

const WebhookSecretHeader = "X-Webhook-Secret"

type inboundReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	Sender         string `json:"sender"`
	Text           string `json:"text"`
}

// InboundMessage is the transport webhook. A dropped duplicate is a 200 with
// action "dropped"; an upstream model failure is a 502 with no reply so the
// transport may redeliver.
func (h *Handler) InboundMessage(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	if _, err := h.Tenants.VerifyWebhookSecret(c.Request.Context(), tenantID, c.GetHeader(WebhookSecretHeader)); err != nil {
		common.Fail(c, http.StatusUnauthorized, 40104, "invalid webhook secret")
		return
	}

	var req inboundReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	out, err := h.ChatSvc.HandleInbound(c.Request.Context(), chat.Inbound{
		TenantID:       tenantID,
		ConversationID: req.ConversationID,
		Sender:         req.Sender,
		Text:           req.Text,
	})
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			common.Fail(c, http.StatusBadRequest, 10002, "text required")
		case errors.Is(err, chat.ErrUnknownTenant):
			common.Fail(c, http.StatusNotFound, 40401, "tenant not found")
		case errors.Is(err, chat.ErrUpstream):
			h.Log.Warn("turn aborted", zap.Error(err), zap.String("tenant_id", tenantID), zap.String("conversation_id", req.ConversationID))
			common.Fail(c, http.StatusBadGateway, 50201, "model service unavailable")
		default:
			h.Log.Error("turn failed", zap.Error(err), zap.String("tenant_id", tenantID), zap.String("conversation_id", req.ConversationID))
			common.Fail(c, http.StatusInternalServerError, 50001, "failed to handle message")
		}
		return
	}
	common.OK(c, out)
}

func (h *Handler) ListConversationMessages(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	var beforeID uint64
	if v := c.Query("before_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			common.Fail(c, http.StatusBadRequest, 10003, "invalid before_id")
			return
		}
		beforeID = n
	}

	turns, err := h.ChatSvc.ListTurns(c.Request.Context(), tid, c.Param("conversation_id"), limit, beforeID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list messages")
		return
	}

	var nextBeforeID uint64
	if len(turns) > 0 {
		nextBeforeID = turns[len(turns)-1].ID
	}
	common.OK(c, gin.H{"messages": turns, "next_before_id": nextBeforeID})
}
