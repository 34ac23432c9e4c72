package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/assist-platform/internal/auth"
	"github.com/suPer8Hu/assist-platform/internal/common"
	"github.com/suPer8Hu/assist-platform/internal/tenant"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type profileReq struct {
	BusinessName   string   `json:"business_name"`
	Tone           string   `json:"tone"`
	UseEmoji       bool     `json:"use_emoji"`
	Signature      string   `json:"signature"`
	HoldingMessage string   `json:"holding_message"`
	NotifyChannels []string `json:"notify_channels"`
	NotifyEmail    string   `json:"notify_email"`
	NotifyPhone    string   `json:"notify_phone"`
}

func (r profileReq) apply(p *tenant.Profile) {
	p.BusinessName = r.BusinessName
	p.Tone = r.Tone
	p.UseEmoji = r.UseEmoji
	p.Signature = r.Signature
	p.HoldingMessage = r.HoldingMessage
	p.NotifyChannels = datatypes.JSONSlice[string](r.NotifyChannels)
	p.NotifyEmail = r.NotifyEmail
	p.NotifyPhone = r.NotifyPhone
}

func validChannels(chs []string) bool {
	for _, ch := range chs {
		switch ch {
		case tenant.ChannelEmail, tenant.ChannelSMS, tenant.ChannelDashboard:
		default:
			return false
		}
	}
	return true
}

func newWebhookSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CreateTenant provisions a tenant and returns its API token and webhook
// secret. The secret is only shown once.
func (h *Handler) CreateTenant(c *gin.Context) {
	var req profileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.BusinessName == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "business_name required")
		return
	}
	if !validChannels(req.NotifyChannels) {
		common.Fail(c, http.StatusBadRequest, 10004, "unknown notify channel")
		return
	}

	tid, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create tenant")
		return
	}
	p := &tenant.Profile{TenantID: tid}
	req.apply(p)

	ctx := c.Request.Context()
	if err := h.Tenants.SaveProfile(ctx, p); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create tenant")
		return
	}
	secret, err := newWebhookSecret()
	if err == nil {
		err = h.Tenants.SetWebhookSecret(ctx, tid, secret)
	}
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to set webhook secret")
		return
	}
	token, err := auth.SignJWT(tid, h.Cfg.JWTSecret, h.Cfg.TokenTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to sign token")
		return
	}

	common.OK(c, gin.H{"tenant_id": tid, "token": token, "webhook_secret": secret})
}

func (h *Handler) IssueToken(c *gin.Context) {
	tid := c.Param("tenant_id")
	if _, err := h.Tenants.GetProfile(c.Request.Context(), tid); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "tenant not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to load tenant")
		return
	}
	token, err := auth.SignJWT(tid, h.Cfg.JWTSecret, h.Cfg.TokenTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to sign token")
		return
	}
	common.OK(c, gin.H{"token": token})
}

func (h *Handler) GetProfile(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	p, err := h.Tenants.GetProfile(c.Request.Context(), tid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "tenant not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to load tenant")
		return
	}
	common.OK(c, p)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	var req profileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if !validChannels(req.NotifyChannels) {
		common.Fail(c, http.StatusBadRequest, 10004, "unknown notify channel")
		return
	}

	ctx := c.Request.Context()
	p, err := h.Tenants.GetProfile(ctx, tid)
	if err != nil {
		common.Fail(c, http.StatusNotFound, 40401, "tenant not found")
		return
	}
	req.apply(p)
	if err := h.Tenants.SaveProfile(ctx, p); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50005, "failed to save profile")
		return
	}
	common.OK(c, p)
}

func (h *Handler) RotateWebhookSecret(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	secret, err := newWebhookSecret()
	if err == nil {
		err = h.Tenants.SetWebhookSecret(c.Request.Context(), tid, secret)
	}
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to set webhook secret")
		return
	}
	common.OK(c, gin.H{"webhook_secret": secret})
}

type ruleReq struct {
	Kind       tenant.RuleKind `json:"kind" binding:"required"`
	Patterns   []string        `json:"patterns"`
	Confidence float64         `json:"confidence"`
	MaxRetries int             `json:"max_retries"`
	Action     string          `json:"action"`
}

func (h *Handler) ListRules(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	rules, err := h.Tenants.ListRules(c.Request.Context(), tid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50006, "failed to list rules")
		return
	}
	common.OK(c, gin.H{"rules": rules})
}

func (h *Handler) AddRule(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	var req ruleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	rule := &tenant.Rule{
		TenantID:   tid,
		Kind:       req.Kind,
		Patterns:   datatypes.JSONSlice[string](req.Patterns),
		Confidence: req.Confidence,
		MaxRetries: req.MaxRetries,
		Action:     req.Action,
	}
	if err := h.Tenants.AddRule(c.Request.Context(), rule); err != nil {
		switch {
		case errors.Is(err, tenant.ErrInvalidConfidence),
			errors.Is(err, tenant.ErrInvalidKind),
			errors.Is(err, tenant.ErrInvalidRule):
			common.Fail(c, http.StatusBadRequest, 10005, err.Error())
		default:
			common.Fail(c, http.StatusInternalServerError, 50007, "failed to save rule")
		}
		return
	}
	common.OK(c, rule)
}

func (h *Handler) DeleteRule(c *gin.Context) {
	tid, ok := requireTenant(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "invalid id")
		return
	}
	if err := h.Tenants.DeleteRule(c.Request.Context(), tid, id); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50008, "failed to delete rule")
		return
	}
	common.OK(c, gin.H{"deleted": id})
}
