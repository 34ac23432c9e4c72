package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/assist-platform/internal/common"
	"github.com/suPer8Hu/assist-platform/internal/httpapi/handlers"
	"github.com/suPer8Hu/assist-platform/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(h.Log))
	r.Use(middleware.Recovery(h.Log))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	// transport webhook (per-tenant secret)
	r.POST("/webhooks/:tenant_id/messages", h.InboundMessage)

	// provisioning
	admin := r.Group("/admin")
	admin.Use(middleware.AdminRequired(h.Cfg.AdminAPIKey))
	admin.POST("/tenants", h.CreateTenant)
	admin.POST("/tenants/:tenant_id/tokens", h.IssueToken)

	// tenant API (JWT required)
	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(h.Cfg.JWTSecret))

	authGroup.GET("/profile", h.GetProfile)
	authGroup.PUT("/profile", h.UpdateProfile)
	authGroup.POST("/profile/webhook-secret", h.RotateWebhookSecret)
	authGroup.GET("/rules", h.ListRules)
	authGroup.POST("/rules", h.AddRule)
	authGroup.DELETE("/rules/:id", h.DeleteRule)

	authGroup.POST("/knowledge/documents", h.IngestDocument)
	authGroup.DELETE("/knowledge/documents/:id", h.DeleteDocument)
	authGroup.GET("/knowledge/faqs", h.ListFaqs)
	authGroup.POST("/knowledge/faqs", h.CreateFaq)
	authGroup.PUT("/knowledge/faqs/:id", h.UpdateFaq)
	authGroup.DELETE("/knowledge/faqs/:id", h.DeleteFaq)
	authGroup.POST("/knowledge/search", h.Search)

	authGroup.GET("/conversations/:conversation_id/messages", h.ListConversationMessages)
	authGroup.GET("/escalations/:conversation_id", h.GetEscalation)
	authGroup.DELETE("/escalations/:conversation_id", h.ResolveEscalation)
	authGroup.GET("/notices", h.ListNotices)
	return r
}
