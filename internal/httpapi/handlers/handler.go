package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/assist-platform/internal/ai"
	"github.com/suPer8Hu/assist-platform/internal/chat"
	"github.com/suPer8Hu/assist-platform/internal/common"
	"github.com/suPer8Hu/assist-platform/internal/config"
	"github.com/suPer8Hu/assist-platform/internal/cooldown"
	"github.com/suPer8Hu/assist-platform/internal/escalation"
	"github.com/suPer8Hu/assist-platform/internal/httpapi/middleware"
	"github.com/suPer8Hu/assist-platform/internal/intervention"
	"github.com/suPer8Hu/assist-platform/internal/knowledge"
	"github.com/suPer8Hu/assist-platform/internal/notify"
	"github.com/suPer8Hu/assist-platform/internal/retrieval"
	"github.com/suPer8Hu/assist-platform/internal/tenant"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Backends are the pluggable collaborators chosen at startup.
type Backends struct {
	Cooldown cooldown.Store
	Provider ai.Provider
	Embedder ai.Embedder
	Notifier notify.Notifier
}

type Handler struct {
	DB          *gorm.DB
	Cfg         config.Config
	Log         *zap.Logger
	Tenants     *tenant.Repo
	Knowledge   *knowledge.Service
	Retriever   *retrieval.Retriever
	Escalations *escalation.Machine
	Notices     *notify.DashboardChannel
	ChatSvc     *chat.Service
}

func NewHandler(db *gorm.DB, cfg config.Config, log *zap.Logger, b Backends) *Handler {
	tenants := tenant.NewRepo(db)
	kb := knowledge.NewRepo(db, b.Embedder)
	retriever := retrieval.New(kb, b.Embedder,
		retrieval.WithFloors(cfg.DocFloor, cfg.FaqFloor),
		retrieval.WithDefaultK(cfg.TopDocK, cfg.TopFaqK))
	machine := escalation.NewMachine(db)

	chatSvc := chat.NewService(chat.Deps{
		Repo:              chat.NewRepo(db),
		Tenants:           tenants,
		Gate:              cooldown.NewGate(b.Cooldown, cfg.CooldownWindow),
		Classifier:        intervention.NewClassifier(intervention.NewOracle(b.Provider, log.Named("classifier"))),
		Machine:           machine,
		Retriever:         retriever,
		Provider:          b.Provider,
		Notifier:          b.Notifier,
		Log:               log.Named("chat"),
		ContextWindowSize: cfg.ChatContextWindowSize,
		ReplyMaxTokens:    cfg.ReplyMaxTokens,
		ReassureInterval:  cfg.ReassureInterval,
	})

	return &Handler{
		DB:          db,
		Cfg:         cfg,
		Log:         log,
		Tenants:     tenants,
		Knowledge:   knowledge.NewService(kb, cfg.ChunkTargetTokens, cfg.ChunkOverlap, log.Named("knowledge")),
		Retriever:   retriever,
		Escalations: machine,
		Notices:     notify.NewDashboardChannel(db),
		ChatSvc:     chatSvc,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func tenantIDFromContext(c *gin.Context) (string, bool) {
	tid := c.GetString(middleware.TenantIDKey)
	return tid, tid != ""
}

// requireTenant writes 401 and returns false when the request carries no tenant.
func requireTenant(c *gin.Context) (string, bool) {
	tid, ok := tenantIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
	}
	return tid, ok
}
