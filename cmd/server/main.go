package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/suPer8Hu/assist-platform/internal/ai"
	"github.com/suPer8Hu/assist-platform/internal/config"
	"github.com/suPer8Hu/assist-platform/internal/cooldown"
	"github.com/suPer8Hu/assist-platform/internal/db"
	"github.com/suPer8Hu/assist-platform/internal/httpapi"
	"github.com/suPer8Hu/assist-platform/internal/httpapi/handlers"
	"github.com/suPer8Hu/assist-platform/internal/logger"
	"github.com/suPer8Hu/assist-platform/internal/notify"
	"github.com/suPer8Hu/assist-platform/internal/store/rabbitmq"
	"github.com/suPer8Hu/assist-platform/internal/store/redisstore"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	if err := db.Migrate(gdb, db.Models()...); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Provider registry (AI_PROVIDER picks one)
	reg := newRegistry(cfg)
	provider, err := reg.Get(ctx, cfg.AIProvider, "")
	if err != nil {
		log.Fatal("ai provider", zap.Error(err), zap.Strings("available", reg.Names()))
	}

	var embedder ai.Embedder
	switch strings.ToLower(cfg.EmbeddingProvider) {
	case "", "openai":
		embedder = ai.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIEmbedModel, cfg.AITimeout)
	case "ollama":
		embedder = ai.NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.OllamaEmbedModel, cfg.AITimeout)
	default:
		log.Fatal("unsupported EMBEDDING_PROVIDER", zap.String("provider", cfg.EmbeddingProvider))
	}

	// cooldown: redis when configured so every instance shares the window
	var store cooldown.Store = cooldown.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rds.Ping(ctx); err != nil {
			log.Fatal("redis ping", zap.Error(err))
		}
		defer rds.Close()
		store = rds
	}

	// notifications: queue to cmd/worker when rabbit is configured, else fan out in-process
	var notifier notify.Notifier
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Fatal("rabbit publisher", zap.Error(err))
		}
		defer pub.Close()
		notifier = pub
	} else {
		notifier = notify.NewDispatcher(log.Named("notify"), notify.Channels(cfg, gdb)...)
	}

	h := handlers.NewHandler(gdb, cfg, log, handlers.Backends{
		Cooldown: store,
		Provider: provider,
		Embedder: embedder,
		Notifier: notifier,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server started", zap.String("addr", cfg.HTTPAddr), zap.String("ai_provider", cfg.AIProvider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

func newRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()

	reg.Register("openai", func(ctx context.Context, model string) (ai.Provider, error) {
		if model = strings.TrimSpace(model); model == "" {
			model = cfg.OpenAIModel
		}
		return ai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model, cfg.AITimeout), nil
	})
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		if model = strings.TrimSpace(model); model == "" {
			model = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model, cfg.AITimeout), nil
	})
	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		if cfg.OpenRouterAPIKey == "" {
			return nil, errors.New("OPENROUTER_API_KEY is not set")
		}
		if model = strings.TrimSpace(model); model == "" {
			model = cfg.OpenRouterModel
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, model,
			cfg.OpenRouterSiteURL, cfg.OpenRouterAppName, cfg.AITimeout), nil
	})
	return reg
}
