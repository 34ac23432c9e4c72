package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr  string
	LogMode   string
	DBDSN     string
	JWTSecret string
	TokenTTL  time.Duration

	// AdminAPIKey guards tenant provisioning; empty disables it.
	AdminAPIKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	SMSWebhookURL string

	ChatContextWindowSize int
	CooldownWindow        time.Duration
	ReassureInterval      time.Duration

	// knowledge / retrieval
	ChunkTargetTokens int
	ChunkOverlap      int
	DocFloor          float64
	FaqFloor          float64
	TopDocK           int
	TopFaqK           int

	// AI provider
	AIProvider        string
	ReplyMaxTokens    int
	OllamaBaseURL     string
	OllamaModel       string
	OllamaEmbedModel  string
	OpenRouterBaseURL string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterSiteURL string
	OpenRouterAppName string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIEmbedModel  string
	EmbeddingProvider string
	AITimeout         time.Duration

	// rabbitMQ; empty URL dispatches notifications in-process
	RabbitURL   string
	RabbitQueue string
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func Load() Config {
	// DSN demo：
	// app:apppass@tcp(127.0.0.1:3306)/assist?charset=utf8mb4&parseTime=true&loc=Local
	// sqlite:assist.db
	dsn := envString("DB_DSN", "app:apppass@tcp(127.0.0.1:3306)/assist?charset=utf8mb4&parseTime=true&loc=Local")

	smtpUser := os.Getenv("SMTP_USER")

	return Config{
		HTTPAddr:  envString("HTTP_ADDR", ":8080"),
		LogMode:   envString("LOG_MODE", "dev"),
		DBDSN:     dsn,
		JWTSecret: envString("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:  envDuration("TOKEN_TTL", 30*24*time.Hour),

		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: envInt("SMTP_PORT", 587),
		SMTPUser: smtpUser,
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: envString("SMTP_FROM", smtpUser),

		SMSWebhookURL: os.Getenv("SMS_WEBHOOK_URL"),

		ChatContextWindowSize: envInt("CHAT_CONTEXT_WINDOW_SIZE", 20),
		CooldownWindow:        envDuration("COOLDOWN_WINDOW", 5*time.Second),
		ReassureInterval:      envDuration("REASSURE_INTERVAL", 10*time.Minute),

		ChunkTargetTokens: envInt("CHUNK_TARGET_TOKENS", 300),
		ChunkOverlap:      envInt("CHUNK_OVERLAP", 30),
		DocFloor:          envFloat("RETRIEVAL_DOC_FLOOR", 0.30),
		FaqFloor:          envFloat("RETRIEVAL_FAQ_FLOOR", 0.50),
		TopDocK:           envInt("RETRIEVAL_TOP_DOCS", 4),
		TopFaqK:           envInt("RETRIEVAL_TOP_FAQS", 3),

		AIProvider:        envString("AI_PROVIDER", "openai"),
		ReplyMaxTokens:    envInt("REPLY_MAX_TOKENS", 400),
		OllamaBaseURL:     envString("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:       envString("OLLAMA_MODEL", "llama3:latest"),
		OllamaEmbedModel:  envString("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		OpenRouterBaseURL: envString("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:   envString("OPENROUTER_MODEL", "openrouter/auto"),
		OpenRouterSiteURL: os.Getenv("OPENROUTER_SITE_URL"),
		OpenRouterAppName: os.Getenv("OPENROUTER_APP_NAME"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:       envString("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel:  envString("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		EmbeddingProvider: envString("EMBEDDING_PROVIDER", "openai"),
		AITimeout:         envDuration("AI_TIMEOUT", 60*time.Second),

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: envString("RABBIT_QUEUE", "escalation_notifications"),
	}
}
