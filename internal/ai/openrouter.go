package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider uses OpenRouter's OpenAI-compatible API. The optional site
// URL and app name are sent as the attribution headers OpenRouter reads.
type OpenRouterProvider struct {
	inner  *OpenAIProvider
	apiKey string
}

// attributionTransport adds OpenRouter's attribution headers to each request.
type attributionTransport struct {
	base    http.RoundTripper
	siteURL string
	appName string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.siteURL != "" {
		req.Header.Set("HTTP-Referer", t.siteURL)
	}
	if t.appName != "" {
		req.Header.Set("X-Title", t.appName)
	}
	return t.base.RoundTrip(req)
}

func NewOpenRouterProvider(baseURL, apiKey, model, siteURL, appName string, timeout time.Duration) *OpenRouterProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &attributionTransport{
			base:    http.DefaultTransport,
			siteURL: siteURL,
			appName: appName,
		},
	}

	return &OpenRouterProvider{
		inner:  &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: strings.TrimSpace(model)},
		apiKey: apiKey,
	}
}

func (p *OpenRouterProvider) Chat(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return "", errors.New("openrouter: api key is required")
	}
	if p.inner.model == "" {
		return "", errors.New("openrouter: model is required")
	}
	out, err := p.inner.Chat(ctx, messages, maxTokens)
	if err != nil {
		return "", fmt.Errorf("openrouter: %w", err)
	}
	return out, nil
}
