package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRouterChat_SendsAttributionAndTokenLimit(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "https://example.test", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "assist", r.Header.Get("X-Title"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"False"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "key", "openrouter/auto", "https://example.test", "assist", time.Second)
	out, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 1)
	require.NoError(t, err)
	assert.Equal(t, "False", out)
	assert.Equal(t, "openrouter/auto", got.Model)
	assert.Equal(t, 1, got.MaxTokens)
}

func TestOpenRouterChat_RequiresKey(t *testing.T) {
	p := NewOpenRouterProvider("", "", "openrouter/auto", "", "", 0)
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0)
	require.Error(t, err)
}

func TestOpenRouterChat_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "key", "m", "", "", time.Second)
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openrouter")
}
