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

func TestOllamaChat_SendsTokenLimit(t *testing.T) {
	var got ollamaChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaChatResp{Message: ollamaMsg{Role: RoleAssistant, Content: "True"}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3", time.Second)
	out, err := Generate(context.Background(), p, "sys", []Message{{Role: RoleUser, Content: "hi"}}, 1)
	require.NoError(t, err)
	assert.Equal(t, "True", out)

	require.NotNil(t, got.Options)
	assert.Equal(t, 1, got.Options.NumPredict)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[1].Content)
}

func TestOllamaChat_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3", time.Second)
	_, err := p.Chat(context.Background(), nil, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestOllamaEmbed_EmptyVectorFailsLoudly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResp{})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "nomic-embed-text", time.Second)
	_, err := e.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	reg := NewRegistry()
	reg.Register(" Fake ", func(ctx context.Context, model string) (Provider, error) {
		return NewOllamaProvider("", model, 0), nil
	})

	_, err := reg.Get(context.Background(), "fake", "m")
	require.NoError(t, err)

	_, err = reg.Get(context.Background(), "missing", "m")
	require.Error(t, err)
}
