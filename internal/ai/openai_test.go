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

func openAIServer(t *testing.T, path, body string, got any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, path, r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIChat_SendsTokenLimit(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := openAIServer(t, "/chat/completions",
		`{"choices":[{"index":0,"message":{"role":"assistant","content":"True"}}]}`, &got)

	p := NewOpenAIProvider("key", srv.URL, "gpt-4o-mini", time.Second)
	out, err := Generate(context.Background(), p, "sys", []Message{{Role: RoleUser, Content: "hi"}}, 1)
	require.NoError(t, err)
	assert.Equal(t, "True", out)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 1, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[1].Content)
}

func TestOpenAIChat_EmptyChoices(t *testing.T) {
	srv := openAIServer(t, "/chat/completions", `{"choices":[]}`, nil)

	p := NewOpenAIProvider("key", srv.URL, "gpt-4o-mini", time.Second)
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestOpenAIEmbed(t *testing.T) {
	var got struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	srv := openAIServer(t, "/embeddings",
		`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,-0.25]}],"model":"text-embedding-3-small"}`, &got)

	e := NewOpenAIEmbedder("key", srv.URL, "text-embedding-3-small", time.Second)
	v, err := e.Embed(context.Background(), "refund policy")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25}, v)
	assert.Equal(t, []string{"refund policy"}, got.Input)
	assert.Equal(t, "text-embedding-3-small", got.Model)
}

func TestOpenAIEmbed_EmptyEmbedding(t *testing.T) {
	srv := openAIServer(t, "/embeddings", `{"object":"list","data":[]}`, nil)

	e := NewOpenAIEmbedder("key", srv.URL, "text-embedding-3-small", time.Second)
	_, err := e.Embed(context.Background(), "refund policy")
	require.ErrorIs(t, err, ErrEmptyEmbedding)
}
