package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_Defaults(t *testing.T) {
	p, err := New("", "")
	require.NoError(t, err)
	assert.Equal(t, defaultEndpoint, p.endpoint)
	assert.Equal(t, defaultModel, p.model)

	p, err = New("http://custom:8080/", "llama3")
	require.NoError(t, err)
	assert.Equal(t, "http://custom:8080", p.endpoint)
	assert.Equal(t, "llama3", p.model)
}

func TestChat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"message":{"role":"assistant","content":"ok"},"done":true,
			"done_reason":"stop","prompt_eval_count":7,"eval_count":2}`))
	}))
	defer srv.Close()

	p, _ := New(srv.URL, "llama3")
	req := llm.UserPrompt("sys", "hello")
	req.JSONMode = true
	resp, err := p.Chat(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, llm.Usage{InputTokens: 7, OutputTokens: 2}, resp.Usage)
	assert.Equal(t, "stop", resp.FinishReason)

	assert.False(t, got.Stream)
	assert.Equal(t, "json", got.Format)
	assert.Equal(t, llm.DefaultMaxTokens, got.Options.NumPredict)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, message{Role: "system", Content: "sys"}, got.Messages[0])
}

func TestChat_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model \"x\" not found"}`))
	}))
	defer srv.Close()

	p, _ := New(srv.URL, "x")
	_, err := p.Chat(context.Background(), llm.UserPrompt("", "hi"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrLLMFailed))
	assert.Contains(t, err.Error(), `model "x" not found`)
}
