package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/signaldesk/internal/config"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/insight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signalsBody = `{"executed_signals":[],"non_executed_signals":[
	{"id":"sig-1","signal_type":"BUY CALL","index":"NIFTY","strike":22500,"option_type":"CE",
	 "entry":100,"target":130,"stop_loss":90,"rrr":3,"confidence":0.9}]}`

func backend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/signals/available", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(signalsBody))
	})
	mux.HandleFunc("/market/data", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"nifty":{"price":22500,"change":10,"changePercent":0.05},"marketStatus":"OPEN",
			"marketOpenTime":"09:15:00","marketCloseTime":"15:30:00","serverTime":"2025-03-03T10:15:00"}`))
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"role":"assistant","content":"{\"verdict\":\"TAKE\",\"confidence\":75,\"reasoning\":\"clean setup\"}"},"done":true}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	cfg := config.Defaults()
	cfg.API.BaseURL = baseURL
	cfg.Storage.Type = "memory"
	return cfg
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig("not a url")
	_, err := New(context.Background(), cfg, nil)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestNew_BadNotifier(t *testing.T) {
	cfg := testConfig("http://localhost:8000")
	cfg.Notifiers = map[string]config.NotifierConfig{"telegram": {Enabled: true}}
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestApp_LoginSyncExplain(t *testing.T) {
	be := backend(t)
	cfg := testConfig(be.URL)
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Ollama.Endpoint = be.URL

	ctx := context.Background()
	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Explain(ctx, "sig-1")
	assert.True(t, errors.Is(err, core.ErrUnauthenticated), "explain needs a session")

	require.NoError(t, a.Login(ctx, "tok", "u1"))
	require.NoError(t, a.Poller().Sync(ctx))

	held := a.Poller().Signals()
	require.Len(t, held.NonExecuted, 1)
	assert.Equal(t, 90, held.NonExecuted[0].Confidence)

	md, ok := a.Poller().Market()
	require.True(t, ok)
	assert.True(t, md.IsOpen())

	out, err := a.Explain(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, insight.VerdictTake, out.Verdict)
	assert.Equal(t, "ollama", out.Provider)

	_, err = a.Explain(ctx, "missing")
	assert.True(t, errors.Is(err, core.ErrSignalNotFound))

	require.NoError(t, a.Logout(ctx))
	assert.False(t, a.Session().Valid(ctx))
}

func TestApp_ExplainWithoutProvider(t *testing.T) {
	a, err := New(context.Background(), testConfig("http://localhost:8000"), nil)
	require.NoError(t, err)
	_, err = a.Explain(context.Background(), "x")
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestApp_Serve(t *testing.T) {
	be := backend(t)
	cfg := testConfig(be.URL)
	cfg.Server.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Login(ctx, "tok", ""))

	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/v1/signals", cfg.Server.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 50*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", cfg.Server.Port))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestApp_Watch(t *testing.T) {
	be := backend(t)
	a, err := New(context.Background(), testConfig(be.URL), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.True(t, errors.Is(a.Watch(ctx), core.ErrUnauthenticated))

	require.NoError(t, a.Login(ctx, "tok", ""))
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx) }()

	require.Eventually(t, func() bool {
		return len(a.Poller().Signals().NonExecuted) == 1
	}, 3*time.Second, 20*time.Millisecond, "initial cycle ran")

	cancel()
	assert.NoError(t, <-done)
}
