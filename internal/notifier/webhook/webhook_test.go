package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhook_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Webhook)(nil)
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New("", nil)
	assert.Error(t, err)
}

func TestWebhook_Send(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("X-Api-Key")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	wh, err := New(srv.URL, map[string]string{"X-Api-Key": "k"})
	require.NoError(t, err)

	sig := core.Signal{ID: "s1", Symbol: "TCS", Action: core.ActionBuy, Entry: 100, Target: 110, StopLoss: 95, RiskReward: 2}
	require.NoError(t, wh.Send(context.Background(), sig))

	assert.Equal(t, "k", auth)
	assert.Equal(t, "signal", got["type"])
	assert.Equal(t, sig.Summary(), got["summary"])
	assert.Equal(t, "s1", got["signal"].(map[string]any)["id"])
}

func TestWebhook_SendBatch(t *testing.T) {
	var got map[string]any
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	wh, _ := New(srv.URL, nil)
	require.NoError(t, wh.SendBatch(context.Background(), nil))
	assert.Zero(t, calls)

	require.NoError(t, wh.SendBatch(context.Background(), []core.Signal{{ID: "a"}, {ID: "b"}}))
	assert.Equal(t, "batch", got["type"])
	assert.Equal(t, 2.0, got["count"])
	assert.Len(t, got["signals"], 2)
}

func TestWebhook_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh, _ := New(srv.URL, nil)
	err := wh.Send(context.Background(), core.Signal{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
