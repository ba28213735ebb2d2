package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegram_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Telegram)(nil)
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New("", "chat")
	assert.Error(t, err)
	_, err = New("token", "")
	assert.Error(t, err)

	tg, err := New("token", "chat")
	require.NoError(t, err)
	assert.Equal(t, "telegram", tg.Name())
}

func newTestTelegram(t *testing.T, h http.HandlerFunc) *Telegram {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tg, err := New("test-token", "test-chat")
	require.NoError(t, err)
	tg.apiBase = srv.URL
	return tg
}

func TestTelegram_Send(t *testing.T) {
	var payload map[string]any
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&payload)
		w.Write([]byte(`{"ok":true}`))
	})

	err := tg.Send(context.Background(), core.Signal{
		Symbol: "NIFTY", Action: core.ActionBuy, Strike: 22500, OptionType: "CE",
		Entry: 120, Target: 150, StopLoss: 105, Confidence: 91, RiskReward: 2,
		Strategy: "scalp", Timeframe: "5m",
		GeneratedAt: time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "test-chat", payload["chat_id"])
	text := payload["text"].(string)
	assert.Contains(t, text, "*NIFTY 22500 CE* - BUY")
	assert.Contains(t, text, "Confidence: 91%")
	assert.Contains(t, text, "2025-03-03 10:00:00")
}

func TestTelegram_SendBatch(t *testing.T) {
	var text string
	calls := 0
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		text = payload["text"].(string)
	})

	require.NoError(t, tg.SendBatch(context.Background(), nil))
	assert.Zero(t, calls)

	require.NoError(t, tg.SendBatch(context.Background(), []core.Signal{
		{Symbol: "TCS", Action: core.ActionBuy},
		{Symbol: "INFY", Action: core.ActionSell},
	}))
	assert.Equal(t, 1, calls)
	assert.True(t, strings.HasPrefix(text, "📊 *2 new signals*"))
	assert.Contains(t, text, "📉 *INFY* - SELL")
}

func TestTelegram_APIError(t *testing.T) {
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	})

	err := tg.Send(context.Background(), core.Signal{Symbol: "TCS"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
