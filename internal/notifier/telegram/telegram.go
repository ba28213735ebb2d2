// Package telegram sends signal notifications through the Telegram Bot API
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/signaldesk/internal/core"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) (*Telegram, error) {
	if botToken == "" {
		return nil, fmt.Errorf("telegram: bot_token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("telegram: chat_id is required")
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Send(ctx context.Context, signal core.Signal) error {
	return t.sendMessage(ctx, formatSignal(signal))
}

func (t *Telegram) SendBatch(ctx context.Context, signals []core.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 *%d new signals*\n\n", len(signals))
	for i, signal := range signals {
		sb.WriteString(formatSignal(signal))
		if i < len(signals)-1 {
			sb.WriteString("\n---\n\n")
		}
	}
	return t.sendMessage(ctx, sb.String())
}

func formatSignal(signal core.Signal) string {
	var sb strings.Builder

	actionEmoji := "📈"
	if signal.Action == core.ActionSell {
		actionEmoji = "📉"
	}

	name := signal.Symbol
	if signal.OptionType != "" && signal.Strike > 0 {
		name = fmt.Sprintf("%s %.0f %s", signal.Symbol, signal.Strike, signal.OptionType)
	}

	fmt.Fprintf(&sb, "%s *%s* - %s\n", actionEmoji, name, strings.ToUpper(string(signal.Action)))
	fmt.Fprintf(&sb, "💰 Entry: %.2f | 🎯 Target: %.2f | 🛑 SL: %.2f\n", signal.Entry, signal.Target, signal.StopLoss)
	fmt.Fprintf(&sb, "📊 Confidence: %d%% | R:R %.2f\n", signal.Confidence, signal.RiskReward)
	if signal.Strategy != "" {
		fmt.Fprintf(&sb, "🧭 %s / %s\n", signal.Strategy, signal.Timeframe)
	}
	if !signal.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "⏰ %s", signal.GeneratedAt.Format("2006-01-02 15:04:05"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result["description"])
	}
	return nil
}
