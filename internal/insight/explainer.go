// Package insight asks a language model for a second opinion on a signal.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/llm"
	"go.uber.org/zap"
)

// Verdict is the model's recommendation for a signal
type Verdict string

const (
	VerdictTake Verdict = "TAKE"
	VerdictSkip Verdict = "SKIP"
	VerdictWait Verdict = "WAIT"
)

// Explanation is the model's reading of a signal.
type Explanation struct {
	SignalID   string   `json:"signal_id"`
	Verdict    Verdict  `json:"verdict"`
	Confidence int      `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Risks      []string `json:"risks"`
	Provider   string   `json:"provider"`
}

// Explainer builds prompts from signals and market snapshots.
type Explainer struct {
	llm    llm.Provider
	logger *zap.Logger
}

// New creates an explainer backed by provider.
func New(provider llm.Provider, logger *zap.Logger) *Explainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Explainer{llm: provider, logger: logger}
}

// Explain asks the model whether sig is worth taking. market may be nil.
func (e *Explainer) Explain(ctx context.Context, sig core.Signal, market *core.MarketData) (*Explanation, error) {
	if sig.ID == "" {
		return nil, core.WrapError(core.ErrSignalNotFound, errors.New("signal has no id"))
	}

	req := llm.UserPrompt(systemPrompt, buildPrompt(sig, market))
	req.MaxTokens = 1024
	req.Temperature = 0.3
	req.JSONMode = true

	resp, err := e.llm.Chat(ctx, req)
	if err != nil {
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}
	e.logger.Debug("signal explained",
		zap.String("signal_id", sig.ID),
		zap.String("provider", e.llm.Name()),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)

	out, ok := parseJSON(resp.Content)
	if !ok {
		out = parseText(resp.Content)
	}
	out.SignalID = sig.ID
	out.Provider = e.llm.Name()
	return out, nil
}

func buildPrompt(sig core.Signal, market *core.MarketData) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Signal: %s\n", sig.Summary())
	fmt.Fprintf(&sb, "- Module: %s, strategy %s, timeframe %s\n", sig.Module, sig.Strategy, sig.Timeframe)
	fmt.Fprintf(&sb, "- Backend confidence: %d/100\n", sig.Confidence)
	fmt.Fprintf(&sb, "- Potential gain: %.2f%%\n", sig.PotentialGain)
	if len(sig.Indicators) > 0 {
		fmt.Fprintf(&sb, "- Indicators: %s\n", strings.Join(sig.Indicators, ", "))
	}
	if len(sig.Patterns) > 0 {
		fmt.Fprintf(&sb, "- Patterns: %s\n", strings.Join(sig.Patterns, ", "))
	}
	if sig.Analysis != "" {
		fmt.Fprintf(&sb, "- Backend analysis: %s\n", sig.Analysis)
	}
	sb.WriteString("\n")

	if market != nil {
		sb.WriteString("## Market:\n")
		fmt.Fprintf(&sb, "- Status: %s\n", market.Status)
		fmt.Fprintf(&sb, "- NIFTY %.2f (%+.2f%%)\n", market.Nifty.Price, market.Nifty.ChangePercent)
		fmt.Fprintf(&sb, "- BANKNIFTY %.2f (%+.2f%%)\n", market.BankNifty.Price, market.BankNifty.ChangePercent)
		sb.WriteString("\n")
	}

	sb.WriteString("## Task:\n")
	sb.WriteString("Assess the trade. Respond with JSON containing: verdict (TAKE/SKIP/WAIT), ")
	sb.WriteString("confidence (0-100), reasoning, risks (list of short strings).\n")
	return sb.String()
}

func parseJSON(content string) (*Explanation, bool) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw struct {
		Verdict    string   `json:"verdict"`
		Confidence float64  `json:"confidence"`
		Reasoning  string   `json:"reasoning"`
		Risks      []string `json:"risks"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, false
	}
	conf := raw.Confidence
	if conf > 0 && conf <= 1 {
		conf *= 100
	}
	out := &Explanation{
		Verdict:    parseVerdict(raw.Verdict),
		Confidence: clamp(int(conf+0.5), 0, 100),
		Reasoning:  raw.Reasoning,
		Risks:      raw.Risks,
	}
	if out.Risks == nil {
		out.Risks = []string{}
	}
	return out, true
}

// parseText falls back to keyword matching when the model ignores JSON mode.
func parseText(text string) *Explanation {
	out := &Explanation{Verdict: VerdictWait, Confidence: 50, Reasoning: text, Risks: []string{}}
	u := strings.ToUpper(text)
	take := strings.Contains(u, "TAKE")
	skip := strings.Contains(u, "SKIP") || strings.Contains(u, "AVOID")
	switch {
	case take && !skip:
		out.Verdict = VerdictTake
	case skip && !take:
		out.Verdict = VerdictSkip
	}
	return out
}

func parseVerdict(s string) Verdict {
	switch v := Verdict(strings.ToUpper(strings.TrimSpace(s))); v {
	case VerdictTake, VerdictSkip, VerdictWait:
		return v
	case "BUY", "SELL":
		return VerdictTake
	case "HOLD":
		return VerdictWait
	}
	return VerdictWait
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

const systemPrompt = `You review trading signals for an Indian equity and index options desk.
For each signal, judge whether the entry, target and stop loss make sense given the
strategy, the backend's confidence, and the current market.

Always respond with valid JSON in this format:
{
  "verdict": "TAKE" | "SKIP" | "WAIT",
  "confidence": 0-100,
  "reasoning": "short explanation",
  "risks": ["risk one", "risk two"]
}

Prefer WAIT when the market is closed or the information is thin.`
