package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Instrument is the class of instrument a signal trades
type Instrument string

const (
	InstrumentEquity Instrument = "equity"
	InstrumentOption Instrument = "option"
	InstrumentFuture Instrument = "future"
)

// Module is the dashboard section a signal is shown under
type Module string

const (
	ModuleOptions  Module = "options"
	ModuleEquity   Module = "equity"
	ModuleIntraday Module = "intraday"
)

// Action represents the direction of a trading signal
type Action string

const (
	ActionBuy     Action = "buy"
	ActionSell    Action = "sell"
	ActionUnknown Action = "UNKNOWN"
)

// Signal is the canonical view of a backend trade signal.
// Confidence is always an integer score on a 0-100 scale.
type Signal struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Instrument Instrument `json:"instrument"`
	Module     Module     `json:"module"`
	Action     Action     `json:"action"`

	Entry         float64 `json:"entry"`
	Target        float64 `json:"target"`
	StopLoss      float64 `json:"stop_loss"`
	Quantity      int64   `json:"quantity"`
	PotentialGain float64 `json:"potential_gain"`
	RiskReward    float64 `json:"risk_reward"`

	Strategy   string `json:"strategy"`
	Timeframe  string `json:"timeframe"`
	Confidence int    `json:"confidence_score"`

	Indicators []string `json:"indicators"`
	Patterns   []string `json:"patterns"`
	Analysis   string   `json:"analysis,omitempty"`

	// Option-only fields
	Index      string  `json:"index,omitempty"`
	Strike     float64 `json:"strike,omitempty"`
	OptionType string  `json:"option_type,omitempty"`

	GeneratedAt time.Time  `json:"generated_at"`
	Executed    bool       `json:"executed"`
	OrderID     string     `json:"order_id,omitempty"`
	ExecutedAt  *time.Time `json:"executed_at,omitempty"`
}

// MarkExecuted returns a copy of the signal carrying execution metadata.
// The transition is one-way; an executed signal is returned unchanged.
func (s Signal) MarkExecuted(orderID string, at time.Time) Signal {
	if s.Executed {
		return s
	}
	s.Executed = true
	s.OrderID = orderID
	s.ExecutedAt = &at
	return s
}

// IsConsistent reports whether execution metadata matches the executed flag.
func (s Signal) IsConsistent() bool {
	if s.Executed {
		return s.OrderID != "" && s.ExecutedAt != nil
	}
	return true
}

// Summary is the one-line human-readable form used in activity entries and
// notifications, e.g. "BUY TCS @ 3500.00, target 3675.00, stop 3450.00, R:R 2.50".
func (s Signal) Summary() string {
	name := s.Symbol
	if s.Strike > 0 && s.OptionType != "" {
		name = fmt.Sprintf("%s %.0f %s", s.Symbol, s.Strike, s.OptionType)
	}
	return fmt.Sprintf("%s %s @ %.2f, target %.2f, stop %.2f, R:R %.2f",
		strings.ToUpper(string(s.Action)), name, s.Entry, s.Target, s.StopLoss, s.RiskReward)
}

// SignalResponse partitions signals by execution state.
// A signal id lives in exactly one of the two collections.
type SignalResponse struct {
	NonExecuted []Signal `json:"non_executed"`
	Executed    []Signal `json:"executed"`
}

// Partition splits signals by their executed flag. When an id appears more than
// once the executed copy wins.
func Partition(signals []Signal) SignalResponse {
	executed := make(map[string]struct{})
	resp := SignalResponse{NonExecuted: []Signal{}, Executed: []Signal{}}
	for _, s := range signals {
		if s.Executed {
			if _, dup := executed[s.ID]; dup {
				continue
			}
			executed[s.ID] = struct{}{}
			resp.Executed = append(resp.Executed, s)
		}
	}
	seen := make(map[string]struct{})
	for _, s := range signals {
		if s.Executed {
			continue
		}
		if _, done := executed[s.ID]; done {
			continue
		}
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		resp.NonExecuted = append(resp.NonExecuted, s)
	}
	return resp
}

// NonExecutedIDs returns the set of ids awaiting execution.
func (r SignalResponse) NonExecutedIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(r.NonExecuted))
	for _, s := range r.NonExecuted {
		ids[s.ID] = struct{}{}
	}
	return ids
}

// Find looks up a signal in either collection.
func (r SignalResponse) Find(id string) (Signal, bool) {
	for _, s := range r.NonExecuted {
		if s.ID == id {
			return s, true
		}
	}
	for _, s := range r.Executed {
		if s.ID == id {
			return s, true
		}
	}
	return Signal{}, false
}

// All returns both collections, non-executed first.
func (r SignalResponse) All() []Signal {
	out := make([]Signal, 0, len(r.NonExecuted)+len(r.Executed))
	out = append(out, r.NonExecuted...)
	return append(out, r.Executed...)
}

// Execute moves the signal with the given id into the executed collection.
// The receiver is not modified.
func (r SignalResponse) Execute(id, orderID string, at time.Time) (SignalResponse, error) {
	idx := -1
	for i, s := range r.NonExecuted {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		for _, s := range r.Executed {
			if s.ID == id {
				return r, ErrAlreadyExecuted
			}
		}
		return r, ErrSignalNotFound
	}

	next := SignalResponse{
		NonExecuted: make([]Signal, 0, len(r.NonExecuted)-1),
		Executed:    make([]Signal, 0, len(r.Executed)+1),
	}
	next.NonExecuted = append(next.NonExecuted, r.NonExecuted[:idx]...)
	next.NonExecuted = append(next.NonExecuted, r.NonExecuted[idx+1:]...)
	next.Executed = append(next.Executed, r.NonExecuted[idx].MarkExecuted(orderID, at))
	next.Executed = append(next.Executed, r.Executed...)
	return next, nil
}

// MarketStatus is the exchange session state
type MarketStatus string

const (
	MarketOpen   MarketStatus = "open"
	MarketClosed MarketStatus = "closed"
)

// IndexQuote is the price/change triple for a tracked index
type IndexQuote struct {
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// MarketData is a point-in-time snapshot of the tracked indices.
type MarketData struct {
	Nifty      IndexQuote   `json:"nifty"`
	BankNifty  IndexQuote   `json:"banknifty"`
	Status     MarketStatus `json:"marketStatus"`
	OpenTime   string       `json:"marketOpenTime"`
	CloseTime  string       `json:"marketCloseTime"`
	ServerTime time.Time    `json:"serverTime"`
}

// UnmarshalJSON accepts server timestamps with or without a zone offset.
func (m *MarketData) UnmarshalJSON(data []byte) error {
	type plain MarketData
	aux := struct {
		*plain
		ServerTime string `json:"serverTime"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.ServerTime, _ = ParseTimestamp(aux.ServerTime)
	m.Status = MarketStatus(strings.ToLower(string(m.Status)))
	return nil
}

// IsOpen reports whether the backend considers the market open
func (m MarketData) IsOpen() bool {
	return m.Status == MarketOpen
}

// sessionBounds resolves the open/close clock times on the server's date.
func (m MarketData) sessionBounds() (time.Time, time.Time, bool) {
	if m.ServerTime.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	open, err := time.Parse("15:04:05", m.OpenTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	closeAt, err := time.Parse("15:04:05", m.CloseTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	y, mo, d := m.ServerTime.Date()
	loc := m.ServerTime.Location()
	return time.Date(y, mo, d, open.Hour(), open.Minute(), open.Second(), 0, loc),
		time.Date(y, mo, d, closeAt.Hour(), closeAt.Minute(), closeAt.Second(), 0, loc),
		true
}

// Elapsed is the time since the session opened, clamped to the session length.
func (m MarketData) Elapsed() time.Duration {
	open, closeAt, ok := m.sessionBounds()
	if !ok || m.ServerTime.Before(open) {
		return 0
	}
	if m.ServerTime.After(closeAt) {
		return closeAt.Sub(open)
	}
	return m.ServerTime.Sub(open)
}

// Remaining is the time left until the session closes.
func (m MarketData) Remaining() time.Duration {
	open, closeAt, ok := m.sessionBounds()
	if !ok || m.ServerTime.After(closeAt) {
		return 0
	}
	if m.ServerTime.Before(open) {
		return closeAt.Sub(open)
	}
	return closeAt.Sub(m.ServerTime)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats the backend emits. Zone-less
// values are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExecutionResult is the backend's answer to an execute request
type ExecutionResult struct {
	OrderID    string `json:"order_id"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	ExecutedAt string `json:"executed_at,omitempty"`
}

// ReportAnalysis is the AI analysis returned for an uploaded report
type ReportAnalysis struct {
	Status   string         `json:"status"`
	Analysis map[string]any `json:"analysis,omitempty"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Summary returns the model's free-text answer if present.
func (r ReportAnalysis) Summary() string {
	if s, ok := r.Analysis["gpt_response"].(string); ok {
		return s
	}
	return ""
}
