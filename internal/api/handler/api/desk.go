// Package api holds the JSON handlers of the local dashboard API.
package api

import (
	"context"
	"encoding/json"

	"github.com/newthinker/signaldesk/internal/activity"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/insight"
	"github.com/newthinker/signaldesk/internal/poller"
	"github.com/newthinker/signaldesk/internal/prefs"
)

// Desk is the poller surface the handlers read and drive.
type Desk interface {
	Signals() core.SignalResponse
	Modules() map[core.Module][]core.Signal
	Market() (core.MarketData, bool)
	Logs() []activity.Entry
	Status() poller.Status
	Preferences() prefs.TradingPreferences
	SetPreferences(ctx context.Context, tp prefs.TradingPreferences) error
	Refresh(ctx context.Context) (bool, error)
	Execute(ctx context.Context, id string, quantity int64, price float64) (core.Signal, error)
	FetchModule(ctx context.Context, m core.Module) (core.SignalResponse, error)
	Reanalyze(ctx context.Context) (int, error)
	SaveForm(ctx context.Context, raw []byte) error
	Form(ctx context.Context) (json.RawMessage, error)
}

// Explainer produces a model opinion on a signal.
type Explainer interface {
	Explain(ctx context.Context, sig core.Signal, market *core.MarketData) (*insight.Explanation, error)
}
