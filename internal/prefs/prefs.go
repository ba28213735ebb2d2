// Package prefs holds the user's trading preferences and turns them into the
// signal query sent to the backend.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/storage/kv"
)

// Option modes understood by the backend processors.
const (
	ModeScalp    = "scalp"
	ModeSwing    = "swing"
	ModeLongterm = "longterm"
)

// Options configures index option signals.
type Options struct {
	Enabled bool     `json:"enabled"`
	Indexes []string `json:"indexes"`
	Modes   []string `json:"modes"`
}

// Intraday configures intraday equity scans.
type Intraday struct {
	Enabled       bool     `json:"enabled"`
	Sectors       []string `json:"sectors"`
	MarketCaps    []string `json:"marketCaps"`
	RiskPerTrade  float64  `json:"riskPerTrade"`
	ScanFrequency string   `json:"scanFrequency"`
}

// Equity configures swing equity signals.
type Equity struct {
	Enabled      bool     `json:"enabled"`
	Universe     []string `json:"universe"`
	Sectors      []string `json:"sectors"`
	MarketCaps   []string `json:"marketCaps"`
	RiskPerTrade float64  `json:"riskPerTrade"`
}

// TradingPreferences is saved and loaded as a whole.
type TradingPreferences struct {
	Options  Options  `json:"options"`
	Intraday Intraday `json:"intraday"`
	Equity   Equity   `json:"equity"`
}

// Defaults returns the preferences a new user starts with.
func Defaults() TradingPreferences {
	return TradingPreferences{
		Options: Options{
			Enabled: true,
			Indexes: []string{"NIFTY"},
			Modes:   []string{ModeScalp},
		},
		Intraday: Intraday{
			Sectors:       []string{"all"},
			MarketCaps:    []string{"large"},
			RiskPerTrade:  1,
			ScanFrequency: "5m",
		},
		Equity: Equity{
			Universe:     []string{"NIFTY50"},
			Sectors:      []string{"all"},
			MarketCaps:   []string{"large"},
			RiskPerTrade: 2,
		},
	}
}

// Field names a toggleable leaf list.
type Field string

const (
	OptionIndexes      Field = "options.indexes"
	OptionModes        Field = "options.modes"
	IntradaySectors    Field = "intraday.sectors"
	IntradayMarketCaps Field = "intraday.marketCaps"
	EquityUniverse     Field = "equity.universe"
	EquitySectors      Field = "equity.sectors"
	EquityMarketCaps   Field = "equity.marketCaps"
)

// Fields lists every toggleable field.
var Fields = []Field{
	OptionIndexes, OptionModes,
	IntradaySectors, IntradayMarketCaps,
	EquityUniverse, EquitySectors, EquityMarketCaps,
}

func (p *TradingPreferences) list(f Field) (*[]string, error) {
	switch f {
	case OptionIndexes:
		return &p.Options.Indexes, nil
	case OptionModes:
		return &p.Options.Modes, nil
	case IntradaySectors:
		return &p.Intraday.Sectors, nil
	case IntradayMarketCaps:
		return &p.Intraday.MarketCaps, nil
	case EquityUniverse:
		return &p.Equity.Universe, nil
	case EquitySectors:
		return &p.Equity.Sectors, nil
	case EquityMarketCaps:
		return &p.Equity.MarketCaps, nil
	}
	return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown preference field %q", f))
}

// Toggle adds value to the field's list or removes it. Removing the last
// selected value is a no-op. It reports whether the list changed.
func (p *TradingPreferences) Toggle(f Field, value string) (bool, error) {
	l, err := p.list(f)
	if err != nil {
		return false, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}
	next, changed := toggle(*l, value)
	*l = next
	return changed, nil
}

func toggle(list []string, value string) ([]string, bool) {
	i := slices.IndexFunc(list, func(s string) bool { return strings.EqualFold(s, value) })
	if i < 0 {
		return append(slices.Clone(list), value), true
	}
	if len(list) == 1 {
		return list, false
	}
	return slices.Delete(slices.Clone(list), i, i+1), true
}

// SetEnabled switches a whole section on or off.
func (p *TradingPreferences) SetEnabled(m core.Module, enabled bool) error {
	switch m {
	case core.ModuleOptions:
		p.Options.Enabled = enabled
	case core.ModuleIntraday:
		p.Intraday.Enabled = enabled
	case core.ModuleEquity:
		p.Equity.Enabled = enabled
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown module %q", m))
	}
	return nil
}

// Enabled reports whether signals of module m should be shown.
func (p TradingPreferences) Enabled(m core.Module) bool {
	switch m {
	case core.ModuleOptions:
		return p.Options.Enabled
	case core.ModuleIntraday:
		return p.Intraday.Enabled
	case core.ModuleEquity:
		return p.Equity.Enabled
	}
	return false
}

// Query builds the /signals/available parameters: one <index>=<mode> pair per
// selected index and mode, plus intraday/equity flags for enabled sections.
func (p TradingPreferences) Query() url.Values {
	q := url.Values{}
	if p.Options.Enabled {
		for _, idx := range p.Options.Indexes {
			key := strings.ToLower(idx)
			for _, mode := range p.Options.Modes {
				q.Add(key, strings.ToLower(mode))
			}
		}
	}
	if p.Intraday.Enabled {
		q.Set("intraday", "true")
	}
	if p.Equity.Enabled {
		q.Set("equity", "true")
	}
	return q
}

// Normalize restores an empty leaf list to its default so every list keeps at
// least one element after loading hand-edited or older data.
func (p *TradingPreferences) Normalize() {
	d := Defaults()
	for _, f := range Fields {
		l, _ := p.list(f)
		if len(*l) == 0 {
			dl, _ := d.list(f)
			*l = slices.Clone(*dl)
		}
	}
	if p.Intraday.ScanFrequency == "" {
		p.Intraday.ScanFrequency = d.Intraday.ScanFrequency
	}
}

// Load reads saved preferences, falling back to Defaults when none are saved.
// Corrupt data yields Defaults together with core.ErrCacheCorrupt.
func Load(ctx context.Context, store kv.Store) (TradingPreferences, error) {
	var p TradingPreferences
	err := kv.GetJSON(ctx, store, kv.KeyTradingPreferences, &p)
	if errors.Is(err, core.ErrNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), err
	}
	p.Normalize()
	return p, nil
}

// Save overwrites the stored preferences.
func Save(ctx context.Context, store kv.Store, p TradingPreferences) error {
	return kv.SetJSON(ctx, store, kv.KeyTradingPreferences, p)
}

// SaveForm stores the raw preferences form as submitted, before defaults are
// applied, so an editor can be restored exactly.
func SaveForm(ctx context.Context, store kv.Store, raw []byte) error {
	if !json.Valid(raw) {
		return core.WrapError(core.ErrConfigInvalid, errors.New("form data is not valid JSON"))
	}
	return store.Set(ctx, kv.KeyFormData, raw)
}

// LoadForm returns the last submitted form, or core.ErrNotFound.
func LoadForm(ctx context.Context, store kv.Store) (json.RawMessage, error) {
	raw, err := store.Get(ctx, kv.KeyFormData)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, core.WrapError(core.ErrCacheCorrupt, errors.New("stored form data is not valid JSON"))
	}
	return json.RawMessage(raw), nil
}
