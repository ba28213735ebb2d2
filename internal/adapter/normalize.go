package adapter

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/signaldesk/internal/core"
)

// Alias resolution order. The first alias holding a usable value wins. Defaults
// when none does: id is derived from module/symbol/action/time/prices, symbol is
// "UNKNOWN", action is UNKNOWN, numbers are 0, strategy and timeframe come from
// the shape, indicators fall back to the keys of indicator_snapshot and then to
// an empty list, patterns to an empty list, analysis to "", time to zero, and
// potential gain is computed from entry and target.
var (
	idAliases        = []string{"id", "signal_id", "_id"}
	symbolAliases    = []string{"symbol", "ticker", "stock", "index"}
	actionAliases    = []string{"action", "signal", "signal_type", "side"}
	entryAliases     = []string{"entry", "entry_price", "price"}
	targetAliases    = []string{"target", "target_price", "take_profit"}
	stopAliases      = []string{"stop_loss", "stopLoss", "sl"}
	quantityAliases  = []string{"quantity", "qty", "lot_size"}
	rrAliases        = []string{"risk_reward", "rrr", "risk_reward_ratio"}
	gainAliases      = []string{"potential_gain", "potentialGain", "expected_return"}
	strategyAliases  = []string{"strategy", "mode", "processor"}
	timeframeAliases = []string{"timeframe", "time_frame", "interval"}
	indicatorAliases = []string{"indicators", "indicator_tags"}
	patternAliases   = []string{"patterns", "pattern_analysis.patterns_detected"}
	analysisAliases  = []string{"analysis", "notes", "ai_opinion.reasoning", "reasoning"}
	timeAliases      = []string{"generated_at", "trade_time", "timestamp", "created_at"}
	strikeAliases    = []string{"strike", "strike_price"}
	optTypeAliases   = []string{"option_type", "optionType"}
	indexAliases     = []string{"index", "underlying"}

	// confidence_score is already 0-100; the others may be fractions.
	scoreAliases      = []string{"confidence_score"}
	confidenceAliases = []string{"confidence", "ai_opinion.confidence"}
)

// signalNamespace seeds ids for records that arrive without one.
var signalNamespace = uuid.MustParse("6f1c1f5e-3b7e-4f43-9a63-2f0d0f6c7a11")

// shape holds the per-module defaults.
type shape struct {
	instrument core.Instrument
	module     core.Module
	strategy   string
	timeframe  string
}

var (
	swingShape    = shape{core.InstrumentEquity, core.ModuleEquity, "swing", "daily"}
	intradayShape = shape{core.InstrumentEquity, core.ModuleIntraday, "intraday", "15m"}
	optionShape   = shape{core.InstrumentOption, core.ModuleOptions, "scalp", "5m"}
)

// NormalizeSwingSignal converts a raw record into a swing-equity signal.
func NormalizeSwingSignal(raw Record) core.Signal {
	return normalize(raw, swingShape)
}

// NormalizeIntradaySignal converts a raw record into an intraday-equity signal.
func NormalizeIntradaySignal(raw Record) core.Signal {
	return normalize(raw, intradayShape)
}

// NormalizeOptionSignal converts a raw record into an index-option signal.
func NormalizeOptionSignal(raw Record) core.Signal {
	s := normalize(raw, optionShape)
	s.Strike, _ = raw.firstNumber(strikeAliases...)
	s.OptionType = optionType(raw)
	if idx, ok := raw.firstString(indexAliases...); ok {
		s.Index = strings.ToUpper(idx)
	} else {
		s.Index = strings.ToUpper(s.Symbol)
	}
	return s
}

// NormalizeAny picks the normalizer matching the record's module.
func NormalizeAny(raw Record) core.Signal {
	switch Classify(raw) {
	case core.ModuleOptions:
		return NormalizeOptionSignal(raw)
	case core.ModuleIntraday:
		return NormalizeIntradaySignal(raw)
	default:
		return NormalizeSwingSignal(raw)
	}
}

func normalize(raw Record, sh shape) core.Signal {
	s := core.Signal{
		Instrument: sh.instrument,
		Module:     sh.module,
		Indicators: []string{},
		Patterns:   []string{},
	}

	if sym, ok := raw.firstString(symbolAliases...); ok {
		s.Symbol = ExtractTicker(sym)
	} else {
		s.Symbol = "UNKNOWN"
	}
	if inst, ok := raw.firstString("instrument"); ok {
		s.Instrument = parseInstrument(inst, sh.instrument)
	}

	action, _ := raw.firstString(actionAliases...)
	s.Action = ParseAction(action)

	s.Entry, _ = raw.firstNumber(entryAliases...)
	s.Target, _ = raw.firstNumber(targetAliases...)
	s.StopLoss, _ = raw.firstNumber(stopAliases...)
	if q, ok := raw.firstNumber(quantityAliases...); ok && q > 0 {
		s.Quantity = int64(q)
	}
	s.RiskReward, _ = raw.firstNumber(rrAliases...)

	if gain, ok := raw.firstNumber(gainAliases...); ok {
		s.PotentialGain = gain
	} else {
		s.PotentialGain = PotentialGain(s.Entry, s.Target)
	}

	s.Confidence = confidence(raw)

	s.Strategy = sh.strategy
	if v, ok := raw.firstString(strategyAliases...); ok {
		s.Strategy = strings.ToLower(v)
	}
	s.Timeframe = sh.timeframe
	if v, ok := raw.firstString(timeframeAliases...); ok {
		s.Timeframe = strings.ToLower(v)
	}

	if v, ok := raw.firstStrings(indicatorAliases...); ok {
		s.Indicators = v
	} else if keys := raw.keys("indicator_snapshot"); len(keys) > 0 {
		s.Indicators = keys
	}
	if v, ok := raw.firstStrings(patternAliases...); ok {
		s.Patterns = v
	}
	s.Analysis, _ = raw.firstString(analysisAliases...)

	if ts, ok := raw.firstString(timeAliases...); ok {
		if t, ok := core.ParseTimestamp(ts); ok {
			s.GeneratedAt = t.UTC()
		}
	}

	if id, ok := raw.firstString(idAliases...); ok {
		s.ID = id
	} else {
		s.ID = deriveID(s)
	}

	if executed, _ := raw.firstBool("executed"); executed {
		orderID, _ := raw.firstString("order_id", "orderId")
		at := s.GeneratedAt
		if ts, ok := raw.firstString("executed_at", "executedAt"); ok {
			if t, ok := core.ParseTimestamp(ts); ok {
				at = t.UTC()
			}
		}
		s = s.MarkExecuted(OrderIDFallback(s.ID, orderID), at)
	}

	return s
}

// PotentialGain is the percentage move from entry to target; zero when entry is
// zero or the result is not finite.
func PotentialGain(entry, target float64) float64 {
	if entry == 0 {
		return 0
	}
	g := (target - entry) / entry * 100
	if !finite(g) {
		return 0
	}
	return math.Round(g*100) / 100
}

// NormalizeConfidence converts a raw confidence into the canonical 0-100 score.
// Values in [0,1] are treated as fractions.
func NormalizeConfidence(v float64) int {
	if !finite(v) || v <= 0 {
		return 0
	}
	if v <= 1 {
		v *= 100
	}
	if v > 100 {
		v = 100
	}
	return int(math.Round(v))
}

func confidence(raw Record) int {
	if v, ok := raw.firstNumber(scoreAliases...); ok {
		if v < 0 {
			return 0
		}
		return int(math.Round(math.Min(v, 100)))
	}
	if v, ok := raw.firstNumber(confidenceAliases...); ok {
		return NormalizeConfidence(v)
	}
	return 0
}

// ExtractTicker strips an EXCHANGE:CLASS-TICKER prefix ("NSE:EQ-TCS" -> "TCS").
// Anything else is returned unchanged.
func ExtractTicker(symbol string) string {
	exchange, rest, ok := strings.Cut(symbol, ":")
	if !ok || exchange == "" {
		return symbol
	}
	class, ticker, ok := strings.Cut(rest, "-")
	if !ok || class == "" || ticker == "" {
		return symbol
	}
	return ticker
}

// ParseAction maps backend action text ("BUY", "BUY CALL", "sell") to an Action.
func ParseAction(s string) core.Action {
	u := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(u, "BUY"), u == "LONG", u == "BULLISH":
		return core.ActionBuy
	case strings.HasPrefix(u, "SELL"), u == "SHORT", u == "BEARISH":
		return core.ActionSell
	default:
		return core.ActionUnknown
	}
}

// OrderIDFallback returns orderID, or the ORD-<first 8 of id> form the
// backend uses when it omits one.
func OrderIDFallback(signalID, orderID string) string {
	if orderID != "" {
		return orderID
	}
	short := signalID
	if len(short) > 8 {
		short = short[:8]
	}
	return "ORD-" + short
}

func optionType(raw Record) string {
	if v, ok := raw.firstString(optTypeAliases...); ok {
		switch strings.ToUpper(v) {
		case "CE", "CALL", "C":
			return "CE"
		case "PE", "PUT", "P":
			return "PE"
		}
		return strings.ToUpper(v)
	}
	action, _ := raw.firstString(actionAliases...)
	u := strings.ToUpper(action)
	switch {
	case strings.Contains(u, "CALL"):
		return "CE"
	case strings.Contains(u, "PUT"):
		return "PE"
	}
	return ""
}

func parseInstrument(s string, fallback core.Instrument) core.Instrument {
	switch core.Instrument(strings.ToLower(s)) {
	case core.InstrumentEquity:
		return core.InstrumentEquity
	case core.InstrumentOption:
		return core.InstrumentOption
	case core.InstrumentFuture:
		return core.InstrumentFuture
	}
	return fallback
}

func deriveID(s core.Signal) string {
	key := strings.Join([]string{
		string(s.Module), s.Symbol, string(s.Action),
		s.GeneratedAt.Format(time.RFC3339Nano),
		formatPrice(s.Entry), formatPrice(s.Target),
	}, "|")
	return uuid.NewSHA1(signalNamespace, []byte(key)).String()
}

func formatPrice(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
