package adapter

import (
	"regexp"
	"strings"

	"github.com/newthinker/signaldesk/internal/core"
)

var (
	equityIDPattern     = regexp.MustCompile(`(?i)(^|[-_:.])(eq|equity|swing)([-_:.]|\d|$)`)
	equitySymbolPattern = regexp.MustCompile(`(?i)(:EQ-|-EQ$)`)
	intradayPattern     = regexp.MustCompile(`(?i)^(intraday|1m|3m|5m|15m|30m)$`)
)

// IsEquitySignal is a best-effort classifier for equity signals. It accepts a
// record whose id or symbol looks like an equity signal, or one that carries
// action, entry, target and stop loss. Records with both a strike and an option
// type are never equity.
//
// Known limitations: an option payload that omits its option type but carries
// the four price fields is accepted, and an equity payload missing any price
// field with an opaque id and bare ticker is rejected.
func IsEquitySignal(raw Record) bool {
	if !raw.IsObject() {
		return false
	}
	if raw.Has("strike") && (raw.Has("optionType") || raw.Has("option_type")) {
		return false
	}

	if id, ok := raw.firstString(idAliases...); ok && equityIDPattern.MatchString(id) {
		return true
	}
	if sym, ok := raw.firstString("symbol"); ok && equitySymbolPattern.MatchString(sym) {
		return true
	}

	_, hasAction := raw.firstString(actionAliases...)
	_, hasEntry := raw.firstNumber(entryAliases...)
	_, hasTarget := raw.firstNumber(targetAliases...)
	_, hasStop := raw.firstNumber(stopAliases...)
	return hasAction && hasEntry && hasTarget && hasStop
}

// ExtractEquitySignals keeps the equity records of a mixed list and
// normalizes them as swing signals.
func ExtractEquitySignals(raws []Record) []core.Signal {
	out := []core.Signal{}
	for _, raw := range raws {
		if IsEquitySignal(raw) {
			out = append(out, NormalizeSwingSignal(raw))
		}
	}
	return out
}

// Classify decides which dashboard module a raw record belongs to.
func Classify(raw Record) core.Module {
	if m, ok := raw.firstString("module"); ok {
		switch core.Module(strings.ToLower(m)) {
		case core.ModuleOptions:
			return core.ModuleOptions
		case core.ModuleIntraday:
			return core.ModuleIntraday
		case core.ModuleEquity:
			return core.ModuleEquity
		}
	}

	if inst, ok := raw.firstString("instrument"); ok && strings.EqualFold(inst, string(core.InstrumentOption)) {
		return core.ModuleOptions
	}
	if raw.Has("strike") || raw.Has("option_type") || raw.Has("optionType") {
		return core.ModuleOptions
	}

	if intraday, ok := raw.firstBool("intraday"); ok && intraday {
		return core.ModuleIntraday
	}
	for _, aliases := range [][]string{strategyAliases, timeframeAliases} {
		if v, ok := raw.firstString(aliases...); ok && intradayPattern.MatchString(v) {
			return core.ModuleIntraday
		}
	}

	if !raw.Has("symbol") {
		if idx, ok := raw.firstString(indexAliases...); ok && isTrackedIndex(idx) {
			return core.ModuleOptions
		}
	}
	return core.ModuleEquity
}

// NormalizeAll normalizes a mixed list, routing each record by Classify.
func NormalizeAll(raws []Record) []core.Signal {
	out := make([]core.Signal, 0, len(raws))
	for _, raw := range raws {
		if !raw.IsObject() {
			continue
		}
		out = append(out, NormalizeAny(raw))
	}
	return out
}

// GroupByModule splits canonical signals into their dashboard modules.
func GroupByModule(signals []core.Signal) map[core.Module][]core.Signal {
	groups := map[core.Module][]core.Signal{
		core.ModuleOptions:  {},
		core.ModuleEquity:   {},
		core.ModuleIntraday: {},
	}
	for _, s := range signals {
		m := s.Module
		if m == "" {
			m = core.ModuleEquity
		}
		groups[m] = append(groups[m], s)
	}
	return groups
}

func isTrackedIndex(s string) bool {
	switch strings.ToUpper(s) {
	case "NIFTY", "BANKNIFTY", "FINNIFTY", "SENSEX":
		return true
	}
	return false
}
