package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newthinker/signaldesk/internal/adapter"
	"github.com/newthinker/signaldesk/internal/api/client"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/storage/kv"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// cycle fetches market data and signals, merges the signals into held state
// and persists them. A failed fetch only affects its own half of the cycle.
// Caller holds cycleMu.
func (p *Poller) cycle(ctx context.Context, gen uint64) error {
	start := p.now()

	p.mu.RLock()
	query := p.prefs.Query()
	p.mu.RUnlock()

	var (
		market     core.MarketData
		marketErr  error
		raw        client.RawSignals
		signalsErr error
	)
	var wg conc.WaitGroup
	wg.Go(func() { market, marketErr = p.backend.MarketData(ctx) })
	wg.Go(func() { raw, signalsErr = p.backend.AvailableSignals(ctx, query) })
	if r := wg.WaitAndRecover(); r != nil {
		// a panic leaves one result unset; treat the whole cycle as failed
		err := r.AsError()
		marketErr, signalsErr = err, err
	}

	p.mu.Lock()
	if !p.current(gen) {
		p.mu.Unlock()
		p.logger.Debug("discarding results of a stopped cycle")
		return nil
	}

	if marketErr == nil {
		p.market = market
		p.hasMarket = true
	}

	var fresh []core.Signal
	var persistErr error
	if signalsErr == nil {
		next := adapter.BuildResponse(raw.NonExecuted, raw.Executed, start)
		fresh = newSignals(p.signals, next)
		p.signals = next
		p.markOrdered(next.Executed)
		// written under the lock so a concurrent Logout cannot be overwritten
		persistErr = kv.SetJSON(ctx, p.store, kv.KeyTradingSignals, next)
	}

	cycleErr := errors.Join(marketErr, signalsErr)
	p.lastCycle = start
	p.lastErr = cycleErr
	if cycleErr != nil {
		p.state = StateError
	} else {
		p.state = StatePolling
	}
	held := len(p.signals.NonExecuted)
	executed := len(p.signals.Executed)
	p.mu.Unlock()

	if marketErr != nil {
		p.metrics.RecordFetchFailure("market")
		p.activity.Error(fmt.Sprintf("Failed to fetch market data: %v", marketErr))
	} else {
		p.metrics.SetMarketOpen(market.IsOpen())
	}

	if signalsErr != nil {
		p.metrics.RecordFetchFailure("signals")
		p.activity.Error(fmt.Sprintf("Failed to fetch signals: %v", signalsErr))
	} else {
		p.announce(fresh)
		if persistErr != nil {
			p.activity.Warning(fmt.Sprintf("Could not cache signals: %v", persistErr))
		}
		p.notify(ctx, fresh)
		p.autoExecute(ctx, fresh)
	}

	outcome := "ok"
	if cycleErr != nil {
		outcome = "error"
	}
	p.metrics.SetHeldSignals(held, executed)
	p.metrics.RecordPollCycle(outcome, time.Since(start).Seconds())
	p.logger.Debug("poll cycle finished",
		zap.String("outcome", outcome),
		zap.Int("new", len(fresh)),
		zap.Int("non_executed", held),
		zap.Int("executed", executed),
	)
	return cycleErr
}

// newSignals returns the incoming non-executed signals whose ids are not held
// as non-executed, in incoming order.
func newSignals(held, incoming core.SignalResponse) []core.Signal {
	seen := held.NonExecutedIDs()
	var out []core.Signal
	for _, s := range incoming.NonExecuted {
		if _, ok := seen[s.ID]; !ok {
			out = append(out, s)
		}
	}
	return out
}

func (p *Poller) announce(fresh []core.Signal) {
	for _, s := range fresh {
		p.metrics.RecordNewSignal(string(s.Module), string(s.Action))
		p.activity.Info("New signal: " + s.Summary())
	}
	if len(fresh) > 0 {
		noun := "signals"
		if len(fresh) == 1 {
			noun = "signal"
		}
		p.activity.Success(fmt.Sprintf("Received %d new %s", len(fresh), noun))
	}
}

func (p *Poller) notify(ctx context.Context, fresh []core.Signal) {
	if len(fresh) == 0 || p.notifiers.Len() == 0 {
		return
	}
	for name, err := range p.notifiers.NotifyAllBatch(ctx, fresh) {
		if err != nil {
			p.metrics.RecordNotification(name, "error")
			p.logger.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
			continue
		}
		p.metrics.RecordNotification(name, "success")
	}
}
