package poller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/newthinker/signaldesk/internal/adapter"
	"github.com/newthinker/signaldesk/internal/api/client"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/prefs"
	"github.com/newthinker/signaldesk/internal/storage/kv"
	"go.uber.org/zap"
)

const (
	triggerManual = "manual"
	triggerAuto   = "auto"
)

// Execute places the order for a held non-executed signal. A zero quantity
// uses the signal's quantity or the configured default; a zero price uses the
// entry price. On success the signal moves to the executed collection and the
// cache is rewritten. On failure the held state is unchanged and nothing is
// retried. A second request for a signal whose order is still in flight
// fails with core.ErrAlreadyExecuted.
func (p *Poller) Execute(ctx context.Context, id string, quantity int64, price float64) (core.Signal, error) {
	return p.execute(ctx, id, quantity, price, triggerManual)
}

func (p *Poller) execute(ctx context.Context, id string, quantity int64, price float64, trigger string) (core.Signal, error) {
	p.mu.Lock()
	sig, found := p.signals.Find(id)
	gen, active := p.generation, p.active
	_, busy := p.executing[id]
	if active && found && !sig.Executed && !busy {
		p.executing[id] = struct{}{}
	}
	p.mu.Unlock()

	if !active {
		return core.Signal{}, core.ErrUnauthenticated
	}
	if !found {
		p.activity.Error(fmt.Sprintf("Cannot execute %s: signal not found", id))
		return core.Signal{}, core.ErrSignalNotFound
	}
	if sig.Executed {
		p.activity.Warning(fmt.Sprintf("%s is already executed (order %s)", sig.Symbol, sig.OrderID))
		return sig, core.ErrAlreadyExecuted
	}
	if busy {
		p.activity.Warning(fmt.Sprintf("An order for %s is already in flight", sig.Symbol))
		return sig, core.WrapError(core.ErrAlreadyExecuted, fmt.Errorf("order for %s is in flight", id))
	}
	defer func() {
		p.mu.Lock()
		delete(p.executing, id)
		p.mu.Unlock()
	}()

	if quantity <= 0 {
		quantity = sig.Quantity
	}
	if quantity <= 0 {
		quantity = p.opts.DefaultQuantity
	}
	if price <= 0 {
		price = sig.Entry
	}

	p.activity.Info(fmt.Sprintf("Executing %s, qty %d at %.2f", sig.Summary(), quantity, price))

	userID, _ := p.session.UserID(ctx)
	res, err := p.backend.ExecuteSignal(ctx, client.ExecuteRequest{
		ID:       sig.ID,
		Quantity: quantity,
		Price:    price,
		UserID:   userID,
	})
	if err != nil {
		p.metrics.RecordExecution(trigger, "error")
		p.activity.Error(fmt.Sprintf("Execution failed for %s: %v", sig.Symbol, err))
		return core.Signal{}, err
	}

	orderID := adapter.OrderIDFallback(sig.ID, res.OrderID)
	at := p.now().UTC()

	p.mu.Lock()
	p.ordered[sig.ID] = struct{}{}
	if !p.current(gen) {
		p.mu.Unlock()
		p.logger.Warn("execution finished after stop, held state not updated",
			zap.String("signal_id", sig.ID), zap.String("order_id", orderID))
		return sig.MarkExecuted(orderID, at), nil
	}
	next, err := p.signals.Execute(sig.ID, orderID, at)
	var persistErr error
	if err == nil {
		p.signals = next
		persistErr = kv.SetJSON(ctx, p.store, kv.KeyTradingSignals, next)
	}
	held, executed := len(p.signals.NonExecuted), len(p.signals.Executed)
	p.mu.Unlock()

	if err != nil {
		// a cycle replaced the held state while the order was in flight
		p.logger.Warn("executed signal no longer held",
			zap.String("signal_id", sig.ID), zap.Error(err))
	}
	if persistErr != nil {
		p.activity.Warning(fmt.Sprintf("Could not cache signals: %v", persistErr))
	}

	p.metrics.RecordExecution(trigger, "success")
	p.metrics.SetHeldSignals(held, executed)
	p.activity.Success(fmt.Sprintf("Order %s placed for %s", orderID, sig.Symbol))
	return sig.MarkExecuted(orderID, at), nil
}

// autoExecute places orders for new signals that pass the configured
// confidence and risk-reward thresholds. A signal is auto-executed at most once
// even when the backend keeps returning it as non-executed.
func (p *Poller) autoExecute(ctx context.Context, fresh []core.Signal) {
	if !p.opts.AutoExecute {
		return
	}
	for _, s := range fresh {
		if !p.qualifies(s) {
			continue
		}
		p.mu.RLock()
		_, done := p.ordered[s.ID]
		p.mu.RUnlock()
		if done {
			p.logger.Debug("order already placed, not auto-executing again", zap.String("signal_id", s.ID))
			continue
		}
		p.activity.Info(fmt.Sprintf("Auto-execution rule matched %s (confidence %d%%, R:R %.2f)", s.Symbol, s.Confidence, s.RiskReward))
		p.execute(ctx, s.ID, 0, 0, triggerAuto)
	}
}

func (p *Poller) qualifies(s core.Signal) bool {
	return s.Action != core.ActionUnknown &&
		float64(s.Confidence) >= p.opts.MinConfidence &&
		s.RiskReward >= p.opts.MinRiskReward
}

// Modules splits held signals into the dashboard modules. Modules disabled in
// the preferences are present but empty.
func (p *Poller) Modules() map[core.Module][]core.Signal {
	p.mu.RLock()
	all := p.signals.All()
	pr := p.prefs
	p.mu.RUnlock()

	groups := adapter.GroupByModule(all)
	for m := range groups {
		if !pr.Enabled(m) {
			groups[m] = []core.Signal{}
		}
	}
	return groups
}

// SetPreferences saves the preferences and, when polling, refreshes signals
// with the new query.
func (p *Poller) SetPreferences(ctx context.Context, tp prefs.TradingPreferences) error {
	tp.Normalize()
	if err := prefs.Save(ctx, p.store, tp); err != nil {
		return err
	}

	p.mu.Lock()
	p.prefs = tp
	active := p.active
	p.mu.Unlock()

	p.activity.Info("Trading preferences saved")
	if active {
		// fetch failures are already in the activity log
		p.Refresh(ctx)
	}
	return nil
}

// SaveForm stores the raw preferences form as submitted.
func (p *Poller) SaveForm(ctx context.Context, raw []byte) error {
	return prefs.SaveForm(ctx, p.store, raw)
}

// Form returns the last submitted preferences form, or core.ErrNotFound.
func (p *Poller) Form(ctx context.Context) (json.RawMessage, error) {
	return prefs.LoadForm(ctx, p.store)
}
