package poller

import (
	"context"
	"fmt"

	"github.com/newthinker/signaldesk/internal/adapter"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/storage/kv"
	"go.uber.org/zap"
)

// FetchModule reads one module's signals from the backend's per-class
// endpoint. Held state is not touched.
func (p *Poller) FetchModule(ctx context.Context, m core.Module) (core.SignalResponse, error) {
	if _, err := p.session.Require(ctx); err != nil {
		return core.SignalResponse{}, err
	}
	raw, err := p.backend.SignalsByClass(ctx, m)
	if err != nil {
		p.metrics.RecordFetchFailure("signals_" + string(m))
		p.activity.Error(fmt.Sprintf("Failed to fetch %s signals: %v", m, err))
		return core.SignalResponse{}, err
	}
	return adapter.BuildResponse(raw.NonExecuted, raw.Executed, p.now()), nil
}

// Reanalyze sends the held non-executed signals to the backend for
// re-scoring and swaps the re-scored copies in by id. Signals the backend
// does not return are kept as they were. It returns how many were updated.
func (p *Poller) Reanalyze(ctx context.Context) (int, error) {
	p.mu.RLock()
	pending := append([]core.Signal{}, p.signals.NonExecuted...)
	gen, active := p.generation, p.active
	p.mu.RUnlock()

	if !active {
		return 0, core.ErrUnauthenticated
	}
	if len(pending) == 0 {
		return 0, nil
	}

	raw, err := p.backend.RefreshAnalysis(ctx, pending)
	if err != nil {
		p.activity.Error(fmt.Sprintf("Re-analysis failed: %v", err))
		return 0, err
	}
	scored := adapter.BuildResponse(raw.NonExecuted, raw.Executed, p.now())
	byID := make(map[string]core.Signal, len(scored.NonExecuted))
	for _, s := range scored.NonExecuted {
		byID[s.ID] = s
	}

	p.mu.Lock()
	if !p.current(gen) {
		p.mu.Unlock()
		p.logger.Debug("discarding re-analysis of a stopped poller")
		return 0, nil
	}
	next := core.SignalResponse{
		NonExecuted: make([]core.Signal, 0, len(p.signals.NonExecuted)),
		Executed:    p.signals.Executed,
	}
	updated := 0
	for _, s := range p.signals.NonExecuted {
		if r, ok := byID[s.ID]; ok {
			s = r
			updated++
		}
		next.NonExecuted = append(next.NonExecuted, s)
	}
	p.signals = next
	persistErr := kv.SetJSON(ctx, p.store, kv.KeyTradingSignals, next)
	p.mu.Unlock()

	if persistErr != nil {
		p.activity.Warning(fmt.Sprintf("Could not cache signals: %v", persistErr))
	}
	p.logger.Debug("re-analysis merged", zap.Int("updated", updated), zap.Int("sent", len(pending)))
	p.activity.Info(fmt.Sprintf("Re-analyzed %d of %d signals", updated, len(pending)))
	return updated, nil
}
