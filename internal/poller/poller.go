// Package poller keeps market data and signals fresh, detects newly observed
// signals, and runs the execution flow.
package poller

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newthinker/signaldesk/internal/activity"
	"github.com/newthinker/signaldesk/internal/api/client"
	"github.com/newthinker/signaldesk/internal/config"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/metrics"
	"github.com/newthinker/signaldesk/internal/notifier"
	"github.com/newthinker/signaldesk/internal/prefs"
	"github.com/newthinker/signaldesk/internal/storage/kv"
	"github.com/newthinker/signaldesk/internal/task"
	"go.uber.org/zap"
)

// State is the lifecycle state of the poller
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateInitializing    State = "initializing"
	StatePolling         State = "polling"
	StateError           State = "error"
	StateStopped         State = "stopped"
)

// Backend is the subset of the API client the poller uses
type Backend interface {
	AvailableSignals(ctx context.Context, q url.Values) (client.RawSignals, error)
	MarketData(ctx context.Context) (core.MarketData, error)
	ExecuteSignal(ctx context.Context, req client.ExecuteRequest) (core.ExecutionResult, error)
	SignalsByClass(ctx context.Context, m core.Module) (client.RawSignals, error)
	RefreshAnalysis(ctx context.Context, signals []core.Signal) (client.RawSignals, error)
}

// Session gates polling on a stored token
type Session interface {
	Require(ctx context.Context) (string, error)
	UserID(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
}

// Options tunes the poll loop and auto-execution
type Options struct {
	Interval        time.Duration
	AutoExecute     bool
	MinConfidence   float64 // 0-100
	MinRiskReward   float64
	DefaultQuantity int64
}

// OptionsFromConfig maps the poll config section.
func OptionsFromConfig(cfg config.PollConfig) Options {
	return Options{
		Interval:        cfg.Interval,
		AutoExecute:     cfg.AutoExecute,
		MinConfidence:   cfg.MinConfidence,
		MinRiskReward:   cfg.MinRiskReward,
		DefaultQuantity: cfg.DefaultQuantity,
	}
}

// Deps are the poller's collaborators. Notifiers and Metrics may be nil.
type Deps struct {
	Backend   Backend
	Session   Session
	Store     kv.Store
	Activity  *activity.Log
	Notifiers *notifier.Registry
	Metrics   *metrics.Registry
	Logger    *zap.Logger
}

// Poller owns the held signal response, the latest market snapshot and the
// periodic task driving both fetches. Results from a cycle that began before
// Stop are discarded.
type Poller struct {
	backend   Backend
	session   Session
	store     kv.Store
	activity  *activity.Log
	notifiers *notifier.Registry
	metrics   *metrics.Registry
	logger    *zap.Logger
	opts      Options
	now       func() time.Time

	mu         sync.RWMutex
	state      State
	signals    core.SignalResponse
	market     core.MarketData
	hasMarket  bool
	prefs      prefs.TradingPreferences
	generation uint64
	active     bool
	task       *task.Periodic
	lastCycle  time.Time
	lastErr    error

	// ordered holds ids an order was placed for, by this client or as
	// reported by the backend; auto-execution never orders them again.
	ordered map[string]struct{}
	// executing holds ids whose execute request is in flight.
	executing map[string]struct{}

	// cycleMu serializes cycles; inFlight mirrors it for Status.
	cycleMu  sync.Mutex
	inFlight atomic.Bool
}

// New creates a poller in the Unauthenticated state.
func New(deps Deps, opts Options) *Poller {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Activity == nil {
		deps.Activity = activity.New(deps.Logger)
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.DefaultQuantity < 1 {
		opts.DefaultQuantity = 1
	}
	return &Poller{
		backend:   deps.Backend,
		session:   deps.Session,
		store:     deps.Store,
		activity:  deps.Activity,
		notifiers: deps.Notifiers,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		opts:      opts,
		now:       time.Now,
		state:     StateUnauthenticated,
		signals:   core.Partition(nil),
		prefs:     prefs.Defaults(),
		ordered:   make(map[string]struct{}),
		executing: make(map[string]struct{}),
	}
}

// Sync checks the session, loads cached state and runs one cycle without
// scheduling further cycles. It returns core.ErrUnauthenticated when no valid
// token is stored.
func (p *Poller) Sync(ctx context.Context) error {
	gen, err := p.activate(ctx)
	if err != nil {
		return err
	}
	return p.runGuarded(ctx, gen)
}

// Start runs one cycle and then schedules a cycle every interval. A failed
// first cycle is logged and retried on the next tick; only a missing session
// is returned as an error. Calling Start on a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.RLock()
	running := p.task != nil && p.task.IsRunning()
	p.mu.RUnlock()
	if running {
		return nil
	}

	gen, err := p.activate(ctx)
	if err != nil {
		return err
	}
	p.runGuarded(ctx, gen)

	t := task.NewPeriodic("poll", p.opts.Interval, func(ctx context.Context) {
		p.tick(ctx, gen)
	}, p.logger)

	p.mu.Lock()
	if !p.active || p.generation != gen {
		p.mu.Unlock()
		return nil
	}
	p.task = t
	p.mu.Unlock()

	t.Start(ctx)
	p.logger.Info("poller started", zap.Duration("interval", p.opts.Interval))
	return nil
}

// activate moves to Initializing and loads preferences and cached signals.
func (p *Poller) activate(ctx context.Context) (uint64, error) {
	if _, err := p.session.Require(ctx); err != nil {
		p.setState(StateUnauthenticated)
		return 0, err
	}

	loaded, err := prefs.Load(ctx, p.store)
	if err != nil {
		p.activity.Warning(fmt.Sprintf("Saved preferences are unreadable, using defaults: %v", err))
	}
	cached, cacheOK := p.loadCache(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.active = true
	p.state = StateInitializing
	p.prefs = loaded
	if cacheOK {
		p.signals = cached
		p.markOrdered(cached.Executed)
	}
	return p.generation, nil
}

func (p *Poller) loadCache(ctx context.Context) (core.SignalResponse, bool) {
	var cached core.SignalResponse
	err := kv.GetJSON(ctx, p.store, kv.KeyTradingSignals, &cached)
	switch {
	case err == nil:
		return core.Partition(cached.All()), true
	case errors.Is(err, core.ErrNotFound):
		return core.SignalResponse{}, false
	case errors.Is(err, core.ErrCacheCorrupt):
		p.activity.Error("Cached signals are corrupt, refetching from the backend")
		p.logger.Warn("discarding corrupt signal cache", zap.Error(err))
	default:
		p.logger.Warn("reading signal cache", zap.Error(err))
	}
	return core.SignalResponse{}, false
}

// Stop cancels the schedule and waits for a running cycle. State committed by
// that cycle after Stop is dropped.
func (p *Poller) Stop() {
	p.mu.Lock()
	t := p.task
	p.task = nil
	p.active = false
	p.generation++
	if p.state != StateUnauthenticated {
		p.state = StateStopped
	}
	p.mu.Unlock()

	if t != nil {
		t.Stop()
		p.logger.Info("poller stopped")
	}
}

// Logout stops polling, drops held state and clears the session.
func (p *Poller) Logout(ctx context.Context) error {
	p.Stop()

	p.mu.Lock()
	p.signals = core.Partition(nil)
	p.market = core.MarketData{}
	p.hasMarket = false
	p.ordered = make(map[string]struct{})
	p.state = StateUnauthenticated
	p.mu.Unlock()

	if err := p.session.Logout(ctx); err != nil {
		return err
	}
	p.activity.Info("Logged out")
	return nil
}

// Refresh runs one cycle now. It reports false without doing anything when a
// cycle is already in flight; such requests are dropped, not queued.
func (p *Poller) Refresh(ctx context.Context) (bool, error) {
	p.mu.RLock()
	gen, active := p.generation, p.active
	p.mu.RUnlock()
	if !active {
		return false, core.ErrUnauthenticated
	}

	if !p.cycleMu.TryLock() {
		p.metrics.RecordRefreshDropped()
		p.logger.Debug("refresh dropped, cycle in flight")
		return false, nil
	}
	defer p.cycleMu.Unlock()
	return true, p.runCycle(ctx, gen)
}

func (p *Poller) tick(ctx context.Context, gen uint64) {
	if !p.cycleMu.TryLock() {
		return
	}
	defer p.cycleMu.Unlock()
	p.runCycle(ctx, gen)
}

// runGuarded waits for a concurrent cycle instead of skipping the initial
// load.
func (p *Poller) runGuarded(ctx context.Context, gen uint64) error {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.runCycle(ctx, gen)
}

// runCycle runs one cycle. Caller holds cycleMu.
func (p *Poller) runCycle(ctx context.Context, gen uint64) error {
	p.inFlight.Store(true)
	defer p.inFlight.Store(false)
	return p.cycle(ctx, gen)
}

// markOrdered records ids that already have an order. Caller holds mu.
func (p *Poller) markOrdered(signals []core.Signal) {
	for _, s := range signals {
		p.ordered[s.ID] = struct{}{}
	}
}

// current reports whether gen is still the live generation. Caller holds mu.
func (p *Poller) current(gen uint64) bool {
	return p.active && p.generation == gen
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// State returns the lifecycle state.
func (p *Poller) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Signals returns the held signal response.
func (p *Poller) Signals() core.SignalResponse {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return core.SignalResponse{
		NonExecuted: append([]core.Signal{}, p.signals.NonExecuted...),
		Executed:    append([]core.Signal{}, p.signals.Executed...),
	}
}

// Market returns the latest market snapshot and whether one was fetched.
func (p *Poller) Market() (core.MarketData, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.market, p.hasMarket
}

// Logs returns the activity log, newest first.
func (p *Poller) Logs() []activity.Entry {
	return p.activity.Entries()
}

// Preferences returns the preferences used for signal queries.
func (p *Poller) Preferences() prefs.TradingPreferences {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prefs
}

// Status is a point-in-time view of the poller for status displays.
type Status struct {
	State       State     `json:"state"`
	LastCycle   time.Time `json:"last_cycle"`
	LastError   string    `json:"last_error,omitempty"`
	NonExecuted int       `json:"non_executed"`
	Executed    int       `json:"executed"`
	InFlight    bool      `json:"in_flight"`
}

// Status returns the current status.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := Status{
		State:       p.state,
		LastCycle:   p.lastCycle,
		NonExecuted: len(p.signals.NonExecuted),
		Executed:    len(p.signals.Executed),
		InFlight:    p.inFlight.Load(),
	}
	if p.lastErr != nil {
		s.LastError = p.lastErr.Error()
	}
	return s
}
