// Package task runs a job on a fixed interval.
package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Periodic runs one job every interval until stopped. A tick that arrives
// while the previous run is still going is skipped. Periodic has a single
// owner; Start and Stop may be called again after a Stop.
type Periodic struct {
	name     string
	interval time.Duration
	job      func(ctx context.Context)
	logger   *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewPeriodic creates a stopped task. The interval has one-second resolution.
func NewPeriodic(name string, interval time.Duration, job func(ctx context.Context), logger *zap.Logger) *Periodic {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval < time.Second {
		interval = time.Second
	}
	return &Periodic{
		name:     name,
		interval: interval,
		job:      job,
		logger:   logger.With(zap.String("task", name)),
	}
}

// Start schedules the job. The context passed to the job is cancelled by Stop
// or when ctx is done. Starting a running task is a no-op that returns false.
func (p *Periodic) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return false
	}

	jobCtx, cancel := context.WithCancel(ctx)
	cl := cronLogger{p.logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	c.Schedule(cron.Every(p.interval), cron.FuncJob(func() {
		if jobCtx.Err() != nil {
			return
		}
		p.job(jobCtx)
	}))
	c.Start()

	p.cron = c
	p.cancel = cancel
	p.running = true
	p.logger.Info("periodic task started", zap.Duration("interval", p.interval))

	go func() {
		<-jobCtx.Done()
		p.stop(c)
	}()
	return true
}

// Stop cancels the schedule and waits for a job in progress to return.
func (p *Periodic) Stop() {
	p.stop(nil)
}

// stop tears down the schedule. A non-nil only restricts it to that
// schedule, so a stale cancellation cannot stop a later Start.
func (p *Periodic) stop(only *cron.Cron) {
	p.mu.Lock()
	if !p.running || (only != nil && p.cron != only) {
		p.mu.Unlock()
		return
	}
	c, cancel := p.cron, p.cancel
	p.running = false
	p.cron = nil
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	p.logger.Info("periodic task stopped")
}

// IsRunning reports whether the task is scheduled.
func (p *Periodic) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Interval returns the schedule interval.
func (p *Periodic) Interval() time.Duration {
	return p.interval
}

// cronLogger adapts zap to cron's logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
