// Package app wires configuration into the running desk: storage, session,
// backend client, notifiers, metrics, poller and the dashboard server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/newthinker/signaldesk/internal/activity"
	"github.com/newthinker/signaldesk/internal/api"
	"github.com/newthinker/signaldesk/internal/api/client"
	"github.com/newthinker/signaldesk/internal/config"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/insight"
	llmfactory "github.com/newthinker/signaldesk/internal/llm/factory"
	"github.com/newthinker/signaldesk/internal/logger"
	"github.com/newthinker/signaldesk/internal/metrics"
	"github.com/newthinker/signaldesk/internal/notifier"
	notifierfactory "github.com/newthinker/signaldesk/internal/notifier/factory"
	"github.com/newthinker/signaldesk/internal/poller"
	"github.com/newthinker/signaldesk/internal/session"
	"github.com/newthinker/signaldesk/internal/storage/kv"
	"go.uber.org/zap"
)

// App is the main application orchestrator
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     kv.Store
	session   *session.Session
	client    *client.Client
	activity  *activity.Log
	notifiers *notifier.Registry
	metrics   *metrics.Registry
	poller    *poller.Poller
	explainer *insight.Explainer
}

// New builds every component from cfg. The LLM explainer is optional and is
// left out when llm.provider is empty.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	a := &App{cfg: cfg, logger: log, store: store}
	a.session = session.New(store, logger.Component(log, "session"))

	a.client, err = client.New(cfg.API.BaseURL, cfg.API.Timeout, a.session,
		client.WithLogger(logger.Component(log, "client")))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.notifiers, err = notifierfactory.NewRegistry(cfg.Notifiers)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	if cfg.LLM.Provider != "" {
		provider, err := llmfactory.New(cfg.LLM)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.explainer = insight.New(provider, logger.Component(log, "insight"))
	}

	a.activity = activity.New(logger.Component(log, "activity"))
	a.poller = poller.New(poller.Deps{
		Backend:   a.client,
		Session:   a.session,
		Store:     store,
		Activity:  a.activity,
		Notifiers: a.notifiers,
		Metrics:   a.metrics,
		Logger:    logger.Component(log, "poller"),
	}, poller.OptionsFromConfig(cfg.Poll))

	log.Info("signaldesk initialized",
		zap.String("backend", cfg.API.BaseURL),
		zap.String("storage", cfg.Storage.Type),
		zap.Strings("notifiers", a.notifiers.Names()),
		zap.Bool("metrics", a.metrics != nil),
		zap.Bool("explain", a.explainer != nil),
	)
	return a, nil
}

// Poller returns the poller.
func (a *App) Poller() *poller.Poller { return a.poller }

// Session returns the session.
func (a *App) Session() *session.Session { return a.session }

// Client returns the backend client.
func (a *App) Client() *client.Client { return a.client }

// Store returns the local key-value store.
func (a *App) Store() kv.Store { return a.store }

// Metrics returns the metrics registry, nil when metrics are disabled.
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Notifiers returns the configured notifiers.
func (a *App) Notifiers() *notifier.Registry { return a.notifiers }

// Login stores the backend token.
func (a *App) Login(ctx context.Context, token, userID string) error {
	if err := a.session.Login(ctx, token, userID); err != nil {
		return err
	}
	a.activity.Success("Logged in")
	return nil
}

// Logout stops polling and clears the session and cached signals.
func (a *App) Logout(ctx context.Context) error {
	return a.poller.Logout(ctx)
}

// Explain syncs signals and asks the configured model about one of them.
func (a *App) Explain(ctx context.Context, id string) (*insight.Explanation, error) {
	if a.explainer == nil {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("llm.provider is not set"))
	}
	if _, ok := a.poller.Signals().Find(id); !ok {
		if err := a.poller.Sync(ctx); err != nil && errors.Is(err, core.ErrUnauthenticated) {
			return nil, err
		}
	}
	sig, ok := a.poller.Signals().Find(id)
	if !ok {
		return nil, core.WrapError(core.ErrSignalNotFound, fmt.Errorf("signal %q", id))
	}
	var market *core.MarketData
	if md, ok := a.poller.Market(); ok {
		market = &md
	}
	return a.explainer.Explain(ctx, sig, market)
}

// Watch polls until ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	if err := a.poller.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.poller.Stop()
	return nil
}

// Serve polls and serves the dashboard API until ctx is cancelled. Without a
// stored session the server still starts; polling begins after a restart
// following login.
func (a *App) Serve(ctx context.Context) error {
	if err := a.poller.Start(ctx); err != nil {
		if !errors.Is(err, core.ErrUnauthenticated) {
			return err
		}
		a.logger.Warn("no session token, serving without polling; run login first")
	}
	defer a.poller.Stop()

	deps := api.Dependencies{
		Desk:     a.poller,
		Uploader: a.client,
		Metrics:  a.metrics,
	}
	if a.explainer != nil {
		deps.Explainer = a.explainer
	}
	srv, err := api.NewServer(api.Config{
		Host:        a.cfg.Server.Host,
		Port:        a.cfg.Server.Port,
		APIKey:      a.cfg.Server.APIKey,
		MetricsPath: a.cfg.Metrics.Path,
	}, deps, logger.Component(a.logger, "http"))
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Close releases the store.
func (a *App) Close() error {
	if c, ok := a.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
