// Package api serves the local dashboard API over the poller.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	handler "github.com/newthinker/signaldesk/internal/api/handler/api"
	"github.com/newthinker/signaldesk/internal/api/job"
	"github.com/newthinker/signaldesk/internal/api/middleware"
	"github.com/newthinker/signaldesk/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server of the dashboard
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	router     chi.Router
	jobs       *job.Store
	cancel     context.CancelFunc
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string
}

// Dependencies holds the server's collaborators. Explainer, Uploader and
// Metrics may be nil; their routes then report the feature as unavailable.
type Dependencies struct {
	Desk      handler.Desk
	Explainer handler.Explainer
	Uploader  handler.Uploader
	Metrics   *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Desk == nil {
		return nil, errors.New("api server requires a desk")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		logger: logger,
		router: chi.NewRouter(),
		jobs:   job.NewStore(100, time.Hour),
		cancel: cancel,
	}
	s.setupRoutes(ctx, cfg, deps)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes(ctx context.Context, cfg Config, deps Dependencies) {
	r := s.router
	r.Use(chimw.Recoverer)
	r.Use(metrics.LoggingMiddleware(s.logger))
	r.Use(metrics.HTTPMiddleware(deps.Metrics))

	r.Get("/api/health", s.handleHealth)
	if deps.Metrics != nil {
		r.Handle(cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	signals := handler.NewSignalsHandler(deps.Desk, deps.Explainer)
	market := handler.NewMarketHandler(deps.Desk)
	preferences := handler.NewPreferencesHandler(deps.Desk)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKey))
		r.Use(chimw.Timeout(60 * time.Second))

		r.Get("/signals", signals.List)
		r.Get("/signals/{id}", signals.Get)
		r.Post("/signals/{id}/execute", signals.Execute)
		r.Post("/signals/{id}/explain", signals.Explain)
		r.Get("/modules", signals.Modules)
		r.Post("/signals/reanalyze", signals.Reanalyze)
		r.Post("/refresh", signals.Refresh)

		r.Get("/market", market.Market)
		r.Get("/status", market.Status)
		r.Get("/logs", market.Logs)

		r.Get("/preferences", preferences.Get)
		r.Put("/preferences", preferences.Put)
		r.Post("/preferences", preferences.Put)
		r.Post("/preferences/toggle", preferences.Toggle)
		r.Get("/preferences/form", preferences.Form)

		if deps.Uploader != nil {
			reports := handler.NewReportsHandler(ctx, deps.Uploader, s.jobs)
			r.Post("/reports", reports.Upload)
			r.Get("/reports", reports.List)
			r.Get("/reports/{id}", reports.Get)
		}
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, cancels report jobs and waits for them.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	err := s.httpServer.Shutdown(ctx)
	s.cancel()
	s.jobs.Wait()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
