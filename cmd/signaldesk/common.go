package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/newthinker/signaldesk/internal/app"
	"github.com/newthinker/signaldesk/internal/config"
	"github.com/newthinker/signaldesk/internal/logger"
	"go.uber.org/zap"
)

func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
		return config.Defaults(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// withApp builds the app, runs fn under a context cancelled on SIGINT or
// SIGTERM, and releases the app afterwards.
func withApp(fn func(ctx context.Context, a *app.App, log *zap.Logger) error) error {
	log := logger.Must(logger.Options{Development: debug})
	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if !debug && cfg.Log.Level != "" {
		log = logger.Must(logger.Options{Level: cfg.Log.Level})
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a, log)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
