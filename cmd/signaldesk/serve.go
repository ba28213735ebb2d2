package main

import (
	"context"

	"github.com/newthinker/signaldesk/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the backend until interrupted",
	Long: `Poll market data and signals every poll.interval. New signals are written
to the log and sent to the enabled notifiers; with poll.auto_execute set,
qualifying signals are executed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
			log.Info("watching, press Ctrl+C to stop")
			return a.Watch(ctx)
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll and serve the local dashboard API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
			return a.Serve(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}
