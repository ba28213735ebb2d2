package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/newthinker/signaldesk/internal/api/client"
	"github.com/newthinker/signaldesk/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <report.pdf>",
	Short: "Upload a PDF report for AI analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if err := client.CheckReportName(path); err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := a.Client().UploadReport(ctx, filepath.Base(path), f)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(res)
			}
			if s := res.Summary(); s != "" {
				fmt.Println(s)
				return nil
			}
			return printJSON(res.Analysis)
		})
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
