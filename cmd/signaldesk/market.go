package main

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/signaldesk/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Show the NIFTY/BANKNIFTY snapshot and session status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
			md, err := a.Client().MarketData(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(md)
			}
			fmt.Printf("Market:    %s (%s - %s)\n", md.Status, md.OpenTime, md.CloseTime)
			fmt.Printf("NIFTY:     %.2f  %+.2f (%+.2f%%)\n", md.Nifty.Price, md.Nifty.Change, md.Nifty.ChangePercent)
			fmt.Printf("BANKNIFTY: %.2f  %+.2f (%+.2f%%)\n", md.BankNifty.Price, md.BankNifty.Change, md.BankNifty.ChangePercent)
			if md.IsOpen() {
				fmt.Printf("Session:   %s elapsed, %s remaining\n",
					md.Elapsed().Truncate(time.Minute), md.Remaining().Truncate(time.Minute))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(marketCmd)
}
