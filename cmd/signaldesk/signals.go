package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/newthinker/signaldesk/internal/app"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	executeQty   int64
	executePrice float64

	signalsClass     string
	signalsReanalyze bool
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Fetch and list signals for the enabled modules",
	Long: `Fetch and list signals for the enabled modules.

With --class the list comes from the backend's per-class endpoint for one
module. With --reanalyze the pending signals are re-scored by the backend
before they are listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
			if signalsClass != "" {
				return listClass(ctx, a, core.Module(strings.ToLower(signalsClass)))
			}
			if err := syncOnce(ctx, a, log); err != nil {
				return err
			}
			if signalsReanalyze {
				n, err := a.Poller().Reanalyze(ctx)
				if err != nil {
					return err
				}
				log.Info("re-analysis done", zap.Int("updated", n))
			}
			modules := a.Poller().Modules()
			if asJSON {
				return printJSON(modules)
			}
			for _, m := range []core.Module{core.ModuleOptions, core.ModuleIntraday, core.ModuleEquity} {
				printModule(m, modules[m])
			}
			return nil
		})
	},
}

var executeCmd = &cobra.Command{
	Use:   "execute <signal-id>",
	Short: "Place the order for a signal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
			if err := syncOnce(ctx, a, log); err != nil {
				return err
			}
			sig, err := a.Poller().Execute(ctx, args[0], executeQty, executePrice)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(sig)
			}
			fmt.Printf("Order %s placed for %s\n", sig.OrderID, sig.Summary())
			return nil
		})
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain <signal-id>",
	Short: "Ask the configured LLM for an opinion on a signal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
			out, err := a.Explain(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(out)
			}
			fmt.Printf("%s (confidence %d%%, via %s)\n", out.Verdict, out.Confidence, out.Provider)
			fmt.Println(out.Reasoning)
			for _, r := range out.Risks {
				fmt.Printf("  - %s\n", r)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(executeCmd)
	rootCmd.AddCommand(explainCmd)

	signalsCmd.Flags().StringVar(&signalsClass, "class", "", "list one module (options, intraday, equity) from the backend")
	signalsCmd.Flags().BoolVar(&signalsReanalyze, "reanalyze", false, "re-score pending signals before listing")

	executeCmd.Flags().Int64Var(&executeQty, "qty", 0, "quantity (default: signal or configured quantity)")
	executeCmd.Flags().Float64Var(&executePrice, "price", 0, "limit price (default: entry)")
}

func listClass(ctx context.Context, a *app.App, m core.Module) error {
	switch m {
	case core.ModuleOptions, core.ModuleIntraday, core.ModuleEquity:
	default:
		return fmt.Errorf("unknown class %q, want options, intraday or equity", m)
	}
	resp, err := a.Poller().FetchModule(ctx, m)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(resp)
	}
	printModule(m, resp.All())
	return nil
}

func printModule(m core.Module, signals []core.Signal) {
	fmt.Printf("\n%s (%d)\n", strings.ToUpper(string(m)), len(signals))
	if len(signals) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSIGNAL\tENTRY\tTARGET\tSTOP\tR:R\tCONF\tSTATUS\t")
	fmt.Fprintln(w, "--\t------\t-----\t------\t----\t---\t----\t------\t")
	for _, s := range signals {
		status := "pending"
		if s.Executed {
			status = "executed " + s.OrderID
		}
		name := s.Symbol
		if s.Strike > 0 && s.OptionType != "" {
			name = fmt.Sprintf("%s %.0f %s", s.Symbol, s.Strike, s.OptionType)
		}
		fmt.Fprintf(w, "%s\t%s %s\t%.2f\t%.2f\t%.2f\t%.2f\t%d%%\t%s\t\n",
			s.ID, strings.ToUpper(string(s.Action)), name,
			s.Entry, s.Target, s.StopLoss, s.RiskReward, s.Confidence, status)
	}
	w.Flush()
}

// syncOnce runs one cycle. Only a missing session is fatal; fetch failures leave
// the cached signals in place.
func syncOnce(ctx context.Context, a *app.App, log *zap.Logger) error {
	err := a.Poller().Sync(ctx)
	if errors.Is(err, core.ErrUnauthenticated) {
		return fmt.Errorf("not logged in, run 'signaldesk login' first: %w", err)
	}
	if err != nil {
		log.Warn("sync incomplete", zap.Error(err))
	}
	return nil
}
