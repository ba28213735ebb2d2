package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/signaldesk/internal/app"
	"github.com/newthinker/signaldesk/internal/core"
	"github.com/newthinker/signaldesk/internal/prefs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or edit trading preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPrefs(func(tp *prefs.TradingPreferences) (bool, error) {
			return false, nil
		})
	},
}

var prefsToggleCmd = &cobra.Command{
	Use:   "toggle <field> <value>",
	Short: "Add or remove a value, e.g. toggle options.indexes BANKNIFTY",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPrefs(func(tp *prefs.TradingPreferences) (bool, error) {
			changed, err := tp.Toggle(prefs.Field(args[0]), args[1])
			if err == nil && !changed {
				fmt.Println("Unchanged: at least one value must stay selected.")
			}
			return changed, err
		})
	},
}

var prefsEnableCmd = &cobra.Command{
	Use:       "enable <module>",
	Short:     "Enable the options, intraday or equity module",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"options", "intraday", "equity"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return setModule(args[0], true)
	},
}

var prefsDisableCmd = &cobra.Command{
	Use:       "disable <module>",
	Short:     "Disable the options, intraday or equity module",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"options", "intraday", "equity"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return setModule(args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsToggleCmd)
	prefsCmd.AddCommand(prefsEnableCmd)
	prefsCmd.AddCommand(prefsDisableCmd)
}

func setModule(name string, enabled bool) error {
	return withPrefs(func(tp *prefs.TradingPreferences) (bool, error) {
		m := core.Module(strings.ToLower(name))
		if err := tp.SetEnabled(m, enabled); err != nil {
			return false, err
		}
		return true, nil
	})
}

// withPrefs loads the saved preferences, applies edit, saves them when edit
// reports a change and prints the result.
func withPrefs(edit func(tp *prefs.TradingPreferences) (bool, error)) error {
	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		tp, err := prefs.Load(ctx, a.Store())
		if err != nil {
			log.Warn("saved preferences unreadable, using defaults", zap.Error(err))
		}
		changed, err := edit(&tp)
		if err != nil {
			return err
		}
		if changed {
			tp.Normalize()
			if err := prefs.Save(ctx, a.Store(), tp); err != nil {
				return err
			}
		}
		if asJSON {
			return printJSON(tp)
		}
		printPrefs(tp)
		return nil
	})
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func printPrefs(tp prefs.TradingPreferences) {
	fmt.Printf("options   %-3s  indexes=%s modes=%s\n", onOff(tp.Options.Enabled),
		strings.Join(tp.Options.Indexes, ","), strings.Join(tp.Options.Modes, ","))
	fmt.Printf("intraday  %-3s  sectors=%s caps=%s risk=%.1f%% scan=%s\n", onOff(tp.Intraday.Enabled),
		strings.Join(tp.Intraday.Sectors, ","), strings.Join(tp.Intraday.MarketCaps, ","),
		tp.Intraday.RiskPerTrade, tp.Intraday.ScanFrequency)
	fmt.Printf("equity    %-3s  universe=%s sectors=%s caps=%s risk=%.1f%%\n", onOff(tp.Equity.Enabled),
		strings.Join(tp.Equity.Universe, ","), strings.Join(tp.Equity.Sectors, ","),
		strings.Join(tp.Equity.MarketCaps, ","), tp.Equity.RiskPerTrade)
	fmt.Printf("query     %s\n", tp.Query().Encode())
}
