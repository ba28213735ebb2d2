package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/newthinker/signaldesk/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	loginToken  string
	loginUserID string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the backend access token",
	Long: `Store the backend access token used for every request. The token may be
passed with --token or through SIGNALDESK_TOKEN.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored token and cached signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
			if err := a.Logout(ctx); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	loginCmd.Flags().StringVar(&loginToken, "token", "", "access token")
	loginCmd.Flags().StringVar(&loginUserID, "user", "", "user id sent with executions")
}

func runLogin(cmd *cobra.Command, args []string) error {
	token := loginToken
	if token == "" {
		token = os.Getenv("SIGNALDESK_TOKEN")
	}
	if token == "" {
		return errors.New("no token: pass --token or set SIGNALDESK_TOKEN")
	}
	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		if err := a.Login(ctx, token, loginUserID); err != nil {
			return err
		}
		if !a.Session().Valid(ctx) {
			fmt.Println("Warning: token is already expired.")
		}
		fmt.Println("Logged in.")
		return nil
	})
}
