package command

// root.go defines the root command and the flags shared by every subcommand.

import (
	"context"
	"fmt"
	"os"
	"time"

	"lecturehub/cmd/cli/authentication"
	"lecturehub/cmd/cli/command/client"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	apiURL    string // API server URL
	tcpServer string // sync server address
)

var rootCmd = &cobra.Command{
	Use:   "lecturehub",
	Short: "lecturehub - lecture progress from the terminal",
	Long: `lecturehub talks to the lecturehub API and sync server. Use it to:
- Check what to watch next and where you left off
- Mark videos, weeks and courses complete
- Follow progress changes live
- Drive a simulated player that reports progress like the web page does

Use "lecturehub <command> --help" to see all available commands.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("✗ %v", err)
		os.Exit(1)
	}
}

func init() {
	defaultAPI := "http://localhost:8080"
	if v := os.Getenv("LECTUREHUB_API"); v != "" {
		defaultAPI = v
	}
	defaultTCP := "localhost:8081"
	if v := os.Getenv("LECTUREHUB_TCP_SERVER"); v != "" {
		defaultTCP = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api", defaultAPI, "API server URL")
	rootCmd.PersistentFlags().StringVar(&tcpServer, "tcp", defaultTCP, "sync server address")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(courseCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(syncCmd)
}

// session loads stored credentials, refreshing the access token when it is about to expire.
func session(ctx context.Context) (*authentication.StoredCredentials, error) {
	creds, err := authentication.GetTokens()
	if err != nil {
		return nil, err
	}
	if !creds.ExpiresWithin(time.Minute) {
		return creds, nil
	}

	refreshed, err := client.NewHTTPClient(apiURL).RefreshToken(ctx, creds.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("session expired, please login again: %w", err)
	}
	creds.AccessToken = refreshed.AccessToken
	creds.RefreshToken = refreshed.RefreshToken
	creds.ExpiresAt = time.Now().Unix() + refreshed.ExpiresIn
	if err := authentication.StoreTokens(creds); err != nil {
		return nil, fmt.Errorf("failed to store refreshed tokens: %w", err)
	}
	return creds, nil
}

// authenticatedClient returns an HTTP client carrying a valid access token.
func authenticatedClient(ctx context.Context) (*client.HTTPClient, *authentication.StoredCredentials, error) {
	creds, err := session(ctx)
	if err != nil {
		return nil, nil, err
	}
	c := client.NewHTTPClient(apiURL)
	c.SetToken(creds.AccessToken)
	return c, creds, nil
}

func percent(fraction float64) string {
	return fmt.Sprintf("%5.1f%%", fraction*100)
}
