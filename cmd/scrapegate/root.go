package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"scrapegate/pkg/config"
	"scrapegate/pkg/logger"
)

var (
	version   = "0.1.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	configFile string
	logLevel   string
	cfg        *config.Config
)

// rootCmd is the base command when scrapegate is called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "scrapegate",
	Short: "A priority-queued scraping gateway fronting a pool of accounts and proxies",
	Long: `scrapegate dispatches scraping operations across a pool of upstream
accounts and proxies, tracking per-account health and walking an
authentication ladder before every call.

Features:
  - Bounded three-level priority queue with admission-order fairness
  - Account health state machine (HEALTHY/PROBATION/COOLDOWN/DISABLED/LOCKED)
  - Cached-cookie / pre-obtained-token / credential-login auth ladder
  - REST surface at /api/v3 with an admin-token-gated stats endpoint
  - Cron-scheduled reload of the accounts and proxies flat files`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configFile, map[string]interface{}{
			"log-level": logLevel,
		})
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		cfg = loaded

		if err := logger.Initialize(&cfg.Logging); err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
}

// Execute runs the root command, exiting non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: .scrapegate.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`scrapegate {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func main() {
	Execute()
}
