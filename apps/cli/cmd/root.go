package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the Meridian backend test suite.",
	Long: `backtest selects, runs, and reports on the Meridian backend test
suite. It resolves short test names against the source tree, delegates
execution to the framework's test runner, enforces the coverage allowlist,
and tracks failures for --rerun.`,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}
