package cmd

import (
	"fmt"

	"github.com/meridian-web/backtest/packages/core/config"
	"github.com/meridian-web/backtest/packages/resolve"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [tests...]",
	Short: "List test identifiers",
	Long: `List fully qualified test identifiers.

With arguments, prints what each argument resolves to. Without arguments,
scans the whole test tree and prints every test method.

Examples:
  backtest list
  backtest list AuthTest
  backtest list meridian/tests/test_auth.py`,
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVar(&configFlag, "config", getEnvString("BACKTEST_CONFIG", ""), "Path to config file (env: BACKTEST_CONFIG)")
}

func listCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return err
	}

	resolver := resolve.NewResolver(cfg.TestRoots, cfg.TestPrefix)

	if len(args) > 0 {
		for _, arg := range args {
			fmt.Fprintln(cmd.OutOrStdout(), resolver.Resolve(arg))
		}
		return nil
	}

	files := resolver.TestFiles()
	if len(files) == 0 {
		return fmt.Errorf("no test files found under %v", cfg.TestRoots)
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionClearOnFinish(),
	)

	var ids []string
	for _, file := range files {
		tests, err := resolve.ListTests(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error scanning %s: %v\n", file, err)
			continue
		}
		ids = append(ids, tests...)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}
