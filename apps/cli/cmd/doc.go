// Package cmd implements the backtest CLI commands using Cobra.
//
// Available commands:
//   - run: Select and run backend tests through the framework runner
//   - list: Display resolved test identifiers
//   - version: Show backtest version information
//
// The run command carries the orchestration: name resolution, suite
// selection, coverage and profiling sessions, failure tracking for --rerun,
// and the post-run policy checks.
package cmd
