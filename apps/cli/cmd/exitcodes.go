package cmd

// Exit codes for the backtest CLI
const (
	// ExitSuccess indicates all tests and policy checks passed
	ExitSuccess = 0

	// ExitFailure indicates test failures, coverage regressions, or stale
	// exemptions
	ExitFailure = 1

	// ExitProvisionError indicates the workspace is not provisioned
	ExitProvisionError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
