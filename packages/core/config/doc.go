// Package config handles configuration loading for backtest.
//
// It provides functionality for:
//   - Loading configuration from .backtest.yaml files
//   - Default configuration values for a Meridian checkout
//   - One-time expansion of the coverage allowlist globs
package config
