// Package env builds the environment for the delegated test runner process.
package env

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names understood by the instrumented test suite.
const (
	// SettingsModuleVar selects the settings module the suite boots with.
	SettingsModuleVar = "MERIDIAN_SETTINGS_MODULE"

	// UnbufferedVar forces unbuffered output from the child so failures
	// stream as they happen.
	UnbufferedVar = "PYTHONUNBUFFERED"

	// URLCoverageVar signals instrumentation code in the suite to record
	// per-URL coverage.
	URLCoverageVar = "MERIDIAN_INSTRUMENT_URL_COVERAGE"

	// DenyNetworkVar tells the suite's test setup that outbound network
	// access is not allowed unless a mocking facility is active.
	DenyNetworkVar = "MERIDIAN_DENY_NETWORK"
)

// proxyVars are stripped from the child environment so tests never route
// through a developer's proxy.
var proxyVars = []string{
	"http_proxy", "https_proxy", "no_proxy",
	"HTTP_PROXY", "HTTPS_PROXY", "NO_PROXY",
}

// Options controls what gets injected into the child environment.
type Options struct {
	SettingsModule string
	URLCoverage    bool
	DenyNetwork    bool
	EnvFile        string // optional .env file merged in, lowest precedence
}

// Build returns the environment for the delegated runner: the current
// process environment with proxy variables removed and the suite control
// variables applied.
func Build(opts Options) ([]string, error) {
	base := map[string]string{}

	if opts.EnvFile != "" {
		fileVars, err := godotenv.Read(opts.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", opts.EnvFile, err)
		}
		for k, v := range fileVars {
			base[k] = v
		}
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		base[k] = v
	}

	for _, k := range proxyVars {
		delete(base, k)
	}

	if opts.SettingsModule != "" {
		base[SettingsModuleVar] = opts.SettingsModule
	}
	base[UnbufferedVar] = "1"
	if opts.URLCoverage {
		base[URLCoverageVar] = "TRUE"
	}
	if opts.DenyNetwork {
		base[DenyNetworkVar] = "1"
	}

	env := make([]string, 0, len(base))
	for k, v := range base {
		env = append(env, k+"="+v)
	}
	return env, nil
}
