package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/meridian-web/backtest/packages/core/config"
	"github.com/meridian-web/backtest/packages/core/env"
	"github.com/meridian-web/backtest/packages/core/runner"
	"github.com/meridian-web/backtest/packages/coverage"
	"github.com/meridian-web/backtest/packages/failures"
	"github.com/meridian-web/backtest/packages/history"
	"github.com/meridian-web/backtest/packages/netguard"
	"github.com/meridian-web/backtest/packages/profile"
	"github.com/meridian-web/backtest/packages/report"
	"github.com/meridian-web/backtest/packages/resolve"
	"github.com/meridian-web/backtest/packages/suite"
	"github.com/meridian-web/backtest/packages/workspace"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var runCmd = &cobra.Command{
	Use:   "run [tests...]",
	Short: "Run backend tests",
	Long: `Run the backend test suite, or a subset of it.

Test arguments may be bare class names, Class.test_method fragments, file
paths, or dotted module paths; short forms are resolved against the test
source tree. With no arguments the full default suite runs.

Examples:
  backtest run
  backtest run AuthTest
  backtest run AuthTest.test_login
  backtest run meridian/tests/test_auth.py
  backtest run --rerun
  backtest run --coverage --include-webhooks`,
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	nonfatalErrorsFlag   bool
	coverageFlag         bool
	verboseCoverageFlag  bool
	parallelFlag         int
	profileFlag          bool
	forceFlag            bool
	verboseFlag          bool
	generateFixturesFlag bool
	reportSlowFlag       bool
	reverseFlag          bool
	rerunFlag            bool
	includeWebhooksFlag  bool
	noColorFlag          bool
	watchFlag            bool
	configFlag           string
	envFileFlag          string
)

func init() {
	runCmd.Flags().BoolVar(&nonfatalErrorsFlag, "nonfatal-errors", getEnvBool("BACKTEST_NONFATAL_ERRORS", false), "Continue past failing tests instead of stopping (env: BACKTEST_NONFATAL_ERRORS)")
	runCmd.Flags().BoolVar(&coverageFlag, "coverage", getEnvBool("BACKTEST_COVERAGE", false), "Measure coverage and enforce the allowlist policy (env: BACKTEST_COVERAGE)")
	runCmd.Flags().BoolVar(&verboseCoverageFlag, "verbose-coverage", false, "Include missing line numbers in the coverage report")
	runCmd.Flags().IntVar(&parallelFlag, "parallel", getEnvInt("BACKTEST_PARALLEL", runtime.NumCPU()), "Number of runner worker processes (env: BACKTEST_PARALLEL)")
	runCmd.Flags().BoolVar(&profileFlag, "profile", false, "Profile the run and dump the profile into the run directory")
	runCmd.Flags().BoolVar(&forceFlag, "force", false, "Run even when the workspace provision check fails")
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")
	runCmd.Flags().BoolVar(&generateFixturesFlag, "generate-fixtures", false, "Rebuild database fixtures before running")
	runCmd.Flags().BoolVar(&reportSlowFlag, "report-slow-tests", false, "Report tests slower than the configured threshold")
	runCmd.Flags().BoolVar(&reverseFlag, "reverse", false, "Run tests in reverse order")
	runCmd.Flags().BoolVar(&rerunFlag, "rerun", false, "Re-run the tests that failed last time")
	runCmd.Flags().BoolVar(&includeWebhooksFlag, "include-webhooks", false, "Include the webhook test suite in the full run")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("BACKTEST_NO_COLOR", false), "Disable colored output (env: BACKTEST_NO_COLOR)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch test sources and re-run on change")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("BACKTEST_CONFIG", ""), "Path to config file (env: BACKTEST_CONFIG)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("BACKTEST_ENV_FILE", ""), "Path to .env file merged into the runner environment (env: BACKTEST_ENV_FILE)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func runCommand(cmd *cobra.Command, args []string) error {
	if parallelFlag < 1 {
		fmt.Fprintln(os.Stderr, "error: --parallel must be at least 1")
		os.Exit(ExitConfigError)
	}

	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitConfigError)
	}

	console := report.NewConsole(
		report.WithVerbose(verboseFlag),
		report.WithNoColor(noColorFlag),
	)

	// Block outbound network access for the whole run. The child suite gets
	// the same policy through its environment.
	netguard.Install(false)

	ws := workspace.New(".", cfg.RunDir, cfg.RunRetention)
	if err := ws.CheckProvisioned(cfg.ProvisionFile, cfg.ProvisionVersion); err != nil {
		if !forceFlag {
			console.Error(err)
			os.Exit(ExitProvisionError)
		}
		console.Error(fmt.Errorf("%w (continuing because of --force)", err))
	}

	ctx := cmd.Context()
	failed, err := runOnce(ctx, cfg, console, ws, args)
	if err != nil {
		console.Error(err)
		os.Exit(ExitFailure)
	}

	if watchFlag {
		return watchLoop(ctx, cfg, console, ws, args)
	}

	if failed {
		os.Exit(ExitFailure)
	}
	return nil
}

// runOnce performs a single orchestrated run: build steps, delegation to the
// external runner, and all post-run policy checks. It returns whether any
// failure was recorded.
func runOnce(ctx context.Context, cfg *config.Config, console *report.Console, ws *workspace.Workspace, args []string) (bool, error) {
	start := time.Now()

	resolver := resolve.NewResolver(cfg.TestRoots, cfg.TestPrefix)
	tests := resolver.ResolveAll(args)
	parallel := parallelFlag
	failFast := !nonfatalErrorsFlag

	cache := failures.NewCache(cfg.FailureCache)
	if rerunFlag {
		prev, err := cache.Load()
		if err != nil {
			return false, err
		}
		// An empty cache means there is nothing to re-run: fall through to
		// a normal full-suite run.
		if len(prev) > 0 {
			tests = prev
			parallel = 1
			failFast = false
		}
	}

	sel := suite.Select(cfg.DefaultSuites, cfg.WebhookSuite, tests, parallel, includeWebhooksFlag)

	runDir, err := ws.NewRunDir()
	if err != nil {
		return false, err
	}
	defer func() {
		_ = ws.CleanStaleRuns()
	}()

	console.Header(version, sel.Suites, sel.Parallel)

	if cfg.FrontendCommand != "" {
		if err := ws.BuildFrontend(ctx, cfg.FrontendCommand, os.Stderr); err != nil {
			return false, fmt.Errorf("frontend build: %w", err)
		}
	}
	if generateFixturesFlag && cfg.FixtureCommand != "" {
		if err := ws.GenerateFixtures(ctx, cfg.FixtureCommand, os.Stderr); err != nil {
			return false, fmt.Errorf("fixture generation: %w", err)
		}
	}

	childEnv, err := env.Build(env.Options{
		SettingsModule: cfg.SettingsModule,
		URLCoverage:    coverageFlag && sel.FullSuite,
		DenyNetwork:    true,
		EnvFile:        envFileFlag,
	})
	if err != nil {
		return false, err
	}

	var sess *coverage.Session
	if coverageFlag {
		sess = coverage.NewSession(cfg.CoverageTool)
		childEnv = append(childEnv, sess.Env()...)
	}

	var prof *profile.Session
	if profileFlag {
		prof, err = profile.Start(filepath.Join(runDir, "cpu.prof"))
		if err != nil {
			return false, err
		}
	}
	defer func() {
		_ = prof.Stop()
	}()

	r := runner.NewSubprocessRunner(&runner.Config{
		Command:      cfg.RunnerCommand,
		FailFast:     failFast,
		Verbose:      verboseFlag,
		Parallel:     sel.Parallel,
		Reverse:      reverseFlag,
		KeepDatabase: !generateFixturesFlag,
		Env:          childEnv,
		ResultsFile:  filepath.Join(runDir, "results.json"),
	})

	result, runErr := r.RunTests(ctx, sel.Suites, sel.FullSuite, sel.IncludeWebhooks)

	// The coverage session finishes on every path so the report and data
	// files exist even when the delegated run failed.
	if sess != nil {
		finishCoverage(ctx, sess, console, runDir)
	}
	if runErr != nil {
		return true, runErr
	}

	failed := result.Failed
	if err := cache.Save(result.FailedTests); err != nil {
		console.Error(err)
	}
	console.Failures(result.FailedTests)

	// Coverage enforcement only applies to a clean full-suite run: partial
	// runs and failing runs never have trustworthy coverage data.
	if sess != nil && sel.FullSuite && !failed {
		policy := coverage.Policy{
			MustCover:          cfg.MustCover(),
			NotYetCovered:      cfg.NotYetCovered(),
			PermanentExemption: cfg.PermanentExemption,
		}
		violations, err := policy.Enforce(ctx, sess)
		if err != nil {
			return true, err
		}
		console.CoverageViolations(violations)
		if len(violations) > 0 {
			failed = true
		}
	}

	if reportSlowFlag && len(result.Durations) > 0 {
		reportSlowTests(console, cfg, runDir, start, failed, result)
	}

	if sel.FullSuite {
		if templates, err := r.ShallowTestedTemplates(ctx); err == nil {
			console.ShallowTemplates(templates)
		}
	}

	console.Summary(failed, time.Since(start))
	return failed, nil
}

// reportSlowTests prints the slow-test report and records this run in the
// history database. History problems degrade the report, never the run.
func reportSlowTests(console *report.Console, cfg *config.Config, runDir string, start time.Time, failed bool, result *runner.Result) {
	threshold := int64(cfg.SlowTestThresholdMs)

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		console.Error(err)
		console.SlowTests(history.AnalyzeSlow(result.Durations, threshold, nil), threshold)
		return
	}
	defer store.Close()

	prev, err := store.PreviousDurations()
	if err != nil {
		console.Error(err)
	}
	console.SlowTests(history.AnalyzeSlow(result.Durations, threshold, prev), threshold)

	runID := filepath.Base(runDir)
	if err := store.RecordRun(runID, start, failed, result.Durations, result.FailedTests); err != nil {
		console.Error(err)
	}
}

// finishCoverage combines the per-worker data and writes the reports.
// Failures here are printed, not fatal: a broken report must not mask the
// test outcome.
func finishCoverage(ctx context.Context, sess *coverage.Session, console *report.Console, runDir string) {
	ctx = context.WithoutCancel(ctx)
	if err := sess.Combine(ctx); err != nil {
		console.Error(err)
		return
	}
	if err := sess.Report(ctx, os.Stdout, verboseCoverageFlag); err != nil {
		console.Error(err)
	}
	if err := sess.HTMLReport(ctx, filepath.Join(runDir, "coverage-html")); err != nil {
		console.Error(err)
	}
}

// watchLoop re-runs the selected tests whenever a test source changes.
func watchLoop(ctx context.Context, cfg *config.Config, console *report.Console, ws *workspace.Workspace, args []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	for _, root := range cfg.TestRoots {
		_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() && !watched[path] {
				_ = watcher.Add(path)
				watched[path] = true
			}
			return nil
		})
	}

	fmt.Println("\nWatching for changes... (press Ctrl+C to stop)")

	// One rerun at a time, and at most one every few seconds even when the
	// editor rewrites files in bursts.
	limiter := rate.NewLimiter(rate.Every(2*time.Second), 1)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) || !strings.HasSuffix(event.Name, ".py") {
				continue
			}
			if !limiter.Allow() {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				fmt.Printf("\nFile changed: %s\nRe-running tests...\n\n", event.Name)
				if _, err := runOnce(ctx, cfg, console, ws, args); err != nil {
					console.Error(err)
				}
				fmt.Println("\nWatching for changes... (press Ctrl+C to stop)")
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			console.Error(fmt.Errorf("watcher error: %w", err))
		}
	}
}
