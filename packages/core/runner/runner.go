// Package runner delegates test execution to the external framework runner.
//
// The runner itself owns test discovery inside a suite, worker processes,
// and database setup/teardown. This package only prepares its command line
// and environment, streams its output, and reads back the results file it
// writes into the run directory.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Config describes how the external runner is invoked.
type Config struct {
	// Command is the runner command line, e.g. "./manage.py test_runner".
	Command string

	FailFast     bool
	Verbose      bool
	Parallel     int
	Reverse      bool
	KeepDatabase bool

	// Workdir is the checkout root the runner executes in.
	Workdir string
	// Env is the complete child environment.
	Env []string
	// ResultsFile is where the runner writes its JSON results.
	ResultsFile string

	Stdout io.Writer
	Stderr io.Writer
}

// TestRunner is the collaborator interface the orchestrator depends on.
type TestRunner interface {
	RunTests(ctx context.Context, suites []string, fullSuite, includeWebhooks bool) (*Result, error)
	ShallowTestedTemplates(ctx context.Context) ([]string, error)
}

// ErrNoResults means the runner exited without writing a results file, which
// points at a broken environment rather than failing tests.
var ErrNoResults = errors.New("runner produced no results file")

// SubprocessRunner invokes the framework runner as a child process.
type SubprocessRunner struct {
	cfg  *Config
	last *Result
}

// NewSubprocessRunner creates a runner from the given config.
func NewSubprocessRunner(cfg *Config) *SubprocessRunner {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	return &SubprocessRunner{cfg: cfg}
}

// RunTests executes the given suites and returns the aggregate outcome. A
// non-zero child exit with a readable results file is a test failure, not an
// orchestration error.
func (r *SubprocessRunner) RunTests(ctx context.Context, suites []string, fullSuite, includeWebhooks bool) (*Result, error) {
	name, args := r.commandLine(suites, fullSuite, includeWebhooks)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.cfg.Workdir
	cmd.Env = r.cfg.Env
	cmd.Stdout = r.cfg.Stdout
	cmd.Stderr = r.cfg.Stderr

	runErr := cmd.Run()

	data, err := os.ReadFile(r.cfg.ResultsFile)
	if err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoResults, runErr)
		}
		return nil, ErrNoResults
	}

	result, err := ParseResults(data)
	if err != nil {
		return nil, err
	}
	if runErr != nil {
		// Exit status and results file should agree; never report a clean
		// run when the child died.
		result.Failed = true
	}
	r.last = result
	return result, nil
}

// ShallowTestedTemplates returns the template files whose rendering was
// never exercised during the last run.
func (r *SubprocessRunner) ShallowTestedTemplates(ctx context.Context) ([]string, error) {
	if r.last == nil {
		return nil, errors.New("no run recorded yet")
	}
	return r.last.ShallowTemplates, nil
}

func (r *SubprocessRunner) commandLine(suites []string, fullSuite, includeWebhooks bool) (string, []string) {
	parts := strings.Fields(r.cfg.Command)
	name := parts[0]
	args := append([]string(nil), parts[1:]...)

	args = append(args, "--results-file", r.cfg.ResultsFile)
	args = append(args, "--parallel", strconv.Itoa(max(1, r.cfg.Parallel)))
	if r.cfg.FailFast {
		args = append(args, "--fail-fast")
	}
	if r.cfg.Verbose {
		args = append(args, "--verbose")
	}
	if r.cfg.Reverse {
		args = append(args, "--reverse")
	}
	if r.cfg.KeepDatabase {
		args = append(args, "--keep-db")
	}
	if fullSuite {
		args = append(args, "--full-suite")
	}
	if includeWebhooks {
		args = append(args, "--include-webhooks")
	}
	args = append(args, suites...)
	return name, args
}
