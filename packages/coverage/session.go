// Package coverage wraps the external coverage-measurement tool and
// enforces the 100%-coverage allowlist policy after a full-suite run.
package coverage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Session is a scoped coverage-measurement session around a delegated test
// run. The measurement itself happens inside the child processes; the
// session drives the tool's combine/report surface afterwards.
type Session struct {
	tool    string
	workdir string

	export []byte // cached JSON export, fetched lazily
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithWorkdir sets the directory the tool runs in.
func WithWorkdir(dir string) SessionOption {
	return func(s *Session) {
		s.workdir = dir
	}
}

// NewSession creates a session driving the given coverage tool binary.
func NewSession(tool string, opts ...SessionOption) *Session {
	s := &Session{tool: tool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Env returns environment variables that switch measurement on in the child
// test processes.
func (s *Session) Env() []string {
	return []string{"COVERAGE_PROCESS_START=.coveragerc"}
}

// Combine merges the per-worker data files into a single data set. Called
// once after the delegated run, on all exit paths.
func (s *Session) Combine(ctx context.Context) error {
	return s.run(ctx, nil, "combine")
}

// Report writes the textual coverage report to w. With verbose set the
// report includes missing line numbers per file.
func (s *Session) Report(ctx context.Context, w io.Writer, verbose bool) error {
	args := []string{"report"}
	if verbose {
		args = append(args, "-m")
	}
	return s.run(ctx, w, args...)
}

// HTMLReport writes an HTML coverage report into dir.
func (s *Session) HTMLReport(ctx context.Context, dir string) error {
	return s.run(ctx, nil, "html", "-d", dir)
}

// MissingLines returns the uncovered line numbers for path. ok is false when
// the file is absent from the coverage data, which callers treat as "not
// applicable" rather than an error.
func (s *Session) MissingLines(ctx context.Context, path string) ([]int, bool, error) {
	data, err := s.exportJSON(ctx)
	if err != nil {
		return nil, false, err
	}

	file, ok := fileEntry(data, path)
	if !ok {
		return nil, false, nil
	}
	return missingLines(file), true, nil
}

// exportJSON runs the tool's JSON export once and caches the result for
// per-file queries.
func (s *Session) exportJSON(ctx context.Context) ([]byte, error) {
	if s.export != nil {
		return s.export, nil
	}

	var out bytes.Buffer
	if err := s.run(ctx, &out, "json", "-o", "-"); err != nil {
		return nil, err
	}
	s.export = out.Bytes()
	return s.export, nil
}

func (s *Session) run(ctx context.Context, out io.Writer, args ...string) error {
	cmd := exec.CommandContext(ctx, s.tool, args...)
	cmd.Dir = s.workdir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if out != nil {
		cmd.Stdout = out
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w\n%s", s.tool, args[0], err, stderr.String())
	}
	return nil
}
