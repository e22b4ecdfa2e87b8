// Package report renders run results, coverage violations, and slow-test
// summaries to the terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/meridian-web/backtest/packages/coverage"
	"github.com/meridian-web/backtest/packages/history"
)

type Console struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*Console)

func NewConsole(opts ...ConsoleOption) *Console {
	c := &Console{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.noColor {
		color.NoColor = true
	}
	return c
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(c *Console) {
		c.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(c *Console) {
		c.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(c *Console) {
		c.noColor = nc
	}
}

// Header prints the run banner with the selected suites.
func (c *Console) Header(version string, suites []string, parallel int) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(c.writer, "%s\n", bold("backtest "+version))
	fmt.Fprintf(c.writer, "Running %d suite(s), parallelism %d\n", len(suites), parallel)
	if c.verbose {
		for _, s := range suites {
			fmt.Fprintf(c.writer, "  - %s\n", s)
		}
	}
	fmt.Fprintln(c.writer)
}

// Failures lists failed test identifiers.
func (c *Console) Failures(failed []string) {
	if len(failed) == 0 {
		return
	}
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(c.writer, "\n%s\n", red(fmt.Sprintf("%d test(s) failed:", len(failed))))
	for _, id := range failed {
		fmt.Fprintf(c.writer, "  %s %s\n", red("✗"), id)
	}
}

// CoverageViolations reports ratchet failures: regressions with their
// missing line numbers, and exemptions that went stale.
func (c *Console) CoverageViolations(violations []coverage.Violation) {
	if len(violations) == 0 {
		return
	}
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintln(c.writer)
	for _, v := range violations {
		switch v.Kind {
		case coverage.Regression:
			fmt.Fprintf(c.writer, "%s %s is missing coverage on lines %s\n",
				red("coverage:"), v.Path, formatLines(v.MissingLines))
		case coverage.StaleExemption:
			fmt.Fprintf(c.writer, "%s %s is now fully covered; remove it from the not-yet-covered list\n",
				yellow("coverage:"), v.Path)
		}
	}
}

// SlowTests prints the slow-test report with previous-run deltas where
// available.
func (c *Console) SlowTests(rep *history.SlowReport, thresholdMs int64) {
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(c.writer, "\nTest durations: p50=%dms p95=%dms p99=%dms\n",
		rep.P50, rep.P95, rep.P99)

	if len(rep.Tests) == 0 {
		fmt.Fprintf(c.writer, "No tests slower than %dms\n", thresholdMs)
		return
	}

	fmt.Fprintf(c.writer, "Tests slower than %dms:\n", thresholdMs)
	for _, t := range rep.Tests {
		line := fmt.Sprintf("  %s %s", cyan(fmt.Sprintf("%5dms", t.Millis)), t.ID)
		if t.PrevMillis > 0 {
			delta := t.Millis - t.PrevMillis
			sign := "+"
			if delta < 0 {
				sign = ""
			}
			line += fmt.Sprintf(" (%s%dms vs last run)", sign, delta)
		}
		fmt.Fprintln(c.writer, line)
	}
}

// ShallowTemplates lists template files never rendered by any test.
func (c *Console) ShallowTemplates(templates []string) {
	if len(templates) == 0 {
		return
	}
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(c.writer, "\n%s\n", yellow(fmt.Sprintf("%d template(s) were never rendered during tests:", len(templates))))
	for _, t := range templates {
		fmt.Fprintf(c.writer, "  - %s\n", t)
	}
}

// Error prints an error.
func (c *Console) Error(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(c.writer, "%s %v\n", red("error:"), err)
}

// Summary prints the final PASS/FAIL line.
func (c *Console) Summary(failed bool, duration time.Duration) {
	fmt.Fprintln(c.writer)
	if failed {
		red := color.New(color.FgRed, color.Bold).SprintFunc()
		fmt.Fprintf(c.writer, "%s (%.1fs)\n", red("FAIL"), duration.Seconds())
		return
	}
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Fprintf(c.writer, "%s (%.1fs)\n", green("PASS"), duration.Seconds())
}

func formatLines(lines []int) string {
	parts := make([]string, len(lines))
	for i, n := range lines {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
