// Package workspace handles the environment side of a test run: the
// provision check, the frontend asset build, fixture generation, and the
// per-run directories under var/test-runs.
package workspace

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ProvisionError means the checkout's provision version does not match what
// this tree expects. Not retried; --force bypasses the check.
type ProvisionError struct {
	Found    string
	Expected string
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("workspace is not provisioned for this tree (have %q, want %q); re-provision or pass --force",
		e.Found, e.Expected)
}

// Workspace is a checkout plus the run-directory root.
type Workspace struct {
	root      string
	runRoot   string
	retention int
}

// New creates a Workspace rooted at the checkout directory.
func New(root, runRoot string, retention int) *Workspace {
	if retention < 1 {
		retention = 1
	}
	return &Workspace{root: root, runRoot: runRoot, retention: retention}
}

// CheckProvisioned compares the provision-version file with the expected
// version. An empty expected version disables the check.
func (w *Workspace) CheckProvisioned(versionFile, expected string) error {
	if expected == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(w.root, versionFile))
	if err != nil {
		return &ProvisionError{Found: "", Expected: expected}
	}
	found := strings.TrimSpace(string(data))
	if found != expected {
		return &ProvisionError{Found: found, Expected: expected}
	}
	return nil
}

// BuildFrontend runs the frontend asset build as a blocking subprocess.
func (w *Workspace) BuildFrontend(ctx context.Context, command string, out io.Writer) error {
	return w.runCommand(ctx, command, out)
}

// GenerateFixtures invokes the database-fixture preparation step.
func (w *Workspace) GenerateFixtures(ctx context.Context, command string, out io.Writer) error {
	return w.runCommand(ctx, command, out)
}

func (w *Workspace) runCommand(ctx context.Context, command string, out io.Writer) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = w.root
	cmd.Env = os.Environ()
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %q failed: %w", command, err)
	}
	return nil
}

// NewRunDir creates a fresh per-run directory under the run root.
func (w *Workspace) NewRunDir() (string, error) {
	dir := filepath.Join(w.root, w.runRoot, uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}
	return dir, nil
}

// CleanStaleRuns removes old run directories, keeping the newest retention
// entries. Best effort: a directory that cannot be removed is skipped.
func (w *Workspace) CleanStaleRuns() error {
	root := filepath.Join(w.root, w.runRoot)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type dirInfo struct {
		name  string
		mtime int64
	}
	var dirs []dirInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, dirInfo{name: e.Name(), mtime: info.ModTime().UnixNano()})
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mtime > dirs[j].mtime })

	for i := w.retention; i < len(dirs); i++ {
		_ = os.RemoveAll(filepath.Join(root, dirs[i].name))
	}
	return nil
}
