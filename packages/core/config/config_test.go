package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches the working directory for the test and restores it on
// cleanup, matching testing.T.Chdir (added in Go 1.24, unavailable here).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, []string{"meridian.tests", "analytics.tests", "billing.tests"}, cfg.DefaultSuites)
	assert.Equal(t, "meridian.webhooks", cfg.WebhookSuite)
	assert.Equal(t, "test_", cfg.TestPrefix)
	assert.Equal(t, 5, cfg.RunRetention)
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backtest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
defaultSuites:
  - app.tests
webhookSuite: app.webhooks
slowTestThresholdMs: 250
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.tests"}, cfg.DefaultSuites)
	assert.Equal(t, "app.webhooks", cfg.WebhookSuite)
	assert.Equal(t, 250, cfg.SlowTestThresholdMs)
	// Untouched fields keep their defaults.
	assert.Equal(t, "test_", cfg.TestPrefix)
}

func TestFindAndLoadConfig_NoFileUsesDefaults(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().DefaultSuites, cfg.DefaultSuites)
}

func TestAllowlistGlobExpansion(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.MkdirAll("meridian/views", 0755))
	for _, name := range []string{"auth.py", "messages.py"} {
		require.NoError(t, os.WriteFile(filepath.Join("meridian/views", name), nil, 0644))
	}

	path := filepath.Join(dir, "backtest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mustCover:
  - meridian/views/*.py
notYetCovered:
  - meridian/lib/markdown.py
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"meridian/views/auth.py", "meridian/views/messages.py"}, cfg.MustCover())
	// Literal entries survive even when the file is absent on disk.
	assert.Equal(t, []string{"meridian/lib/markdown.py"}, cfg.NotYetCovered())
}

func TestAllowlistsAreDeduplicated(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.MkdirAll("meridian/views", 0755))
	require.NoError(t, os.WriteFile("meridian/views/auth.py", nil, 0644))

	cfg := DefaultConfig()
	cfg.MustCoverGlobs = []string{"meridian/views/*.py", "meridian/views/auth.py"}
	require.NoError(t, cfg.expandAllowlists())

	assert.Equal(t, []string{"meridian/views/auth.py"}, cfg.MustCover())
}
