package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config represents the backtest project configuration.
type Config struct {
	// Suites
	DefaultSuites []string `yaml:"defaultSuites,omitempty"` // full-suite packages, fixed order
	WebhookSuite  string   `yaml:"webhookSuite,omitempty"`
	TestRoots     []string `yaml:"testRoots,omitempty"`  // directories scanned for test sources
	TestPrefix    string   `yaml:"testPrefix,omitempty"` // recognized test-file prefix, e.g. "test_"

	// External collaborators
	RunnerCommand   string `yaml:"runnerCommand,omitempty"`
	CoverageTool    string `yaml:"coverageTool,omitempty"`
	FrontendCommand string `yaml:"frontendCommand,omitempty"`
	FixtureCommand  string `yaml:"fixtureCommand,omitempty"`

	// Workspace
	RunDir           string `yaml:"runDir,omitempty"` // root for per-run directories
	RunRetention     int    `yaml:"runRetention,omitempty"`
	SettingsModule   string `yaml:"settingsModule,omitempty"`
	ProvisionFile    string `yaml:"provisionFile,omitempty"`
	ProvisionVersion string `yaml:"provisionVersion,omitempty"`

	// Coverage policy
	MustCoverGlobs     []string `yaml:"mustCover,omitempty"`
	NotYetCoveredGlobs []string `yaml:"notYetCovered,omitempty"`
	PermanentExemption string   `yaml:"permanentExemption,omitempty"`

	// Reporting and persisted state
	SlowTestThresholdMs int    `yaml:"slowTestThresholdMs,omitempty"`
	FailureCache        string `yaml:"failureCache,omitempty"`
	HistoryDB           string `yaml:"historyDB,omitempty"`

	// Expanded allowlists, populated once by LoadConfig. Never mutated after.
	mustCover     []string
	notYetCovered []string
}

// ConfigFilenames contains the possible config file names, in search order.
var ConfigFilenames = []string{
	".backtest.yaml",
	".backtest.yml",
	"backtest.yaml",
}

// LoadConfig loads configuration from the specified path or searches for
// config files in the current directory. Coverage allowlist globs are
// expanded exactly once here.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory.
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}
	cfg := DefaultConfig()
	if err := cfg.expandAllowlists(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := config.expandAllowlists(); err != nil {
		return nil, err
	}
	return config, nil
}

// expandAllowlists resolves the coverage globs into sorted path sets. A glob
// that matches nothing is not an error: the allowlist entry is simply stale
// relative to this checkout.
func (c *Config) expandAllowlists() error {
	var err error
	c.mustCover, err = expandGlobs(c.MustCoverGlobs)
	if err != nil {
		return fmt.Errorf("mustCover: %w", err)
	}
	c.notYetCovered, err = expandGlobs(c.NotYetCoveredGlobs)
	if err != nil {
		return fmt.Errorf("notYetCovered: %w", err)
	}
	return nil
}

func expandGlobs(globs []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, g := range globs {
		matches, err := filepath.Glob(g)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", g, err)
		}
		if matches == nil && !hasGlobMeta(g) {
			// Literal path with no hit on disk: keep it so the policy check
			// can still name it.
			matches = []string{g}
		}
		for _, m := range matches {
			m = filepath.ToSlash(m)
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func hasGlobMeta(s string) bool {
	for _, r := range s {
		if r == '*' || r == '?' || r == '[' {
			return true
		}
	}
	return false
}

// MustCover returns the expanded set of paths required to hold 100% line
// coverage.
func (c *Config) MustCover() []string {
	return c.mustCover
}

// NotYetCovered returns the expanded set of paths known to be below full
// coverage.
func (c *Config) NotYetCovered() []string {
	return c.notYetCovered
}

// SaveConfig saves the configuration to a file.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
