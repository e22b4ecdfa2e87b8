package config

// DefaultConfig returns a configuration with default values for a Meridian
// checkout.
func DefaultConfig() *Config {
	return &Config{
		DefaultSuites: []string{
			"meridian.tests",
			"analytics.tests",
			"billing.tests",
		},
		WebhookSuite: "meridian.webhooks",
		TestRoots: []string{
			"meridian/tests",
			"meridian/webhooks",
			"analytics/tests",
			"billing/tests",
		},
		TestPrefix: "test_",

		RunnerCommand:   "./manage.py test_runner",
		CoverageTool:    "coverage",
		FrontendCommand: "./tools/build-assets --test",
		FixtureCommand:  "./tools/generate-fixtures",

		RunDir:           "var/test-runs",
		RunRetention:     5,
		SettingsModule:   "settings.test_settings",
		ProvisionFile:    "var/provision_version",
		ProvisionVersion: "",

		PermanentExemption: "meridian/tests/helpers.py",

		SlowTestThresholdMs: 500,
		FailureCache:        "var/failed-tests.json",
		HistoryDB:           "var/test-history.db",
	}
}
