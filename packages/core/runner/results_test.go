package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResults_Valid(t *testing.T) {
	data := []byte(`{
		"failed": true,
		"failed_tests": ["meridian.tests.test_auth.AuthTest.test_login"],
		"durations": {"meridian.tests.test_auth.AuthTest.test_login": 1.25},
		"shallow_tested_templates": ["templates/settings.html"]
	}`)

	result, err := ParseResults(data)
	require.NoError(t, err)
	assert.True(t, result.Failed)
	assert.Equal(t, []string{"meridian.tests.test_auth.AuthTest.test_login"}, result.FailedTests)
	assert.InDelta(t, 1.25, result.Durations["meridian.tests.test_auth.AuthTest.test_login"], 0.001)
	assert.Equal(t, []string{"templates/settings.html"}, result.ShallowTemplates)
}

func TestParseResults_CleanRun(t *testing.T) {
	result, err := ParseResults([]byte(`{"failed": false, "failed_tests": []}`))
	require.NoError(t, err)
	assert.False(t, result.Failed)
	assert.Empty(t, result.FailedTests)
}

func TestParseResults_MissingRequiredField(t *testing.T) {
	_, err := ParseResults([]byte(`{"failed": false}`))
	assert.Error(t, err)
}

func TestParseResults_WrongTypes(t *testing.T) {
	_, err := ParseResults([]byte(`{"failed": "no", "failed_tests": []}`))
	assert.Error(t, err)

	_, err = ParseResults([]byte(`{"failed": false, "failed_tests": [1, 2]}`))
	assert.Error(t, err)
}

func TestCommandLine_SerialExplicitRun(t *testing.T) {
	r := NewSubprocessRunner(&Config{
		Command:     "./manage.py test_runner",
		Parallel:    1,
		ResultsFile: "var/test-runs/x/results.json",
	})

	name, args := r.commandLine([]string{"meridian.tests.test_auth.AuthTest"}, false, false)
	assert.Equal(t, "./manage.py", name)
	assert.Equal(t, []string{
		"test_runner",
		"--results-file", "var/test-runs/x/results.json",
		"--parallel", "1",
		"meridian.tests.test_auth.AuthTest",
	}, args)
}

func TestCommandLine_FullSuiteFlags(t *testing.T) {
	r := NewSubprocessRunner(&Config{
		Command:      "./manage.py test_runner",
		FailFast:     true,
		Verbose:      true,
		Parallel:     4,
		Reverse:      true,
		KeepDatabase: true,
		ResultsFile:  "results.json",
	})

	_, args := r.commandLine([]string{"meridian.tests", "analytics.tests"}, true, true)
	assert.Contains(t, args, "--fail-fast")
	assert.Contains(t, args, "--verbose")
	assert.Contains(t, args, "--reverse")
	assert.Contains(t, args, "--keep-db")
	assert.Contains(t, args, "--full-suite")
	assert.Contains(t, args, "--include-webhooks")
	assert.Equal(t, "analytics.tests", args[len(args)-1])
}

func TestCommandLine_ParallelFloor(t *testing.T) {
	r := NewSubprocessRunner(&Config{Command: "runner", Parallel: 0, ResultsFile: "r.json"})

	_, args := r.commandLine(nil, true, false)
	assert.Contains(t, args, "--parallel")
	for i, a := range args {
		if a == "--parallel" {
			assert.Equal(t, "1", args[i+1])
		}
	}
}
