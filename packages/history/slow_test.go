package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeSlow_Threshold(t *testing.T) {
	durations := map[string]float64{
		"fast.test_a": 0.010,
		"slow.test_b": 0.900,
		"slow.test_c": 2.500,
	}

	report := AnalyzeSlow(durations, 500, nil)

	assert.Len(t, report.Tests, 2)
	assert.Equal(t, "slow.test_c", report.Tests[0].ID)
	assert.Equal(t, int64(2500), report.Tests[0].Millis)
	assert.Equal(t, "slow.test_b", report.Tests[1].ID)
}

func TestAnalyzeSlow_PreviousDeltas(t *testing.T) {
	durations := map[string]float64{"slow.test_b": 0.900}
	prev := map[string]float64{"slow.test_b": 0.600}

	report := AnalyzeSlow(durations, 500, prev)

	assert.Len(t, report.Tests, 1)
	assert.Equal(t, int64(600), report.Tests[0].PrevMillis)
}

func TestAnalyzeSlow_NothingSlow(t *testing.T) {
	report := AnalyzeSlow(map[string]float64{"fast.test_a": 0.010}, 500, nil)

	assert.Empty(t, report.Tests)
	assert.GreaterOrEqual(t, report.P95, report.P50)
}

func TestAnalyzeSlow_StableOrderForTies(t *testing.T) {
	durations := map[string]float64{
		"slow.test_b": 1.0,
		"slow.test_a": 1.0,
	}

	report := AnalyzeSlow(durations, 500, nil)

	assert.Equal(t, "slow.test_a", report.Tests[0].ID)
	assert.Equal(t, "slow.test_b", report.Tests[1].ID)
}
