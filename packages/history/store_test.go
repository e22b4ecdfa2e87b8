package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RecordAndReadBack(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	durations := map[string]float64{
		"meridian.tests.test_auth.AuthTest.test_login": 0.250,
		"analytics.tests.test_counts.CountTest.test_aggregate": 1.500,
	}
	err = store.RecordRun("run-1", time.Now(), true, durations,
		[]string{"analytics.tests.test_counts.CountTest.test_aggregate"})
	require.NoError(t, err)

	prev, err := store.PreviousDurations()
	require.NoError(t, err)
	assert.Len(t, prev, 2)
	assert.InDelta(t, 0.250, prev["meridian.tests.test_auth.AuthTest.test_login"], 0.001)
}

func TestStore_PreviousDurationsPicksLatestRun(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	base := time.Now()
	require.NoError(t, store.RecordRun("run-1", base.Add(-time.Hour), false,
		map[string]float64{"t": 1.0}, nil))
	require.NoError(t, store.RecordRun("run-2", base, false,
		map[string]float64{"t": 2.0}, nil))

	prev, err := store.PreviousDurations()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, prev["t"], 0.001)
}

func TestStore_EmptyDatabase(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	prev, err := store.PreviousDurations()
	require.NoError(t, err)
	assert.Empty(t, prev)
}
