package failures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_MissingFileReadsEmpty(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "nope", "failed.json"))

	failed, err := cache.Load()
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestCache_RoundTrip(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "failed.json"))

	ids := []string{
		"meridian.tests.test_auth.AuthTest.test_login",
		"analytics.tests.test_counts.CountTest.test_aggregate",
	}
	require.NoError(t, cache.Save(ids))

	loaded, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, ids, loaded)
}

func TestCache_SaveOverwrites(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "failed.json"))

	require.NoError(t, cache.Save([]string{"a", "b"}))
	require.NoError(t, cache.Save(nil))

	loaded, err := cache.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestCache_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.json")
	cache := NewCache(path)
	require.NoError(t, cache.Save([]string{"a"}))

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := cache.Load()
	assert.Error(t, err)
}
