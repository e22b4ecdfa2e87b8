// Package failures persists the failed-test list between runs for --rerun.
package failures

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record is the persisted shape of a run's failures.
type Record struct {
	Timestamp string   `json:"timestamp"`
	Failed    []string `json:"failed"`
}

// Cache reads and writes the failed-test file.
type Cache struct {
	path string
}

// NewCache creates a cache backed by the given file path.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Load returns the failed test identifiers from the previous run, in order.
// A missing file reads as an empty list.
func (c *Cache) Load() ([]string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading failure cache: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parsing failure cache: %w", err)
	}
	return record.Failed, nil
}

// Save overwrites the cache with this run's failed test identifiers.
func (c *Cache) Save(failed []string) error {
	if failed == nil {
		failed = []string{}
	}
	record := Record{
		Timestamp: time.Now().Format(time.RFC3339),
		Failed:    failed,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal failure cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return os.WriteFile(c.path, data, 0644)
}
