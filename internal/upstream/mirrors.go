package upstream

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	indexVersion  = "1.0"
	indexFileName = "mirrors.json"
)

// mirrorEntry records one cached template mirror.
type mirrorEntry struct {
	Location  string    `json:"location"`
	Directory string    `json:"directory"`
	ClonedAt  time.Time `json:"cloned_at"`
	FetchedAt time.Time `json:"fetched_at"`
}

// mirrorIndex tracks the template mirrors living under a cache directory,
// keyed by template location.
type mirrorIndex struct {
	Version string                 `json:"version"`
	Entries map[string]mirrorEntry `json:"entries"`
	path    string
}

// loadMirrorIndex creates or loads the mirror index for the given cache
// directory. A corrupted or version-mismatched index starts fresh rather
// than failing; the mirrors themselves are still on disk.
func loadMirrorIndex(cacheDir string) (*mirrorIndex, error) {
	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	indexPath := filepath.Join(cacheDir, indexFileName)
	index := &mirrorIndex{
		Version: indexVersion,
		Entries: make(map[string]mirrorEntry),
		path:    indexPath,
	}

	// #nosec G304 - indexPath is constructed from the trusted cache directory
	if data, err := os.ReadFile(indexPath); err == nil {
		if err := json.Unmarshal(data, index); err != nil {
			// Corrupted index, start fresh
			index.Entries = make(map[string]mirrorEntry)
		}
		// Version mismatch, invalidate the index
		if index.Version != indexVersion {
			index.Entries = make(map[string]mirrorEntry)
			index.Version = indexVersion
		}
	}

	index.path = indexPath
	return index, nil
}

// record registers a freshly cloned mirror for the location.
func (m *mirrorIndex) record(location, directory string) {
	now := time.Now()
	m.Entries[location] = mirrorEntry{
		Location:  location,
		Directory: directory,
		ClonedAt:  now,
		FetchedAt: now,
	}
}

// touch updates the fetch timestamp for the location.
func (m *mirrorIndex) touch(location string) {
	entry, exists := m.Entries[location]
	if !exists {
		return
	}
	entry.FetchedAt = time.Now()
	m.Entries[location] = entry
}

// lastFetch returns the time the location's mirror was last fetched.
func (m *mirrorIndex) lastFetch(location string) (time.Time, bool) {
	entry, exists := m.Entries[location]
	if !exists {
		return time.Time{}, false
	}
	return entry.FetchedAt, true
}

// prune drops entries whose mirror directory no longer exists and returns
// the number removed.
func (m *mirrorIndex) prune() int {
	pruned := 0
	for location, entry := range m.Entries {
		if _, err := os.Stat(entry.Directory); err != nil {
			delete(m.Entries, location)
			pruned++
		}
	}
	return pruned
}

// save persists the index to disk.
func (m *mirrorIndex) save() error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	// #nosec G306 - the index holds no secrets and should be user readable
	return os.WriteFile(m.path, data, 0o644)
}

// size returns the number of tracked mirrors.
func (m *mirrorIndex) size() int {
	return len(m.Entries)
}
