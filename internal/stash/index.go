package stash

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"
)

const (
	// IndexVersion is the current version of the stash index format
	IndexVersion = "1.0"
	// IndexFilename is the name of the index file
	IndexFilename = "index.json"
)

// Index maintains the set of stashes in a stash directory.
type Index struct {
	Version string           `json:"version"`
	Updated time.Time        `json:"updated"`
	Stashes map[string]Stash `json:"stashes"`
}

// loadIndex loads the stash index, returning an empty one if none exists.
func (s *Store) loadIndex() (*Index, error) {
	data, err := s.store.Read(IndexFilename)
	if errors.Is(err, fs.ErrNotExist) {
		return &Index{
			Version: IndexVersion,
			Updated: time.Now(),
			Stashes: make(map[string]Stash),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stash index: %w", err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse stash index: %w", err)
	}
	if index.Stashes == nil {
		index.Stashes = make(map[string]Stash)
	}
	return &index, nil
}

// saveIndex persists the stash index.
func (s *Store) saveIndex(index *Index) error {
	index.Updated = time.Now()

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stash index: %w", err)
	}
	if err := s.store.Write(IndexFilename, data); err != nil {
		return fmt.Errorf("failed to write stash index: %w", err)
	}
	return nil
}

// List returns all stashes, newest first.
func (s *Store) List() ([]Stash, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	stashes := make([]Stash, 0, len(index.Stashes))
	for _, stash := range index.Stashes {
		stashes = append(stashes, stash)
	}
	sort.Slice(stashes, func(i, j int) bool {
		if !stashes[i].CreatedAt.Equal(stashes[j].CreatedAt) {
			return stashes[i].CreatedAt.After(stashes[j].CreatedAt)
		}
		return stashes[i].ID > stashes[j].ID
	})
	return stashes, nil
}

// Prune drops the oldest stashes until at most maxStashes remain and
// returns the IDs it dropped. A maxStashes of zero or less keeps everything.
func (s *Store) Prune(maxStashes int) ([]string, error) {
	if maxStashes <= 0 {
		return nil, nil
	}

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	if len(index.Stashes) <= maxStashes {
		return nil, nil
	}

	stashes := make([]Stash, 0, len(index.Stashes))
	for _, stash := range index.Stashes {
		stashes = append(stashes, stash)
	}
	sort.Slice(stashes, func(i, j int) bool {
		if !stashes[i].CreatedAt.Equal(stashes[j].CreatedAt) {
			return stashes[i].CreatedAt.After(stashes[j].CreatedAt)
		}
		return stashes[i].ID > stashes[j].ID
	})

	var dropped []string
	for _, stash := range stashes[maxStashes:] {
		s.removeSnapshotFiles(stash)
		delete(index.Stashes, stash.ID)
		dropped = append(dropped, stash.ID)
	}

	if err := s.saveIndex(index); err != nil {
		return dropped, err
	}
	return dropped, nil
}
