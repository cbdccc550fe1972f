// Package stash snapshots working tree files before a sync mutates them.
//
// A stash captures the pre-sync content of every file a run is about to
// write or remove. Files the sync would create are recorded as missing, so
// restoring a stash deletes them again. Snapshots live under the project's
// .agentsync/stash directory next to a JSON index.
package stash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/flanny7/agent-template/internal/workspace"
)

// FileInfo describes one file inside a stash.
type FileInfo struct {
	// Hash is the SHA256 hex digest of the snapshotted content
	Hash string `json:"hash,omitempty"`
	// Size is the snapshotted content length in bytes
	Size int64 `json:"size,omitempty"`
	// Missing marks a path that did not exist before the sync
	Missing bool `json:"missing,omitempty"`
}

// Stash describes a single pre-sync snapshot.
type Stash struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	// Revision is the template revision the guarded sync targeted
	Revision string              `json:"revision,omitempty"`
	Files    map[string]FileInfo `json:"files"`
}

// Store creates and restores stashes for one project.
type Store struct {
	project *workspace.Dir
	store   *workspace.Dir
}

// New returns a stash store snapshotting from the project working tree into
// the stash directory.
func New(project, store *workspace.Dir) *Store {
	return &Store{project: project, store: store}
}

// Create snapshots the given project-relative paths and returns the new
// stash. Paths that do not exist are recorded as missing. Returns nil when
// there is nothing to snapshot.
func (s *Store) Create(paths []string, revision string) (*Stash, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	now := time.Now()
	files := make(map[string]FileInfo, len(paths))
	contents := make(map[string][]byte, len(paths))
	digest := sha256.New()

	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	for _, path := range sorted {
		data, err := s.project.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			files[path] = FileInfo{Missing: true}
			digest.Write([]byte(path))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		sum := sha256.Sum256(data)
		files[path] = FileInfo{
			Hash: hex.EncodeToString(sum[:]),
			Size: int64(len(data)),
		}
		contents[path] = data
		digest.Write([]byte(path))
		digest.Write(sum[:])
	}

	id := now.Format("20060102-150405-") + hex.EncodeToString(digest.Sum(nil))[:8]

	for path, data := range contents {
		if err := s.store.Write(filepath.Join(id, path), data); err != nil {
			return nil, fmt.Errorf("failed to write snapshot for %s: %w", path, err)
		}
	}

	stash := Stash{ID: id, CreatedAt: now, Revision: revision, Files: files}

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	index.Stashes[id] = stash
	if err := s.saveIndex(index); err != nil {
		return nil, err
	}

	return &stash, nil
}

// Restore puts every file of the stash back into the working tree. Paths
// recorded as missing are removed again. Snapshot content is verified
// against its hash before anything is written.
func (s *Store) Restore(id string) error {
	index, err := s.loadIndex()
	if err != nil {
		return err
	}

	stash, exists := index.Stashes[id]
	if !exists {
		return fmt.Errorf("stash %q not found", id)
	}

	for path, info := range stash.Files {
		if info.Missing {
			if err := s.project.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to remove %s: %w", path, err)
			}
			continue
		}

		data, err := s.store.Read(filepath.Join(id, path))
		if err != nil {
			return fmt.Errorf("failed to read snapshot for %s: %w", path, err)
		}

		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != info.Hash {
			return fmt.Errorf("stash %q corrupted: hash mismatch for %s", id, path)
		}

		if err := s.project.Write(path, data); err != nil {
			return fmt.Errorf("failed to restore %s: %w", path, err)
		}
	}

	return nil
}

// Drop deletes a stash and its snapshot files.
func (s *Store) Drop(id string) error {
	index, err := s.loadIndex()
	if err != nil {
		return err
	}

	stash, exists := index.Stashes[id]
	if !exists {
		return fmt.Errorf("stash %q not found", id)
	}

	s.removeSnapshotFiles(stash)
	delete(index.Stashes, id)
	return s.saveIndex(index)
}

// removeSnapshotFiles deletes the stored snapshot files of a stash.
// Already-gone files are tolerated.
func (s *Store) removeSnapshotFiles(stash Stash) {
	for path, info := range stash.Files {
		if info.Missing {
			continue
		}
		_ = s.store.Remove(filepath.Join(stash.ID, path))
	}
}
