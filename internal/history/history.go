// Package history records sync runs in a project-local journal.
//
// The journal is a bbolt database under the project's .agentsync directory.
// Every run appends one entry carrying the revision window, the tally, and
// the per-file outcomes, so past syncs stay inspectable after the working
// tree has moved on.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/flanny7/agent-template/internal/sync"
)

// runsBucket holds one entry per sync run, keyed by zero-padded sequence.
const runsBucket = "runs"

// ErrNotFound is returned when a requested journal entry does not exist.
var ErrNotFound = errors.New("journal entry not found")

// Entry records a single sync run.
type Entry struct {
	Sequence  uint64       `json:"sequence"`
	StartedAt time.Time    `json:"started_at"`
	From      string       `json:"from"`
	To        string       `json:"to"`
	DryRun    bool         `json:"dry_run"`
	Forced    bool         `json:"forced"`
	Synced    int          `json:"synced"`
	Skipped   int          `json:"skipped"`
	Conflicts int          `json:"conflicts"`
	Errors    int          `json:"errors"`
	Files     []FileRecord `json:"files,omitempty"`
}

// FileRecord captures the outcome of one file within a run.
type FileRecord struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Action string `json:"action"`
	Detail string `json:"detail,omitempty"`
}

// NewEntry builds a journal entry from a sync result.
func NewEntry(result *sync.Result, startedAt time.Time) Entry {
	tally := result.Tally()

	files := make([]FileRecord, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, FileRecord{
			Path:   f.Path,
			Status: string(f.Status),
			Action: string(f.Action),
			Detail: f.Detail,
		})
	}

	return Entry{
		StartedAt: startedAt,
		From:      result.From,
		To:        result.To,
		DryRun:    result.DryRun,
		Forced:    result.Force,
		Synced:    tally.Synced,
		Skipped:   tally.Skipped,
		Conflicts: tally.Conflicts,
		Errors:    tally.Errors,
		Files:     files,
	}
}

// Journal is an append-only record of sync runs.
type Journal struct {
	db *bbolt.DB
}

// Open opens or creates the journal at the given path.
// The timeout keeps a second agentsync process from deadlocking on the
// database file lock.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal bucket: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append stores a new entry and returns its sequence number.
func (j *Journal) Append(entry Entry) (uint64, error) {
	var sequence uint64

	err := j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		entry.Sequence = seq

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}

		if err := b.Put(sequenceKey(seq), data); err != nil {
			return err
		}
		sequence = seq
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to append journal entry: %w", err)
	}
	return sequence, nil
}

// Get returns the entry with the given sequence number.
func (j *Journal) Get(sequence uint64) (Entry, error) {
	var entry Entry

	err := j.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data := b.Get(sequenceKey(sequence))
		if data == nil {
			return fmt.Errorf("%w: run %d", ErrNotFound, sequence)
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	var entries []Entry
	err := j.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()

		for k, v := c.Last(); k != nil && len(entries) < n; k, v = c.Prev() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to decode entry %s: %w", k, err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Len returns the number of recorded runs.
func (j *Journal) Len() (int, error) {
	var n int
	err := j.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(runsBucket)).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// sequenceKey renders a sequence number as a fixed-width key so byte order
// matches numeric order.
func sequenceKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%016d", seq))
}
