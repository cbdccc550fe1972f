package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/flanny7/agent-template/internal/logging"
)

// Detector decides whether a working-tree file has diverged from the content
// it had at the baseline revision. Comparison is by content, never by
// timestamps, so touching a file without changing it does not count.
type Detector struct {
	store Store
	ws    Workspace
	base  string
}

// NewDetector creates a detector against the given baseline revision. An
// empty baseline means no sync has happened yet.
func NewDetector(store Store, ws Workspace, baseRevision string) *Detector {
	return &Detector{store: store, ws: ws, base: baseRevision}
}

// Modified reports whether the working-tree version of path differs from its
// baseline content. Without a baseline revision any existing file counts as
// modified, so pre-existing content is protected on a first sync. A file
// missing on either side while present on the other also counts.
func (d *Detector) Modified(ctx context.Context, path string) (bool, error) {
	if d.base == "" {
		exists := d.ws.Exists(path)
		logging.Debug("no baseline revision, falling back to existence check",
			logging.Path(path),
			"exists", exists,
		)
		return exists, nil
	}

	baseline, err := d.store.Blob(ctx, d.base, path)
	if err != nil && !errors.Is(err, ErrBlobNotFound) {
		return false, fmt.Errorf("failed to read baseline content: %w", err)
	}
	baselineExists := err == nil

	local, err := d.ws.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Locally deleted counts as modified when the baseline had it.
			return baselineExists, nil
		}
		return false, fmt.Errorf("failed to read local content: %w", err)
	}

	if !baselineExists {
		return true, nil
	}

	modified := !bytes.Equal(local, baseline)
	logging.Debug("compared against baseline",
		logging.Path(path),
		logging.Revision(d.base),
		"modified", modified,
	)
	return modified, nil
}
