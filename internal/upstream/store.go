// Package upstream maintains cached mirrors of template repositories and
// serves change sets and file content from them.
//
// A Store wraps a bare mirror clone kept under the user cache directory, so
// repeated syncs against the same template reuse the clone and only pay for
// an incremental fetch. The working tree of the project is never touched
// from here; all reads go through git objects.
package upstream

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/flanny7/agent-template/internal/logging"
	"github.com/flanny7/agent-template/internal/sync"
	"github.com/flanny7/agent-template/internal/util"
)

const defaultRemote = "origin"

// Store serves template content from a bare mirror clone.
// A Store is not safe for concurrent use.
type Store struct {
	location string
	dir      string
	repo     *git.Repository
	index    *mirrorIndex
	trees    map[string]*object.Tree
}

// Open opens the mirror for the given template location, cloning it first if
// it does not exist yet. The location can be any URL go-git accepts as a
// remote, including local paths. An empty cacheDir selects the default user
// cache directory.
func Open(ctx context.Context, location, cacheDir string) (*Store, error) {
	if location == "" {
		return nil, WrapError(ErrInvalidLocation, "template location cannot be empty")
	}
	if cacheDir == "" {
		cacheDir = util.MirrorCachePath()
	}

	index, err := loadMirrorIndex(cacheDir)
	if err != nil {
		return nil, err
	}
	if pruned := index.prune(); pruned > 0 {
		logging.Debug("pruned stale mirror entries", logging.Count(pruned))
		if err := index.save(); err != nil {
			logging.Warn("failed to save mirror index", logging.Err(err))
		}
	}

	dir := filepath.Join(cacheDir, mirrorName(location))
	repo, err := git.PlainOpen(dir)
	switch {
	case err == nil:
		if _, tracked := index.lastFetch(location); !tracked {
			index.record(location, dir)
			if err := index.save(); err != nil {
				logging.Warn("failed to save mirror index", logging.Err(err))
			}
		}
	case errors.Is(err, git.ErrRepositoryNotExists):
		logging.Info("cloning template mirror", logging.Location(location))
		repo, err = git.PlainCloneContext(ctx, dir, true, &git.CloneOptions{
			URL:    location,
			Mirror: true,
		})
		if err != nil {
			return nil, WrapErrorf(err, "failed to clone template %s", location)
		}
		index.record(location, dir)
		if err := index.save(); err != nil {
			logging.Warn("failed to save mirror index", logging.Err(err))
		}
	default:
		return nil, WrapErrorf(err, "failed to open mirror for %s", location)
	}

	return &Store{
		location: location,
		dir:      dir,
		repo:     repo,
		index:    index,
		trees:    make(map[string]*object.Tree),
	}, nil
}

// Location returns the template location the store serves.
func (s *Store) Location() string {
	return s.location
}

// Dir returns the mirror directory on disk.
func (s *Store) Dir() string {
	return s.dir
}

// LastFetched returns the time the mirror was last brought up to date, or
// the zero time if unknown.
func (s *Store) LastFetched() time.Time {
	t, _ := s.index.lastFetch(s.location)
	return t
}

// Fetch brings the mirror up to date with the template repository.
// Returns ErrAlreadyUpToDate if there was nothing new to fetch.
func (s *Store) Fetch(ctx context.Context) error {
	defer logging.Timer("fetch")()

	err := s.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: defaultRemote,
		Force:      true,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		s.index.touch(s.location)
		if err := s.index.save(); err != nil {
			logging.Warn("failed to save mirror index", logging.Err(err))
		}
		return ErrAlreadyUpToDate
	}
	if err != nil {
		return WrapErrorf(err, "failed to fetch template %s", s.location)
	}

	// Refs moved, cached trees may be stale.
	s.trees = make(map[string]*object.Tree)
	s.index.touch(s.location)
	if err := s.index.save(); err != nil {
		logging.Warn("failed to save mirror index", logging.Err(err))
	}
	logging.Debug("fetched template updates", logging.Location(s.location))
	return nil
}

// Resolve resolves a revision specifier (branch, tag, or hash) to a full
// commit hash.
func (s *Store) Resolve(rev string) (string, error) {
	hash, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", WrapErrorf(ErrResolveFailed, "revision %q", rev)
	}
	return hash.String(), nil
}

// Changes lists the files that differ between two template revisions. An
// empty base compares against the empty tree, so every file at target is
// reported as added.
func (s *Store) Changes(ctx context.Context, base, target string) ([]sync.Change, error) {
	var fromTree *object.Tree
	if base != "" {
		tree, err := s.treeAt(base)
		if err != nil {
			return nil, err
		}
		fromTree = tree
	}

	toTree, err := s.treeAt(target)
	if err != nil {
		return nil, err
	}

	diff, err := object.DiffTreeWithOptions(ctx, fromTree, toTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, WrapError(err, "failed to diff template revisions")
	}

	changes := make([]sync.Change, 0, len(diff))
	for _, change := range diff {
		action, err := change.Action()
		if err != nil {
			return nil, WrapError(err, "failed to classify change")
		}
		switch action {
		case merkletrie.Insert:
			changes = append(changes, sync.Change{Path: change.To.Name, Status: sync.StatusAdded})
		case merkletrie.Delete:
			changes = append(changes, sync.Change{Path: change.From.Name, Status: sync.StatusDeleted})
		case merkletrie.Modify:
			changes = append(changes, sync.Change{Path: change.To.Name, Status: sync.StatusModified})
		}
	}

	logging.Debug("computed template change set",
		logging.Revision(target),
		logging.Count(len(changes)),
	)
	return changes, nil
}

// Blob returns the content of a file at a template revision. A path that
// does not exist at the revision reports sync.ErrBlobNotFound.
func (s *Store) Blob(ctx context.Context, revision, path string) ([]byte, error) {
	tree, err := s.treeAt(revision)
	if err != nil {
		return nil, err
	}

	file, err := tree.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", sync.ErrBlobNotFound, path, revision)
		}
		return nil, WrapErrorf(err, "failed to read %s at %s", path, revision)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, WrapErrorf(err, "failed to read %s at %s", path, revision)
	}
	return []byte(content), nil
}

// treeAt returns the root tree of the commit a revision resolves to,
// memoizing per revision for the life of the store.
func (s *Store) treeAt(rev string) (*object.Tree, error) {
	if tree, ok := s.trees[rev]; ok {
		return tree, nil
	}

	hash, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, WrapErrorf(ErrResolveFailed, "revision %q", rev)
	}

	commit, err := s.repo.CommitObject(*hash)
	if err != nil {
		return nil, WrapErrorf(err, "failed to load commit %s", hash)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, WrapErrorf(err, "failed to load tree for %s", hash)
	}

	s.trees[rev] = tree
	return tree, nil
}

// mirrorName derives a stable directory name for a template location. The
// readable prefix keeps cache directories identifiable; the hash suffix
// keeps distinct locations from colliding.
func mirrorName(location string) string {
	sum := sha256.Sum256([]byte(location))

	base := strings.TrimRight(location, "/\\")
	base = strings.TrimSuffix(base, ".git")
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		}
		return '-'
	}, base)
	if base == "" {
		base = "template"
	}

	return fmt.Sprintf("%s-%x", base, sum[:6])
}
