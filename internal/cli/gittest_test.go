package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// templateRepo drives a local template repository for command tests.
type templateRepo struct {
	dir  string
	repo *git.Repository
}

func newTemplateRepo(t *testing.T) *templateRepo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init template repo: %v", err)
	}
	return &templateRepo{dir: dir, repo: repo}
}

// commit writes the given files, stages removals, and commits. It returns
// the commit hash.
func (tr *templateRepo) commit(t *testing.T, msg string, files map[string]string, remove ...string) string {
	t.Helper()

	wt, err := tr.repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	for path, content := range files {
		full := filepath.Join(tr.dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			t.Fatalf("failed to create directory for %s: %v", path, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
		if _, err := wt.Add(path); err != nil {
			t.Fatalf("failed to add %s: %v", path, err)
		}
	}
	for _, path := range remove {
		if _, err := wt.Remove(path); err != nil {
			t.Fatalf("failed to remove %s: %v", path, err)
		}
	}

	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Template Maintainer",
			Email: "maintainer@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash.String()
}
