// Package workspace provides access to the project working tree.
//
// The sync engine reads and writes project files through the Dir type, which
// wraps a billy filesystem. Production code roots a Dir at the project
// directory on the OS filesystem; tests use an in-memory filesystem so they
// never touch disk.
package workspace

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const (
	dirPerm  = 0o750
	filePerm = 0o644
)

// Dir is a working tree rooted at a project directory. All paths are
// interpreted relative to the root.
type Dir struct {
	fs billy.Filesystem
}

// New returns a working tree rooted at the given OS directory.
func New(root string) *Dir {
	return &Dir{fs: osfs.New(root)}
}

// NewInMemory returns an empty in-memory working tree.
func NewInMemory() *Dir {
	return &Dir{fs: memfs.New()}
}

// NewFromBilly wraps an existing billy filesystem.
func NewFromBilly(fsys billy.Filesystem) *Dir {
	return &Dir{fs: fsys}
}

// Root returns the root path of the working tree.
func (d *Dir) Root() string {
	return d.fs.Root()
}

// Read returns the content of the file at path. A missing file reports an
// error satisfying errors.Is(err, fs.ErrNotExist).
func (d *Dir) Read(path string) ([]byte, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", fs.ErrNotExist, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Write stores data at path, creating parent directories as needed.
func (d *Dir) Write(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := d.fs.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(d.fs, path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Remove deletes the file at path and prunes any parent directories the
// removal leaves empty.
func (d *Dir) Remove(path string) error {
	if err := d.fs.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", fs.ErrNotExist, path)
		}
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	for dir := filepath.Dir(path); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if err := d.fs.Remove(dir); err != nil {
			break
		}
	}
	return nil
}

// Exists reports whether a file or directory exists at path.
func (d *Dir) Exists(path string) bool {
	_, err := d.fs.Stat(path)
	return err == nil
}
