package util

import (
	"os"
	"path/filepath"
)

// HomeDir returns the user's home directory
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// CacheDir returns the agentsync user cache directory
func CacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "agentsync")
	}
	return filepath.Join(HomeDir(), ".cache", "agentsync")
}

// MirrorCachePath returns the directory holding template mirrors
func MirrorCachePath() string {
	return filepath.Join(CacheDir(), "mirrors")
}

// StateDir returns the project-local agentsync state directory
func StateDir(projectDir string) string {
	return filepath.Join(projectDir, ".agentsync")
}

// StashPath returns the stash directory for a project
func StashPath(projectDir string) string {
	return filepath.Join(StateDir(projectDir), "stash")
}

// HistoryPath returns the sync journal database path for a project
func HistoryPath(projectDir string) string {
	return filepath.Join(StateDir(projectDir), "history.db")
}
