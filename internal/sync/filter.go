package sync

import (
	"path/filepath"
	"strings"
)

// Filter narrows a change set to the configured scope. A change is retained
// only when its path matches at least one include pattern and no exclude
// pattern. Excludes win on overlap, and an empty include list retains
// nothing. Output preserves input order.
func Filter(changes []Change, include, exclude []string) []Change {
	if len(include) == 0 {
		return nil
	}

	var kept []Change
	for _, change := range changes {
		if MatchAny(change.Path, include) && !MatchAny(change.Path, exclude) {
			kept = append(kept, change)
		}
	}
	return kept
}

// MatchAny reports whether the path matches any of the given glob patterns.
func MatchAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchPattern(path, pattern) {
			return true
		}
	}
	return false
}

// matchPattern checks one path against one glob pattern. Patterns are
// slash-separated. Beyond the filepath.Match syntax, a trailing slash
// matches the directory's whole subtree and ** crosses directory
// boundaries. Invalid patterns match nothing.
func matchPattern(path, pattern string) bool {
	path = filepath.ToSlash(path)

	if strings.HasSuffix(pattern, "/") {
		pattern = strings.TrimSuffix(pattern, "/")
		return path == pattern || strings.HasPrefix(path, pattern+"/")
	}

	if strings.Contains(pattern, "**") {
		return matchRecursive(path, pattern)
	}

	match, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	return match
}

// matchRecursive handles patterns containing the ** wildcard. The pattern is
// split at the first **; the literal prefix must anchor the path and the
// remaining glob may match at any directory depth, including zero.
func matchRecursive(path, pattern string) bool {
	parts := strings.SplitN(pattern, "**", 2)
	prefix, suffix := parts[0], parts[1]

	if prefix != "" {
		if !strings.HasPrefix(path, prefix) {
			return false
		}
		path = strings.TrimPrefix(path, prefix)
	}

	if suffix == "" {
		return true
	}

	suffix = strings.TrimPrefix(suffix, "/")
	for rest := path; ; {
		if ok, _ := filepath.Match(suffix, rest); ok {
			return true
		}
		idx := strings.IndexByte(rest, '/')
		if idx < 0 {
			return false
		}
		rest = rest[idx+1:]
	}
}
