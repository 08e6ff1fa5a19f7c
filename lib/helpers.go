package svn

// Small helper functions.

import (
	"strings"
)

// ReplacePathPrefix swaps a leading run of path components. "Model" does not
// match "Models/x"; a prefix only matches whole components.
func ReplacePathPrefix(path string, prefix, replacement string) string {
	// Remove trailing slashes from the right side.
	trimmedPrefix := strings.TrimRight(prefix, "/")

	if strings.HasPrefix(path, trimmedPrefix) {
		if len(path) == len(trimmedPrefix) || path[len(trimmedPrefix)] == '/' {
			return strings.TrimRight(replacement, "/") + path[len(trimmedPrefix):]
		}
	}

	return path
}

// MatchPathPrefix returns true if the given path begins with the same path *components* as prefix.
// If path is "foo/bar" and prefix is "foo", then this function returns true.
// If path is "foo/bar" and prefix is "foo/bar", then this function returns true.
// If path is "foo/barn" and prefix is "foo/bar", then this function returns false.
// An empty prefix matches everything.
func MatchPathPrefix(path, prefix string) bool {
	path = strings.Trim(path, "/")
	prefix = strings.Trim(prefix, "/")

	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	return path[len(prefix)] == '/'
}
