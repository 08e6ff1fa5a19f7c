package svn

import (
	"io"
	"strings"
)

// Dirent is one entry of a directory listing.
type Dirent struct {
	Name string
	Kind NodeKind
}

// CommitInfo is the last change made to a path: the revision it was
// committed in and that revision's date and author.
type CommitInfo struct {
	Rev    Revnum
	Date   string
	Author string
}

// Root is a read-only snapshot of a versioned tree at one revision. Paths
// are relative to the repository root, without leading slash; "" is the
// root itself.
type Root interface {
	// Revision is the revision the snapshot represents.
	Revision() Revnum
	// NodeKind reports NodeKindNone for a path that does not exist.
	NodeKind(path string) (NodeKind, error)
	DirEntries(path string) ([]Dirent, error)
	FileContents(path string) (io.ReadCloser, error)
	NodeProperties(path string) (Properties, error)
	CommittedInfo(path string) (CommitInfo, error)
}

// FS opens revision snapshots.
type FS interface {
	Youngest() Revnum
	RevisionRoot(rev Revnum) (Root, error)
}

// CleanPath normalizes a repository path to the form Root expects.
func CleanPath(path string) string {
	path = strings.Trim(path, "/")
	if path == "." {
		return ""
	}
	return path
}

// IsSingleSegment reports whether name can be one component of a path:
// not empty, not "." or "..", and free of separators.
func IsSingleSegment(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// JoinPath appends a single component to a repository path.
func JoinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	if name == "" {
		return dir
	}
	return dir + "/" + name
}

// JoinURL appends a single component to a URL.
func JoinURL(url, name string) string {
	if url == "" {
		return name
	}
	return strings.TrimRight(url, "/") + "/" + name
}

// Basename returns the last component of a path or URL.
func Basename(path string) string {
	path = strings.TrimRight(path, "/")
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// Dirname returns everything before the last component of a path.
func Dirname(path string) string {
	path = strings.TrimRight(path, "/")
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[:idx]
	}
	return ""
}
