package svn

import (
	"fmt"
	"strconv"
)

// NodeKind represents whether a node is a file/directory. Deletes in a dump
// don't carry a kind, and a storage engine may hold things that are neither.
type NodeKind int

const (
	NodeKindNone NodeKind = iota
	NodeKindFile
	NodeKindDir
	NodeKindUnknown
)

var nodeKindNames = map[NodeKind]string{
	NodeKindNone:    "none",
	NodeKindFile:    "file",
	NodeKindDir:     "dir",
	NodeKindUnknown: "unknown",
}

var NodeKinds = map[string]NodeKind{
	"file": NodeKindFile,
	"dir":  NodeKindDir,
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

func GetNodeKind(kind string) (NodeKind, error) {
	if result, ok := NodeKinds[kind]; ok {
		return result, nil
	}
	return NodeKindNone, fmt.Errorf("%w: %s", ErrUnknownNodeKind, kind)
}

// Revnum is a repository revision number.
type Revnum int64

// InvalidRevnum stands in for "no revision", e.g. "latest" in a request or
// "no copy source" in an add.
const InvalidRevnum Revnum = -1

func (r Revnum) Valid() bool {
	return r >= 0
}

func (r Revnum) String() string {
	return strconv.FormatInt(int64(r), 10)
}

// ParseRevnum converts the text form of a revision number. An empty string
// is InvalidRevnum.
func ParseRevnum(s string) (Revnum, error) {
	if s == "" {
		return InvalidRevnum, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return InvalidRevnum, fmt.Errorf("invalid revision number %q: %w", s, err)
	}
	return Revnum(n), nil
}
