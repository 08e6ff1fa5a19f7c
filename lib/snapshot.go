package svn

import (
	"bytes"
	"fmt"
	"io"
	"sort"
)

// revisionRoot is the Root of one replayed revision.
type revisionRoot struct {
	repos *Repos
	rev   Revnum
	node  *fsNode
}

func (r *revisionRoot) Revision() Revnum {
	return r.rev
}

func (r *revisionRoot) get(path string) (*fsNode, error) {
	if node := r.node.find(path); node != nil {
		return node, nil
	}
	return nil, fmt.Errorf("%w: /%s@%d", ErrPathNotFound, CleanPath(path), r.rev)
}

func (r *revisionRoot) NodeKind(path string) (NodeKind, error) {
	if node := r.node.find(path); node != nil {
		return node.kind, nil
	}
	return NodeKindNone, nil
}

// DirEntries lists a directory sorted by name.
func (r *revisionRoot) DirEntries(path string) ([]Dirent, error) {
	node, err := r.get(path)
	if err != nil {
		return nil, err
	}
	if node.kind != NodeKindDir {
		return nil, fmt.Errorf("%w: /%s@%d", ErrNotDirectory, CleanPath(path), r.rev)
	}

	entries := make([]Dirent, 0, len(node.children))
	for name, child := range node.children {
		entries = append(entries, Dirent{Name: name, Kind: child.kind})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (r *revisionRoot) FileContents(path string) (io.ReadCloser, error) {
	node, err := r.get(path)
	if err != nil {
		return nil, err
	}
	if node.kind != NodeKindFile {
		return nil, fmt.Errorf("%w: /%s@%d", ErrNotFile, CleanPath(path), r.rev)
	}
	return io.NopCloser(bytes.NewReader(node.text)), nil
}

// NodeProperties returns a copy of the node's user properties.
func (r *revisionRoot) NodeProperties(path string) (Properties, error) {
	node, err := r.get(path)
	if err != nil {
		return nil, err
	}
	props := node.props.Clone()
	if props == nil {
		props = NewProperties()
	}
	return props, nil
}

// CommittedInfo reports the revision that last changed the node, or anything
// below it for a directory.
func (r *revisionRoot) CommittedInfo(path string) (CommitInfo, error) {
	node, err := r.get(path)
	if err != nil {
		return CommitInfo{}, err
	}
	if node.createdRev < 0 || int(node.createdRev) >= len(r.repos.Revisions) {
		return CommitInfo{}, fmt.Errorf("%w: r%d", ErrNoSuchRevision, node.createdRev)
	}
	rev := r.repos.Revisions[node.createdRev]
	return CommitInfo{Rev: rev.Number, Date: rev.Date(), Author: rev.Author()}, nil
}
