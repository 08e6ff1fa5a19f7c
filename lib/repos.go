package svn

import (
	"bytes"
	"fmt"
	"io"
)

// Repos represents the loaded model of a Subversion repository: the dumps it
// was read from and a snapshot of the tree at every revision.
//
// Snapshots share unchanged subtrees; a revision only copies the nodes on the
// paths it touched. Content is not copied out of the dumps, so the model is
// only usable until Close.
type Repos struct {
	DumpFormat int    // Dump format version - must be consistent across files.
	UUID       string // UUID of the repository - must be consistent across files.

	Revisions []*Revision // List of revisions in the repository.

	DumpFiles []*DumpFile // A list of all the dump files we loaded.

	roots []*fsNode // Tree snapshot per revision.
}

// fsNode is one node of a snapshot. Nodes are immutable once their revision
// has been replayed.
type fsNode struct {
	kind       NodeKind
	props      Properties
	text       []byte
	createdRev Revnum
	children   map[string]*fsNode
}

func newDirNode(rev Revnum) *fsNode {
	return &fsNode{kind: NodeKindDir, props: NewProperties(), createdRev: rev, children: map[string]*fsNode{}}
}

// clone makes a shallow copy stamped with rev. Children are shared.
func (n *fsNode) clone(rev Revnum) *fsNode {
	c := &fsNode{kind: n.kind, props: n.props.Clone(), text: n.text, createdRev: rev}
	if c.props == nil {
		c.props = NewProperties()
	}
	if n.children != nil {
		c.children = make(map[string]*fsNode, len(n.children))
		for name, child := range n.children {
			c.children[name] = child
		}
	}
	return c
}

func NewRepos() *Repos {
	return &Repos{
		Revisions: make([]*Revision, 0),
		DumpFiles: make([]*DumpFile, 0),
	}
}

// Youngest returns the newest revision loaded, or InvalidRevnum if there are
// none yet.
func (r *Repos) Youngest() Revnum {
	// If there are 2 entries, then head is r1. If there is just 1 entry,
	// then head is r0. But if there are no entries, then head is -1.
	return Revnum(len(r.Revisions) - 1)
}

func (r *Repos) Close() error {
	for _, df := range r.DumpFiles {
		if err := df.Close(); err != nil {
			return err
		}
	}
	r.DumpFiles = nil
	r.roots = nil
	return nil
}

// LoadDumpFile maps a dump file and replays its revisions on top of what is
// already loaded. Dumps must be loaded in revision order.
func (r *Repos) LoadDumpFile(filename string) error {
	dumpfile, err := NewDumpFile(filename)
	if err != nil {
		return err
	}
	if err := r.AddDump(dumpfile); err != nil {
		_ = dumpfile.Close()
		return err
	}
	return nil
}

// AddDump replays every revision of an opened dump. On success the repos
// takes ownership of the dump.
func (r *Repos) AddDump(dumpfile *DumpFile) error {
	header := dumpfile.DumpHeader
	if len(r.DumpFiles) == 0 {
		r.DumpFormat, r.UUID = header.Format, header.ReposUUID
	} else {
		if header.Format != r.DumpFormat {
			return fmt.Errorf("%s: %w: format %d, expected %d", dumpfile.Path, ErrDumpHeaderMismatch, header.Format, r.DumpFormat)
		}
		if header.ReposUUID != "" && r.UUID != "" && header.ReposUUID != r.UUID {
			return fmt.Errorf("%s: %w: uuid %s, expected %s", dumpfile.Path, ErrDumpHeaderMismatch, header.ReposUUID, r.UUID)
		}
	}

	// Replay as we go so a bad revision is reported before the rest of the
	// dump is parsed.
	applied := 0
	for {
		rev, err := dumpfile.NextRevision()
		if err != nil {
			if err == io.EOF {
				break
			}
			r.rollback(applied)
			return err
		}

		// SVN dump format doesn't provide a revision count, so we're just expecting
		// to hit EOF at some point.
		if expect := Revnum(len(r.Revisions)); rev.Number != expect {
			r.rollback(applied)
			return fmt.Errorf("%s: %w: out-of-sequence revision: expected %d, got %d", dumpfile.Path, ErrDumpHeaderMismatch, expect, rev.Number)
		}
		if err := r.replay(rev); err != nil {
			r.rollback(applied)
			return fmt.Errorf("%s: r%d: %w", dumpfile.Path, rev.Number, err)
		}
		applied++
	}

	// The dumpfile is now a keeper.
	r.DumpFiles = append(r.DumpFiles, dumpfile)

	return nil
}

func (r *Repos) rollback(count int) {
	r.Revisions = r.Revisions[:len(r.Revisions)-count]
	r.roots = r.roots[:len(r.roots)-count]
}

// RevisionRoot returns the snapshot of the tree at rev.
func (r *Repos) RevisionRoot(rev Revnum) (Root, error) {
	if rev < 0 || int(rev) >= len(r.roots) {
		return nil, fmt.Errorf("%w: r%d (youngest is r%d)", ErrNoSuchRevision, rev, r.Youngest())
	}
	return &revisionRoot{repos: r, rev: rev, node: r.roots[rev]}, nil
}

// txn replays one revision's node records onto a copy of the previous tree.
// Nodes stamped with the txn's revision were created by it and may be
// modified in place; anything older is cloned first.
type txn struct {
	repos *Repos
	rev   Revnum
	root  *fsNode
}

func (r *Repos) replay(rev *Revision) error {
	t := &txn{repos: r, rev: rev.Number}
	if len(r.roots) == 0 {
		t.root = newDirNode(rev.Number)
	} else {
		t.root = r.roots[len(r.roots)-1]
	}

	for _, node := range rev.Nodes {
		if err := t.apply(node); err != nil {
			return fmt.Errorf("%s: %w", node.label(), err)
		}
	}

	r.Revisions = append(r.Revisions, rev)
	r.roots = append(r.roots, t.root)
	return nil
}

func (t *txn) own(n *fsNode) *fsNode {
	if n.createdRev == t.rev {
		return n
	}
	return n.clone(t.rev)
}

// mutableDir returns a modifiable copy of the directory at path, cloning it
// and every ancestor into the txn.
func (t *txn) mutableDir(path string) (*fsNode, error) {
	t.root = t.own(t.root)
	dir := t.root
	walked := ""
	for _, name := range splitPath(path) {
		walked = JoinPath(walked, name)
		child, ok := dir.children[name]
		if !ok {
			return nil, fmt.Errorf("%w: /%s", ErrPathNotFound, walked)
		}
		if child.kind != NodeKindDir {
			return nil, fmt.Errorf("%w: /%s", ErrNotDirectory, walked)
		}
		child = t.own(child)
		dir.children[name] = child
		dir = child
	}
	return dir, nil
}

func (t *txn) apply(node *Node) error {
	if node.Path == "" {
		// Only property changes can target the root.
		if node.Action != NodeActionChange {
			return fmt.Errorf("%w: cannot %s the root", ErrPathExists, node.Action)
		}
		t.root = t.own(t.root)
		return t.setContent(t.root, node)
	}

	parent, err := t.mutableDir(Dirname(node.Path))
	if err != nil {
		return err
	}
	name := Basename(node.Path)

	switch node.Action {
	case NodeActionDelete:
		if _, ok := parent.children[name]; !ok {
			return fmt.Errorf("%w: /%s", ErrPathNotFound, node.Path)
		}
		delete(parent.children, name)
		return nil

	case NodeActionChange:
		existing, ok := parent.children[name]
		if !ok {
			return fmt.Errorf("%w: /%s", ErrPathNotFound, node.Path)
		}
		existing = t.own(existing)
		parent.children[name] = existing
		return t.setContent(existing, node)

	case NodeActionReplace:
		if _, ok := parent.children[name]; !ok {
			return fmt.Errorf("%w: /%s", ErrPathNotFound, node.Path)
		}
		delete(parent.children, name)
		return t.add(parent, name, node)

	case NodeActionAdd:
		if _, ok := parent.children[name]; ok {
			return fmt.Errorf("%w: /%s", ErrPathExists, node.Path)
		}
		return t.add(parent, name, node)
	}

	return fmt.Errorf("%w: %d", ErrUnknownNodeAction, node.Action)
}

func (t *txn) add(parent *fsNode, name string, node *Node) error {
	var added *fsNode
	if fromRev, fromPath, branched := node.Branched(); branched {
		source, err := t.repos.lookup(fromRev, fromPath)
		if err != nil {
			return fmt.Errorf("copy source: %w", err)
		}
		if source.kind != node.Kind {
			return fmt.Errorf("copy source /%s@%d is a %s", fromPath, fromRev, source.kind)
		}
		added = source.clone(t.rev)
	} else if node.Kind == NodeKindDir {
		added = newDirNode(t.rev)
	} else {
		added = &fsNode{kind: node.Kind, props: NewProperties(), text: []byte{}, createdRev: t.rev}
	}
	parent.children[name] = added
	return t.setContent(added, node)
}

// setContent applies a record's property block and text to a node owned by
// the txn.
func (t *txn) setContent(n *fsNode, node *Node) error {
	if node.Properties != nil {
		if node.PropDelta {
			for key, value := range node.Properties {
				n.props[key] = value
			}
			for _, key := range node.DeletedProps {
				delete(n.props, key)
			}
		} else {
			n.props = node.Properties.Clone()
		}
	}

	if !node.HasText() {
		return nil
	}
	if n.kind != NodeKindFile {
		return fmt.Errorf("%w: text on a %s", ErrNotFile, n.kind)
	}
	if !node.TextDelta {
		n.text = node.Text
		return nil
	}

	var out bytes.Buffer
	decoder := NewDecoder(ApplyHandler(bytes.NewReader(n.text), &out, nil))
	if _, err := decoder.Write(node.Text); err != nil {
		return fmt.Errorf("text delta: %w", err)
	}
	if err := decoder.Close(); err != nil {
		return fmt.Errorf("text delta: %w", err)
	}
	n.text = out.Bytes()
	return nil
}

// lookup finds the node at path in a replayed revision.
func (r *Repos) lookup(rev Revnum, path string) (*fsNode, error) {
	if rev < 0 || int(rev) >= len(r.roots) {
		return nil, fmt.Errorf("%w: r%d", ErrNoSuchRevision, rev)
	}
	node := r.roots[rev].find(path)
	if node == nil {
		return nil, fmt.Errorf("%w: /%s@%d", ErrPathNotFound, path, rev)
	}
	return node, nil
}

// find walks down from n, returning nil if any component is missing.
func (n *fsNode) find(path string) *fsNode {
	for _, name := range splitPath(path) {
		if n.kind != NodeKindDir {
			return nil
		}
		child, ok := n.children[name]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}

func splitPath(path string) []string {
	path = CleanPath(path)
	if path == "" {
		return nil
	}
	parts := make([]string, 0, 8)
	for _, part := range bytes.Split([]byte(path), []byte("/")) {
		if len(part) > 0 {
			parts = append(parts, string(part))
		}
	}
	return parts
}
