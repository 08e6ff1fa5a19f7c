package wc

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"

	svn "github.com/kfsone/svndelta/lib"
)

// Action is what an edit did to a node, in the letters svn prints.
type Action string

const (
	ActionAdd    Action = "A"
	ActionUpdate Action = "U"
	ActionDelete Action = "D"
)

// Notification reports one node finished by an edit.
type Notification struct {
	Action Action
	Kind   svn.NodeKind
	Path   string
}

type propChange struct {
	name  string
	value *string
}

// node is what Dir and File share: pending property changes are held until
// the node is closed, so lookups made mid-edit see the old values.
type node struct {
	path    string
	url     string
	added   bool
	changes []propChange
}

// Dir is the directory handle of an Editor.
type Dir struct {
	node
}

// File is the file handle of an Editor.
type File struct {
	node
	tmpPath string
	written bool

	// Open while a text delta is being applied.
	source *os.File
	tmp    *os.File
}

// closeStreams closes whatever the file's text delta still holds open.
func (f *File) closeStreams() error {
	if f.source != nil {
		f.source.Close()
		f.source = nil
	}
	if f.tmp == nil {
		return nil
	}
	err := f.tmp.Close()
	f.tmp = nil
	return err
}

// Editor applies an edit to a working copy. Metadata changes go through a
// single transaction committed by CloseEdit; file content is staged in the
// admin directory and moved into place as each file closes.
type Editor struct {
	wc        *WC
	tx        *sql.Tx
	targetRev svn.Revnum
	notify    func(Notification)
	staged    []string
	streaming []*File
}

// NewEditor returns an editor for the working copy. notify, if not nil, is
// told about every node the edit adds, changes or deletes.
func (wc *WC) NewEditor(notify func(Notification)) *Editor {
	return &Editor{wc: wc, targetRev: svn.InvalidRevnum, notify: notify}
}

// BaseURL is the delta-base lookup for a drive through this editor. Values
// changed by the edit are not visible until their node closes.
func (e *Editor) BaseURL(path string) (string, error) {
	if e.tx != nil {
		return baseURL(e.tx, svn.CleanPath(path))
	}
	return e.wc.BaseURL(path)
}

// childPath is the working-copy path of name in parent. name must be a
// single path segment, and the result somewhere Abs accepts.
func (e *Editor) childPath(parent *Dir, name string) (string, error) {
	if !svn.IsSingleSegment(name) {
		return "", fmt.Errorf("%w: entry name %q in /%s", ErrOutsideWC, name, parent.path)
	}
	path := svn.JoinPath(parent.path, name)
	if _, err := e.wc.Abs(path); err != nil {
		return "", err
	}
	return path, nil
}

func (e *Editor) tell(action Action, kind svn.NodeKind, path string) {
	if e.notify != nil {
		e.notify(Notification{Action: action, Kind: kind, Path: path})
	}
}

func (e *Editor) SetTargetRevision(rev svn.Revnum) error {
	e.targetRev = rev
	return nil
}

func (e *Editor) OpenRoot(baseRev svn.Revnum) (*Dir, error) {
	tx, err := e.wc.db.Begin()
	if err != nil {
		return nil, err
	}
	e.tx = tx

	root, err := getEntry(tx, "")
	if err != nil {
		return nil, err
	}
	glog.V(svn.LogLevelCalls).Infof("[wc]open root %s @%d\n", e.wc.Root, baseRev)
	return &Dir{node: node{url: root.URL}}, nil
}

// removeTree forgets path and everything below it.
func (e *Editor) removeTree(path string) error {
	prefix := path + "/"
	for _, table := range []string{"entries", "props", "wcprops"} {
		if _, err := e.tx.Exec(`DELETE FROM `+table+` WHERE path = ? OR substr(path, 1, ?) = ?`, path, len(prefix), prefix); err != nil {
			return err
		}
	}
	return nil
}

func (e *Editor) DeleteEntry(name string, rev svn.Revnum, parent *Dir) error {
	path, err := e.childPath(parent, name)
	if err != nil {
		return err
	}
	entry, err := getEntry(e.tx, path)
	if err != nil {
		return err
	}
	abs, err := e.wc.Abs(path)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(abs); err != nil {
		return err
	}
	if err := e.removeTree(path); err != nil {
		return err
	}
	e.tell(ActionDelete, entry.Kind, path)
	return nil
}

func (e *Editor) putEntry(path string, kind svn.NodeKind, url string) error {
	_, err := e.tx.Exec(`
		INSERT INTO entries (path, kind, revision, url) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET kind = excluded.kind, url = excluded.url, prop_mods = 0
	`, path, kind.String(), int64(e.targetRev), url)
	return err
}

func (e *Editor) AddDirectory(name string, parent *Dir, copyFromPath string, copyFromRev svn.Revnum) (*Dir, error) {
	path, err := e.childPath(parent, name)
	if err != nil {
		return nil, err
	}
	if copyFromRev.Valid() {
		return nil, fmt.Errorf("add directory %s: copy from %s@%d is not supported", path, copyFromPath, copyFromRev)
	}
	abs, err := e.wc.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	// An add replaces whatever was recorded before.
	if err := e.removeTree(path); err != nil {
		return nil, err
	}
	dir := &Dir{node: node{path: path, url: svn.JoinURL(parent.url, name), added: true}}
	if err := e.putEntry(path, svn.NodeKindDir, dir.url); err != nil {
		return nil, err
	}
	return dir, nil
}

func (e *Editor) OpenDirectory(name string, parent *Dir, baseRev svn.Revnum) (*Dir, error) {
	path, err := e.childPath(parent, name)
	if err != nil {
		return nil, err
	}
	entry, err := getEntry(e.tx, path)
	if err != nil {
		return nil, err
	}
	if entry.Kind != svn.NodeKindDir {
		return nil, fmt.Errorf("%w: %s", svn.ErrNotDirectory, path)
	}
	return &Dir{node: node{path: path, url: entry.URL}}, nil
}

func (e *Editor) ChangeDirProp(dir *Dir, name string, value *string) error {
	dir.changes = append(dir.changes, propChange{name: name, value: value})
	return nil
}

// closeNode writes out the node's property changes and revision.
func (e *Editor) closeNode(n *node) error {
	for _, change := range n.changes {
		if err := e.setProp(n.path, change.name, change.value); err != nil {
			return fmt.Errorf("%s: %s: %w", n.path, change.name, err)
		}
	}
	if e.targetRev.Valid() {
		if _, err := e.tx.Exec(`UPDATE entries SET revision = ? WHERE path = ?`, int64(e.targetRev), n.path); err != nil {
			return err
		}
	}
	return nil
}

func (e *Editor) setProp(path, name string, value *string) error {
	switch svn.GetPropKind(name) {
	case svn.PropKindEntry:
		if value == nil {
			return nil
		}
		switch name {
		case svn.PropEntryCommittedRev:
			rev, err := svn.ParseRevnum(*value)
			if err != nil {
				return err
			}
			_, err = e.tx.Exec(`UPDATE entries SET committed_rev = ? WHERE path = ?`, int64(rev), path)
			return err
		case svn.PropEntryCommittedDate:
			_, err := e.tx.Exec(`UPDATE entries SET committed_date = ? WHERE path = ?`, *value, path)
			return err
		case svn.PropEntryLastAuthor:
			_, err := e.tx.Exec(`UPDATE entries SET last_author = ? WHERE path = ?`, *value, path)
			return err
		}
		return nil

	case svn.PropKindWC:
		return writeProp(e.tx, "wcprops", path, name, value)
	}

	if name == svn.PropDirtyMarker {
		_, err := e.tx.Exec(`UPDATE entries SET prop_mods = 1 WHERE path = ?`, path)
		return err
	}
	return writeProp(e.tx, "props", path, name, value)
}

func writeProp(q querier, table, path, name string, value *string) error {
	if value == nil {
		_, err := q.Exec(`DELETE FROM `+table+` WHERE path = ? AND name = ?`, path, name)
		return err
	}
	_, err := q.Exec(`
		INSERT INTO `+table+` (path, name, value) VALUES (?, ?, ?)
		ON CONFLICT(path, name) DO UPDATE SET value = excluded.value
	`, path, name, *value)
	return err
}

func (e *Editor) CloseDirectory(dir *Dir) error {
	if err := e.closeNode(&dir.node); err != nil {
		return err
	}
	switch {
	case dir.added:
		e.tell(ActionAdd, svn.NodeKindDir, dir.path)
	case len(dir.changes) > 0 && dir.path != "":
		e.tell(ActionUpdate, svn.NodeKindDir, dir.path)
	}
	return nil
}

func (e *Editor) AddFile(name string, parent *Dir, copyFromPath string, copyFromRev svn.Revnum) (*File, error) {
	path, err := e.childPath(parent, name)
	if err != nil {
		return nil, err
	}
	if copyFromRev.Valid() {
		return nil, fmt.Errorf("add file %s: copy from %s@%d is not supported", path, copyFromPath, copyFromRev)
	}

	// A copy-from path with no revision is the file's own URL.
	url := copyFromPath
	if url == "" {
		url = svn.JoinURL(parent.url, name)
	}
	if err := e.removeTree(path); err != nil {
		return nil, err
	}
	if err := e.putEntry(path, svn.NodeKindFile, url); err != nil {
		return nil, err
	}
	return &File{node: node{path: path, url: url, added: true}}, nil
}

func (e *Editor) OpenFile(name string, parent *Dir, baseRev svn.Revnum) (*File, error) {
	path, err := e.childPath(parent, name)
	if err != nil {
		return nil, err
	}
	entry, err := getEntry(e.tx, path)
	if err != nil {
		return nil, err
	}
	if entry.Kind != svn.NodeKindFile {
		return nil, fmt.Errorf("%w: %s", svn.ErrNotFile, path)
	}
	return &File{node: node{path: path, url: entry.URL}}, nil
}

// ApplyTextDelta reconstructs the file into a staging file, against the
// current content unless the file is new.
func (e *Editor) ApplyTextDelta(file *File) (svn.WindowHandler, error) {
	abs, err := e.wc.Abs(file.path)
	if err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Join(e.wc.Root, AdminDir, tmpDir), "text-*")
	if err != nil {
		return nil, err
	}
	file.tmp, file.tmpPath = tmp, tmp.Name()
	e.staged = append(e.staged, file.tmpPath)
	e.streaming = append(e.streaming, file)

	var base io.ReaderAt
	if !file.added {
		if file.source, err = os.Open(abs); err != nil {
			file.closeStreams()
			return nil, fmt.Errorf("delta base %s: %w", file.path, err)
		}
		base = file.source
	}

	return svn.ApplyHandler(base, tmp, func() error {
		file.written = true
		return file.closeStreams()
	}), nil
}

func (e *Editor) ChangeFileProp(file *File, name string, value *string) error {
	file.changes = append(file.changes, propChange{name: name, value: value})
	return nil
}

func (e *Editor) CloseFile(file *File) error {
	if file.written {
		abs, err := e.wc.Abs(file.path)
		if err != nil {
			return err
		}
		if err := os.Rename(file.tmpPath, abs); err != nil {
			return err
		}
	}
	if err := e.closeNode(&file.node); err != nil {
		return err
	}
	switch {
	case file.added:
		e.tell(ActionAdd, svn.NodeKindFile, file.path)
	case file.written || len(file.changes) > 0:
		e.tell(ActionUpdate, svn.NodeKindFile, file.path)
	}
	return nil
}

func (e *Editor) CloseEdit() error {
	if e.tx == nil {
		return nil
	}
	err := e.tx.Commit()
	e.tx = nil
	e.cleanup()
	return err
}

// AbortEdit drops the metadata changes. Files already moved into place stay.
func (e *Editor) AbortEdit() error {
	e.cleanup()
	if e.tx == nil {
		return nil
	}
	err := e.tx.Rollback()
	e.tx = nil
	return err
}

func (e *Editor) cleanup() {
	for _, file := range e.streaming {
		file.closeStreams()
	}
	e.streaming = nil
	for _, path := range e.staged {
		_ = os.Remove(path)
	}
	e.staged = nil
}
