// Package edittest provides an editor that records what a driver does to
// it, for testing drivers.
package edittest

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	svn "github.com/kfsone/svndelta/lib"
)

// Node is the handle a Recorder gives out for directories and files.
type Node struct {
	Path string
}

// Recorder is an svn.Editor that logs every call as a line of text and
// reconstructs the content sent to each file.
//
// Call lines look like:
//
//	target 5
//	open-root
//	add-dir a
//	open-dir a
//	dir-prop a svn:ignore=*.o
//	dir-prop a svn:ignore (deleted)
//	close-dir a
//	delete a/old
//	add-file a/b.txt from http://host/a/b.txt@-1
//	open-file a/c.txt
//	text a/b.txt
//	file-prop a/b.txt name=value
//	close-file a/b.txt
//	close-edit
//	abort-edit
type Recorder struct {
	Calls []string

	// Base holds the content a file has before the edit, the source its
	// deltas apply to.
	Base map[string][]byte
	// Contents is what each file's delta stream reconstructed.
	Contents map[string][]byte
	// Windows counts the non-nil windows sent to each file.
	Windows map[string]int
	// Ended records which files' delta streams were terminated.
	Ended map[string]bool

	// FailOn, if set, makes the first call whose line has this prefix fail
	// with ErrInjected.
	FailOn string
}

// ErrInjected is returned by a call matching Recorder.FailOn.
var ErrInjected = errors.New("injected failure")

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{
		Base:     make(map[string][]byte),
		Contents: make(map[string][]byte),
		Windows:  make(map[string]int),
		Ended:    make(map[string]bool),
	}
}

func (r *Recorder) record(format string, args ...any) error {
	line := fmt.Sprintf(format, args...)
	r.Calls = append(r.Calls, line)
	if r.FailOn != "" && strings.HasPrefix(line, r.FailOn) {
		r.FailOn = ""
		return ErrInjected
	}
	return nil
}

func propLine(name string, value *string) string {
	if value == nil {
		return name + " (deleted)"
	}
	return name + "=" + *value
}

func (r *Recorder) SetTargetRevision(rev svn.Revnum) error {
	return r.record("target %d", rev)
}

func (r *Recorder) OpenRoot(baseRev svn.Revnum) (*Node, error) {
	return &Node{}, r.record("open-root")
}

func (r *Recorder) DeleteEntry(name string, rev svn.Revnum, parent *Node) error {
	return r.record("delete %s", svn.JoinPath(parent.Path, name))
}

func (r *Recorder) AddDirectory(name string, parent *Node, copyFromPath string, copyFromRev svn.Revnum) (*Node, error) {
	dir := &Node{Path: svn.JoinPath(parent.Path, name)}
	if copyFromPath != "" {
		return dir, r.record("add-dir %s from %s@%d", dir.Path, copyFromPath, copyFromRev)
	}
	return dir, r.record("add-dir %s", dir.Path)
}

func (r *Recorder) OpenDirectory(name string, parent *Node, baseRev svn.Revnum) (*Node, error) {
	dir := &Node{Path: svn.JoinPath(parent.Path, name)}
	return dir, r.record("open-dir %s", dir.Path)
}

func (r *Recorder) ChangeDirProp(dir *Node, name string, value *string) error {
	return r.record("dir-prop %s %s", dir.Path, propLine(name, value))
}

func (r *Recorder) CloseDirectory(dir *Node) error {
	return r.record("close-dir %s", dir.Path)
}

func (r *Recorder) AddFile(name string, parent *Node, copyFromPath string, copyFromRev svn.Revnum) (*Node, error) {
	file := &Node{Path: svn.JoinPath(parent.Path, name)}
	if copyFromPath != "" {
		return file, r.record("add-file %s from %s@%d", file.Path, copyFromPath, copyFromRev)
	}
	return file, r.record("add-file %s", file.Path)
}

func (r *Recorder) OpenFile(name string, parent *Node, baseRev svn.Revnum) (*Node, error) {
	file := &Node{Path: svn.JoinPath(parent.Path, name)}
	return file, r.record("open-file %s", file.Path)
}

func (r *Recorder) ApplyTextDelta(file *Node) (svn.WindowHandler, error) {
	if err := r.record("text %s", file.Path); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	apply := svn.ApplyHandler(bytes.NewReader(r.Base[file.Path]), &out, func() error {
		r.Contents[file.Path] = out.Bytes()
		r.Ended[file.Path] = true
		return nil
	})
	return func(window *svn.Window) error {
		if window != nil {
			r.Windows[file.Path]++
		}
		return apply(window)
	}, nil
}

func (r *Recorder) ChangeFileProp(file *Node, name string, value *string) error {
	return r.record("file-prop %s %s", file.Path, propLine(name, value))
}

func (r *Recorder) CloseFile(file *Node) error {
	return r.record("close-file %s", file.Path)
}

func (r *Recorder) CloseEdit() error {
	return r.record("close-edit")
}

func (r *Recorder) AbortEdit() error {
	return r.record("abort-edit")
}

// Filter returns the recorded calls that start with prefix.
func (r *Recorder) Filter(prefix string) []string {
	var calls []string
	for _, call := range r.Calls {
		if strings.HasPrefix(call, prefix) {
			calls = append(calls, call)
		}
	}
	return calls
}

// Files returns the paths that received content, sorted.
func (r *Recorder) Files() []string {
	paths := make([]string, 0, len(r.Contents))
	for path := range r.Contents {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
