package svn

import (
	"context"
	"fmt"
	"io"

	"github.com/golang/glog"
)

// pending is one entry of the checkout work stack: either a directory still
// to be added under parent, or a sentinel standing for the close of dir.
type pending[D any] struct {
	sentinel bool
	dir      D

	path   string
	url    string
	parent D
}

// treeWalker holds the state of one checkout drive.
type treeWalker[D, F any] struct {
	ctx     context.Context
	root    Root
	editor  Editor[D, F]
	recurse bool
	tag     string
	stack   []pending[D]
}

// Checkout drives editor with the whole tree below fsPath in root, as a
// series of additions. url is the repository URL of fsPath. Without recurse
// only the files directly in fsPath are sent; subdirectories are left out.
//
// The walk keeps its own stack rather than recursing, so tree depth costs
// heap rather than goroutine stack. On any failure the edit is aborted and
// the first error returned.
func Checkout[D, F any](ctx context.Context, root Root, fsPath, url string, recurse bool, editor Editor[D, F]) (err error) {
	w := &treeWalker[D, F]{
		ctx:     ctx,
		root:    root,
		editor:  editor,
		recurse: recurse,
		tag:     NewSessionTag("checkout"),
	}
	fsPath = CleanPath(fsPath)

	glog.V(LogLevelSession).Infof("[%s]start r%d /%s -> %s recurse=%v\n", w.tag, root.Revision(), fsPath, url, recurse)
	defer func() {
		if err != nil {
			if abortErr := editor.AbortEdit(); abortErr != nil {
				glog.Warningf("[%s]abort failed: %v\n", w.tag, abortErr)
			}
			glog.V(LogLevelSession).Infof("[%s]aborted: %v\n", w.tag, err)
			return
		}
		glog.V(LogLevelSession).Infof("[%s]done\n", w.tag)
	}()

	kind, err := root.NodeKind(fsPath)
	if err != nil {
		return err
	}
	if kind != NodeKindDir {
		return fmt.Errorf("%w: /%s", ErrNotDirectory, fsPath)
	}

	if err := editor.SetTargetRevision(root.Revision()); err != nil {
		return fmt.Errorf("set target revision: %w", err)
	}
	rootDir, err := editor.OpenRoot(InvalidRevnum)
	if err != nil {
		return fmt.Errorf("open root: %w", err)
	}
	if err := w.sendProps(fsPath, func(name string, value *string) error {
		return editor.ChangeDirProp(rootDir, name, value)
	}); err != nil {
		return err
	}

	w.push(pending[D]{sentinel: true, dir: rootDir})
	if err := w.enumerate(fsPath, url, rootDir); err != nil {
		return err
	}

	for len(w.stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		item := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]

		if item.sentinel {
			glog.V(LogLevelCalls).Infof("[%s]close directory\n", w.tag)
			if err := editor.CloseDirectory(item.dir); err != nil {
				return fmt.Errorf("close directory: %w", err)
			}
			continue
		}

		if err := w.addDirectory(item); err != nil {
			return err
		}
	}

	return editor.CloseEdit()
}

func (w *treeWalker[D, F]) push(item pending[D]) {
	w.stack = append(w.stack, item)
}

func (w *treeWalker[D, F]) addDirectory(item pending[D]) error {
	glog.V(LogLevelCalls).Infof("[%s]add directory /%s\n", w.tag, item.path)
	dir, err := w.editor.AddDirectory(Basename(item.path), item.parent, "", InvalidRevnum)
	if err != nil {
		return fmt.Errorf("add directory /%s: %w", item.path, err)
	}
	if err := w.sendProps(item.path, func(name string, value *string) error {
		return w.editor.ChangeDirProp(dir, name, value)
	}); err != nil {
		return err
	}

	// The sentinel goes on before any child so the close comes after them.
	w.push(pending[D]{sentinel: true, dir: dir})
	return w.enumerate(item.path, item.url, dir)
}

// enumerate sends the files of a directory straight away and stacks its
// subdirectories when recursing.
func (w *treeWalker[D, F]) enumerate(dirPath, url string, dir D) error {
	entries, err := w.root.DirEntries(dirPath)
	if err != nil {
		return fmt.Errorf("listing /%s: %w", dirPath, err)
	}

	subdirs := make([]pending[D], 0, len(entries))
	for _, entry := range entries {
		childPath := JoinPath(dirPath, entry.Name)
		childURL := JoinURL(url, entry.Name)

		switch entry.Kind {
		case NodeKindDir:
			if !w.recurse {
				glog.V(LogLevelCalls).Infof("[%s]not descending into /%s\n", w.tag, childPath)
				continue
			}
			subdirs = append(subdirs, pending[D]{path: childPath, url: childURL, parent: dir})

		case NodeKindFile:
			if err := w.sendFile(childPath, childURL, entry.Name, dir); err != nil {
				return err
			}

		default:
			glog.V(LogLevelCalls).Infof("[%s]skipping /%s of kind %s\n", w.tag, childPath, entry.Kind)
		}
	}

	// Reverse so the stack pops them in listing order.
	for i := len(subdirs) - 1; i >= 0; i-- {
		w.push(subdirs[i])
	}
	return nil
}

func (w *treeWalker[D, F]) sendFile(path, url, name string, dir D) error {
	glog.V(LogLevelCalls).Infof("[%s]add file /%s\n", w.tag, path)

	// The URL goes in the copy-from slot with no revision: an ancestry hint
	// for the working copy, not a copy.
	file, err := w.editor.AddFile(name, dir, url, InvalidRevnum)
	if err != nil {
		return fmt.Errorf("add file /%s: %w", path, err)
	}
	if err := w.sendProps(path, func(name string, value *string) error {
		return w.editor.ChangeFileProp(file, name, value)
	}); err != nil {
		return err
	}
	if err := w.sendContents(path, file); err != nil {
		return err
	}
	if err := w.editor.CloseFile(file); err != nil {
		return fmt.Errorf("close file /%s: %w", path, err)
	}
	return nil
}

// sendContents pushes the whole file as one window; a checkout has no base
// to diff against.
func (w *treeWalker[D, F]) sendContents(path string, file F) error {
	contents, err := w.root.FileContents(path)
	if err != nil {
		return fmt.Errorf("reading /%s: %w", path, err)
	}
	defer contents.Close()

	data, err := io.ReadAll(contents)
	if err != nil {
		return fmt.Errorf("reading /%s: %w", path, err)
	}

	handler, err := w.editor.ApplyTextDelta(file)
	if err != nil {
		return fmt.Errorf("apply text delta /%s: %w", path, err)
	}
	if err := SendBytes(handler, data); err != nil {
		return fmt.Errorf("sending /%s: %w", path, err)
	}
	return nil
}

// sendProps sends the user properties of path merged with its synthesized
// entry properties.
func (w *treeWalker[D, F]) sendProps(path string, set func(name string, value *string) error) error {
	props, err := w.root.NodeProperties(path)
	if err != nil {
		return fmt.Errorf("properties of /%s: %w", path, err)
	}
	info, err := w.root.CommittedInfo(path)
	if err != nil {
		return fmt.Errorf("committed info of /%s: %w", path, err)
	}

	merged := props.Clone()
	if merged == nil {
		merged = NewProperties()
	}
	for name, value := range EntryProps(info) {
		merged[name] = value
	}

	for _, name := range merged.Names() {
		if err := set(name, PropValue(merged[name])); err != nil {
			return fmt.Errorf("setting %s on /%s: %w", name, path, err)
		}
	}
	return nil
}
