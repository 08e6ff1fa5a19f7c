package svn

import "fmt"

// CheckedDir is the directory handle of a Checked editor.
type CheckedDir[D any] struct {
	Handle D
	Path   string

	parent   *CheckedDir[D]
	children int
	closed   bool
}

// CheckedFile is the file handle of a Checked editor.
type CheckedFile[D, F any] struct {
	Handle F
	Path   string

	parent       *CheckedDir[D]
	closed       bool
	deltaStarted bool
	deltaDone    bool
}

// Checked wraps an editor and fails any call that breaks the driver's side
// of the editor contract with ErrEditorMisuse, before it reaches the wrapped
// editor.
type Checked[D, F any] struct {
	inner Editor[D, F]

	targetSet bool
	root      *CheckedDir[D]
	file      *CheckedFile[D, F]
	finished  bool
}

// NewChecked wraps inner.
func NewChecked[D, F any](inner Editor[D, F]) *Checked[D, F] {
	return &Checked[D, F]{inner: inner}
}

func misuse(call, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrEditorMisuse, call, fmt.Sprintf(format, args...))
}

func (c *Checked[D, F]) live(call string) error {
	if c.finished {
		return misuse(call, "edit already finished")
	}
	if c.root == nil {
		return misuse(call, "root not opened")
	}
	return nil
}

func (c *Checked[D, F]) usableDir(call string, dir *CheckedDir[D]) error {
	if err := c.live(call); err != nil {
		return err
	}
	if dir == nil {
		return misuse(call, "nil directory handle")
	}
	if dir.closed {
		return misuse(call, "directory %q used after close", dir.Path)
	}
	return nil
}

func (c *Checked[D, F]) usableFile(call string, file *CheckedFile[D, F]) error {
	if err := c.live(call); err != nil {
		return err
	}
	if file == nil {
		return misuse(call, "nil file handle")
	}
	if file.closed {
		return misuse(call, "file %q used after close", file.Path)
	}
	return nil
}

func (c *Checked[D, F]) SetTargetRevision(rev Revnum) error {
	switch {
	case c.finished:
		return misuse("SetTargetRevision", "edit already finished")
	case c.root != nil:
		return misuse("SetTargetRevision", "called after OpenRoot")
	case c.targetSet:
		return misuse("SetTargetRevision", "called twice")
	}
	c.targetSet = true
	return c.inner.SetTargetRevision(rev)
}

func (c *Checked[D, F]) OpenRoot(baseRev Revnum) (*CheckedDir[D], error) {
	if c.finished {
		return nil, misuse("OpenRoot", "edit already finished")
	}
	if c.root != nil {
		return nil, misuse("OpenRoot", "called twice")
	}
	handle, err := c.inner.OpenRoot(baseRev)
	if err != nil {
		return nil, err
	}
	c.root = &CheckedDir[D]{Handle: handle}
	return c.root, nil
}

func (c *Checked[D, F]) DeleteEntry(name string, rev Revnum, parent *CheckedDir[D]) error {
	if err := c.usableDir("DeleteEntry", parent); err != nil {
		return err
	}
	return c.inner.DeleteEntry(name, rev, parent.Handle)
}

func (c *Checked[D, F]) openChild(call string, name string, parent *CheckedDir[D], open func() (D, error)) (*CheckedDir[D], error) {
	if err := c.usableDir(call, parent); err != nil {
		return nil, err
	}
	handle, err := open()
	if err != nil {
		return nil, err
	}
	parent.children++
	return &CheckedDir[D]{Handle: handle, Path: JoinPath(parent.Path, name), parent: parent}, nil
}

func (c *Checked[D, F]) AddDirectory(name string, parent *CheckedDir[D], copyFromPath string, copyFromRev Revnum) (*CheckedDir[D], error) {
	return c.openChild("AddDirectory", name, parent, func() (D, error) {
		return c.inner.AddDirectory(name, parent.Handle, copyFromPath, copyFromRev)
	})
}

func (c *Checked[D, F]) OpenDirectory(name string, parent *CheckedDir[D], baseRev Revnum) (*CheckedDir[D], error) {
	return c.openChild("OpenDirectory", name, parent, func() (D, error) {
		return c.inner.OpenDirectory(name, parent.Handle, baseRev)
	})
}

func (c *Checked[D, F]) ChangeDirProp(dir *CheckedDir[D], name string, value *string) error {
	if err := c.usableDir("ChangeDirProp", dir); err != nil {
		return err
	}
	return c.inner.ChangeDirProp(dir.Handle, name, value)
}

func (c *Checked[D, F]) CloseDirectory(dir *CheckedDir[D]) error {
	if err := c.usableDir("CloseDirectory", dir); err != nil {
		return err
	}
	if dir.children > 0 {
		return misuse("CloseDirectory", "directory %q still has %d open children", dir.Path, dir.children)
	}
	dir.closed = true
	if dir.parent != nil {
		dir.parent.children--
	}
	return c.inner.CloseDirectory(dir.Handle)
}

func (c *Checked[D, F]) openFile(call string, name string, parent *CheckedDir[D], open func() (F, error)) (*CheckedFile[D, F], error) {
	if err := c.usableDir(call, parent); err != nil {
		return nil, err
	}
	if c.file != nil {
		return nil, misuse(call, "file %q is still open", c.file.Path)
	}
	handle, err := open()
	if err != nil {
		return nil, err
	}
	parent.children++
	c.file = &CheckedFile[D, F]{Handle: handle, Path: JoinPath(parent.Path, name), parent: parent}
	return c.file, nil
}

func (c *Checked[D, F]) AddFile(name string, parent *CheckedDir[D], copyFromPath string, copyFromRev Revnum) (*CheckedFile[D, F], error) {
	return c.openFile("AddFile", name, parent, func() (F, error) {
		return c.inner.AddFile(name, parent.Handle, copyFromPath, copyFromRev)
	})
}

func (c *Checked[D, F]) OpenFile(name string, parent *CheckedDir[D], baseRev Revnum) (*CheckedFile[D, F], error) {
	return c.openFile("OpenFile", name, parent, func() (F, error) {
		return c.inner.OpenFile(name, parent.Handle, baseRev)
	})
}

func (c *Checked[D, F]) ApplyTextDelta(file *CheckedFile[D, F]) (WindowHandler, error) {
	if err := c.usableFile("ApplyTextDelta", file); err != nil {
		return nil, err
	}
	if file.deltaStarted {
		return nil, misuse("ApplyTextDelta", "file %q already has a delta", file.Path)
	}
	file.deltaStarted = true
	handler, err := c.inner.ApplyTextDelta(file.Handle)
	if err != nil {
		return nil, err
	}
	return func(window *Window) error {
		if file.deltaDone {
			return misuse("WindowHandler", "window for %q after the end of its delta", file.Path)
		}
		if file.closed {
			return misuse("WindowHandler", "window for %q after CloseFile", file.Path)
		}
		if window == nil {
			file.deltaDone = true
		}
		return handler(window)
	}, nil
}

func (c *Checked[D, F]) ChangeFileProp(file *CheckedFile[D, F], name string, value *string) error {
	if err := c.usableFile("ChangeFileProp", file); err != nil {
		return err
	}
	return c.inner.ChangeFileProp(file.Handle, name, value)
}

func (c *Checked[D, F]) CloseFile(file *CheckedFile[D, F]) error {
	if err := c.usableFile("CloseFile", file); err != nil {
		return err
	}
	if file.deltaStarted && !file.deltaDone {
		return misuse("CloseFile", "delta for %q was never terminated", file.Path)
	}
	file.closed = true
	file.parent.children--
	if c.file == file {
		c.file = nil
	}
	return c.inner.CloseFile(file.Handle)
}

func (c *Checked[D, F]) CloseEdit() error {
	if err := c.live("CloseEdit"); err != nil {
		return err
	}
	if !c.root.closed {
		return misuse("CloseEdit", "root directory still open")
	}
	c.finished = true
	return c.inner.CloseEdit()
}

func (c *Checked[D, F]) AbortEdit() error {
	if c.finished {
		return misuse("AbortEdit", "edit already finished")
	}
	c.finished = true
	return c.inner.AbortEdit()
}
