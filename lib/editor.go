package svn

// Editor consumes a tree delta pushed at it by a driver. D and F are the
// editor's own directory and file handle types: the editor creates them in
// the open/add calls and the driver hands them back, unexamined, to the calls
// scoped to that node.
//
// A driver makes calls in this order:
//
//   - SetTargetRevision at most once, before OpenRoot.
//   - OpenRoot exactly once.
//   - Calls for a node only between its open/add and its close. A directory
//     is closed only after all of its children are closed, and at most one
//     file is open at a time.
//   - ApplyTextDelta's handler receives windows followed by exactly one nil
//     window, all before CloseFile.
//   - CloseEdit after the root is closed, or AbortEdit at any point. Nothing
//     after either.
//
// Names are single path components relative to the parent. A nil property
// value removes the property. An empty copyFromPath means the node is not
// a copy.
type Editor[D, F any] interface {
	SetTargetRevision(rev Revnum) error
	OpenRoot(baseRev Revnum) (D, error)

	DeleteEntry(name string, rev Revnum, parent D) error

	AddDirectory(name string, parent D, copyFromPath string, copyFromRev Revnum) (D, error)
	OpenDirectory(name string, parent D, baseRev Revnum) (D, error)
	ChangeDirProp(dir D, name string, value *string) error
	CloseDirectory(dir D) error

	AddFile(name string, parent D, copyFromPath string, copyFromRev Revnum) (F, error)
	OpenFile(name string, parent D, baseRev Revnum) (F, error)
	ApplyTextDelta(file F) (WindowHandler, error)
	ChangeFileProp(file F, name string, value *string) error
	CloseFile(file F) error

	CloseEdit() error
	AbortEdit() error
}

// PropValue returns a pointer suitable as a property value argument.
func PropValue(value string) *string {
	return &value
}

// NopEditor accepts and discards every call. Embed it to implement only the
// calls you care about.
type NopEditor[D, F any] struct{}

func (NopEditor[D, F]) SetTargetRevision(Revnum) error { return nil }

func (NopEditor[D, F]) OpenRoot(Revnum) (d D, err error) { return d, nil }

func (NopEditor[D, F]) DeleteEntry(string, Revnum, D) error { return nil }

func (NopEditor[D, F]) AddDirectory(string, D, string, Revnum) (d D, err error) { return d, nil }

func (NopEditor[D, F]) OpenDirectory(string, D, Revnum) (d D, err error) { return d, nil }

func (NopEditor[D, F]) ChangeDirProp(D, string, *string) error { return nil }

func (NopEditor[D, F]) CloseDirectory(D) error { return nil }

func (NopEditor[D, F]) AddFile(string, D, string, Revnum) (f F, err error) { return f, nil }

func (NopEditor[D, F]) OpenFile(string, D, Revnum) (f F, err error) { return f, nil }

func (NopEditor[D, F]) ApplyTextDelta(F) (WindowHandler, error) {
	return func(*Window) error { return nil }, nil
}

func (NopEditor[D, F]) ChangeFileProp(F, string, *string) error { return nil }

func (NopEditor[D, F]) CloseFile(F) error { return nil }

func (NopEditor[D, F]) CloseEdit() error { return nil }

func (NopEditor[D, F]) AbortEdit() error { return nil }
