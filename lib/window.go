package svn

import (
	"fmt"
	"io"
)

// OpAction selects where a delta instruction takes its bytes from.
type OpAction int

const (
	// OpSource copies from the window's view of the source.
	OpSource OpAction = iota
	// OpTarget copies from the part of the target already produced by this
	// window; the ranges may overlap, which repeats a pattern.
	OpTarget
	// OpNew copies the next bytes of the window's new data.
	OpNew
)

func (a OpAction) String() string {
	switch a {
	case OpSource:
		return "source"
	case OpTarget:
		return "target"
	case OpNew:
		return "new"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Op is one instruction of a delta window.
type Op struct {
	Action OpAction
	Offset int
	Length int
}

// Window is one unit of a content-replacement stream: a set of instructions
// that build TargetLen bytes from a view of the source and from NewData.
type Window struct {
	SourceOffset int64
	SourceLen    int
	TargetLen    int
	Ops          []Op
	NewData      []byte
}

// WindowHandler consumes the windows of one content-replacement stream.
// A nil window ends the stream and is sent exactly once.
type WindowHandler func(window *Window) error

// NewWindow returns a window that inserts data literally. There is no source.
func NewWindow(data []byte) *Window {
	window := &Window{TargetLen: len(data), NewData: data}
	if len(data) > 0 {
		window.Ops = []Op{{Action: OpNew, Offset: 0, Length: len(data)}}
	}
	return window
}

// Validate checks that every instruction stays inside its source view, its
// new data and the target it is building.
func (w *Window) Validate() error {
	tpos, npos := 0, 0
	for i, op := range w.Ops {
		if op.Length <= 0 || op.Offset < 0 {
			return fmt.Errorf("%w: op %d: bad offset/length %d/%d", ErrWindowInvalid, i, op.Offset, op.Length)
		}
		switch op.Action {
		case OpSource:
			if op.Offset > w.SourceLen || op.Length > w.SourceLen-op.Offset {
				return fmt.Errorf("%w: op %d: source copy beyond source view", ErrWindowInvalid, i)
			}
		case OpTarget:
			if op.Offset >= tpos {
				return fmt.Errorf("%w: op %d: target copy starts beyond produced data", ErrWindowInvalid, i)
			}
		case OpNew:
			if op.Offset != npos || op.Length > len(w.NewData)-npos {
				return fmt.Errorf("%w: op %d: new data out of order or overrun", ErrWindowInvalid, i)
			}
			npos += op.Length
		default:
			return fmt.Errorf("%w: op %d: unknown action %d", ErrWindowInvalid, i, op.Action)
		}
		if op.Length > w.TargetLen-tpos {
			return fmt.Errorf("%w: op %d: target overrun", ErrWindowInvalid, i)
		}
		tpos += op.Length
	}
	if tpos != w.TargetLen {
		return fmt.Errorf("%w: ops produce %d bytes, target is %d", ErrWindowInvalid, tpos, w.TargetLen)
	}
	return nil
}

// Apply builds the window's target from the given source view, appending to
// and returning into.
func (w *Window) Apply(sourceView []byte, into []byte) ([]byte, error) {
	if err := w.Validate(); err != nil {
		return into, err
	}
	if len(sourceView) < w.SourceLen {
		return into, fmt.Errorf("%w: source view has %d bytes, window needs %d", ErrWindowInvalid, len(sourceView), w.SourceLen)
	}
	start := len(into)
	for _, op := range w.Ops {
		switch op.Action {
		case OpSource:
			into = append(into, sourceView[op.Offset:op.Offset+op.Length]...)
		case OpTarget:
			// Byte at a time: the copy may read what it is writing.
			from := start + op.Offset
			for i := 0; i < op.Length; i++ {
				into = append(into, into[from+i])
			}
		case OpNew:
			into = append(into, w.NewData[op.Offset:op.Offset+op.Length]...)
		}
	}
	return into, nil
}

// SendBytes delivers data to a handler as a single literal window followed
// by the terminating nil window.
func SendBytes(handler WindowHandler, data []byte) error {
	if err := handler(NewWindow(data)); err != nil {
		return err
	}
	return handler(nil)
}

// ApplyHandler returns a window handler that reconstructs the target of a
// delta stream against source and writes it to sink. A nil source is an
// empty base. done, if not nil, runs once when the terminating window
// arrives.
func ApplyHandler(source io.ReaderAt, sink io.Writer, done func() error) WindowHandler {
	var view, target []byte
	closed := false
	return func(window *Window) error {
		if closed {
			return fmt.Errorf("%w: window after end of stream", ErrEditorMisuse)
		}
		if window == nil {
			closed = true
			if done != nil {
				return done()
			}
			return nil
		}

		view = view[:0]
		if window.SourceLen > 0 {
			if source == nil {
				return fmt.Errorf("%w: window reads %d source bytes but there is no source", ErrWindowInvalid, window.SourceLen)
			}
			if cap(view) < window.SourceLen {
				view = make([]byte, window.SourceLen)
			}
			view = view[:window.SourceLen]
			if n, err := source.ReadAt(view, window.SourceOffset); n < window.SourceLen {
				if err == nil {
					err = io.ErrUnexpectedEOF
				}
				return fmt.Errorf("reading delta source at %d: %w", window.SourceOffset, err)
			}
		}

		var err error
		if target, err = window.Apply(view, target[:0]); err != nil {
			return err
		}
		_, err = sink.Write(target)
		return err
	}
}
