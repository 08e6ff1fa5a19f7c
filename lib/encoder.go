package svn

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Encoder writes delta windows to an io.Writer in svndiff form.
type Encoder struct {
	w       *bufio.Writer
	version int
	started bool
	closed  bool
	scratch []byte
}

// NewEncoder returns an encoder producing svndiff version 0 or 1.
func NewEncoder(w io.Writer, version int) (*Encoder, error) {
	if version < 0 || version > maxSvndiffVersion {
		return nil, fmt.Errorf("unsupported svndiff version %d", version)
	}
	return &Encoder{w: bufio.NewWriterSize(w, 4*1024), version: version}, nil
}

func (e *Encoder) header() error {
	if e.started {
		return nil
	}
	e.started = true
	_, err := e.w.Write([]byte{'S', 'V', 'N', byte(e.version)})
	return err
}

// WriteWindow appends one window to the stream.
func (e *Encoder) WriteWindow(window *Window) error {
	if e.closed {
		return fmt.Errorf("%w: window written after close", ErrEditorMisuse)
	}
	if err := window.Validate(); err != nil {
		return err
	}
	if err := e.header(); err != nil {
		return err
	}

	ins := make([]byte, 0, len(window.Ops)*4)
	for _, op := range window.Ops {
		c := byte(op.Action) << 6
		if op.Length < 0x40 {
			ins = append(ins, c|byte(op.Length))
		} else {
			ins = append(ins, c)
			ins = appendVarint(ins, uint64(op.Length))
		}
		if op.Action != OpNew {
			ins = appendVarint(ins, uint64(op.Offset))
		}
	}
	newData := window.NewData

	if e.version == 1 {
		var err error
		if ins, err = compressSection(ins); err != nil {
			return err
		}
		if newData, err = compressSection(newData); err != nil {
			return err
		}
	}

	e.scratch = e.scratch[:0]
	e.scratch = appendVarint(e.scratch, uint64(window.SourceOffset))
	e.scratch = appendVarint(e.scratch, uint64(window.SourceLen))
	e.scratch = appendVarint(e.scratch, uint64(window.TargetLen))
	e.scratch = appendVarint(e.scratch, uint64(len(ins)))
	e.scratch = appendVarint(e.scratch, uint64(len(newData)))
	for _, data := range [][]byte{e.scratch, ins, newData} {
		if _, err := e.w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// Close writes the header if no window was written, so an empty delta is
// still a valid stream, and flushes.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.header(); err != nil {
		return err
	}
	return e.w.Flush()
}

// Handler adapts the encoder to a WindowHandler; the terminating nil window
// closes it.
func (e *Encoder) Handler() WindowHandler {
	return func(window *Window) error {
		if window == nil {
			return e.Close()
		}
		return e.WriteWindow(window)
	}
}

// compressSection applies the version 1 section encoding, keeping the raw
// bytes when compression doesn't pay.
func compressSection(data []byte) ([]byte, error) {
	out := appendVarint(nil, uint64(len(data)))
	var packed bytes.Buffer
	zw := zlib.NewWriter(&packed)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	if packed.Len() >= len(data) {
		return append(out, data...), nil
	}
	return append(out, packed.Bytes()...), nil
}

// EncodeBytes returns the svndiff encoding of data as a single literal
// window.
func EncodeBytes(data []byte, version int) ([]byte, error) {
	var out bytes.Buffer
	enc, err := NewEncoder(&out, version)
	if err != nil {
		return nil, err
	}
	if err := SendBytes(enc.Handler(), data); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
