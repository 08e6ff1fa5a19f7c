package svn

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"math"
)

// svndiff stream layout:
//
//	"SVN" version-byte window*
//	window -> sview-offset sview-len tview-len ins-len new-len
//	          <ins-len bytes of instructions> <new-len bytes of new data>
//
// Integers are big-endian base-128 varints, high bit set on all but the
// last byte. In version 1 the instruction and new-data sections each start
// with a varint of their original size and are zlib compressed unless the
// stored size equals the original size.
//
// An instruction is one byte: two bits of action (source, target, new) and
// six bits of length; a zero length is followed by a varint length. Source
// and target copies are followed by a varint offset.

const (
	SvndiffContentType = "application/vnd.svn-svndiff"

	svndiffMagic      = "SVN"
	svndiffHeaderLen  = 4
	maxSvndiffVersion = 1
	maxVarintLen      = 10
	maxWindowView     = 64 << 20
)

// Decoder turns a stream of svndiff bytes, written in chunks of any size,
// into windows handed to a WindowHandler. Close checks the stream ended at
// a window boundary; it does not send the terminating nil window, which
// belongs to whoever owns the handler.
type Decoder struct {
	handler    WindowHandler
	buf        []byte
	version    int
	lastOffset int64
	lastLen    int
	windows    int
	err        error
}

// NewDecoder returns a decoder feeding handler.
func NewDecoder(handler WindowHandler) *Decoder {
	return &Decoder{handler: handler, version: -1}
}

// Windows returns how many windows have been decoded so far.
func (d *Decoder) Windows() int {
	return d.windows
}

// Write consumes svndiff data. All of p is always consumed; the first error
// is sticky.
func (d *Decoder) Write(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	d.buf = append(d.buf, p...)

	if d.version < 0 {
		if len(d.buf) < svndiffHeaderLen {
			return len(p), nil
		}
		if !bytes.Equal(d.buf[:3], []byte(svndiffMagic)) || d.buf[3] > maxSvndiffVersion {
			d.err = ErrSvndiffHeader
			return 0, d.err
		}
		d.version = int(d.buf[3])
		d.buf = d.buf[svndiffHeaderLen:]
	}

	for len(d.buf) > 0 {
		window, used, err := d.parseWindow(d.buf)
		if err != nil {
			d.err = err
			return 0, err
		}
		if used == 0 {
			break
		}
		d.buf = d.buf[used:]
		d.windows++
		if err := d.handler(window); err != nil {
			d.err = err
			return 0, err
		}
	}

	// Don't let the retained tail pin an ever-growing backing array.
	if len(d.buf) == 0 {
		d.buf = nil
	}

	return len(p), nil
}

// Close reports an error if the data stopped partway through the header or
// a window.
func (d *Decoder) Close() error {
	if d.err != nil {
		return d.err
	}
	if d.version < 0 || len(d.buf) > 0 {
		d.err = ErrSvndiffTruncated
		return d.err
	}
	return nil
}

// parseWindow decodes one window from the front of b. used is 0 when b does
// not yet hold a complete window.
func (d *Decoder) parseWindow(b []byte) (window *Window, used int, err error) {
	var fields [5]uint64
	pos := 0
	for i := range fields {
		val, n, err := readVarint(b[pos:])
		if err != nil {
			return nil, 0, err
		}
		if n == 0 {
			return nil, 0, nil
		}
		fields[i] = val
		pos += n
	}
	sviewOffset, sviewLen, tviewLen, insLen, newLen := fields[0], fields[1], fields[2], fields[3], fields[4]

	if sviewLen > maxWindowView || tviewLen > maxWindowView || insLen > maxWindowView || newLen > maxWindowView {
		return nil, 0, fmt.Errorf("%w: window too large", ErrSvndiffCorrupt)
	}
	if sviewOffset > math.MaxInt64-maxWindowView {
		return nil, 0, fmt.Errorf("%w: source view offset %d too large", ErrSvndiffCorrupt, sviewOffset)
	}
	if uint64(len(b)-pos) < insLen+newLen {
		return nil, 0, nil
	}

	// Source views may only slide forward.
	if int64(sviewOffset) < d.lastOffset || int64(sviewOffset)+int64(sviewLen) < d.lastOffset+int64(d.lastLen) {
		return nil, 0, fmt.Errorf("%w: source view moved backwards", ErrSvndiffCorrupt)
	}

	insData := b[pos : pos+int(insLen)]
	newData := b[pos+int(insLen) : pos+int(insLen)+int(newLen)]
	used = pos + int(insLen) + int(newLen)

	if d.version == 1 {
		if insData, err = decompressSection(insData); err != nil {
			return nil, 0, err
		}
		if newData, err = decompressSection(newData); err != nil {
			return nil, 0, err
		}
	}

	window = &Window{
		SourceOffset: int64(sviewOffset),
		SourceLen:    int(sviewLen),
		TargetLen:    int(tviewLen),
		// Copy: the buffer behind b is reused for later chunks.
		NewData: append([]byte(nil), newData...),
	}
	if window.Ops, err = decodeInstructions(insData); err != nil {
		return nil, 0, err
	}
	if err := window.Validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrSvndiffCorrupt, err)
	}

	d.lastOffset, d.lastLen = window.SourceOffset, window.SourceLen

	return window, used, nil
}

func decodeInstructions(data []byte) ([]Op, error) {
	ops := make([]Op, 0, 4)
	newOffset := 0
	for pos := 0; pos < len(data); {
		c := data[pos]
		pos++
		op := Op{Action: OpAction(c >> 6), Length: int(c & 0x3f)}
		if op.Action > OpNew {
			return nil, fmt.Errorf("%w: invalid instruction %#x", ErrSvndiffCorrupt, c)
		}
		if op.Length == 0 {
			val, n, err := readVarint(data[pos:])
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, fmt.Errorf("%w: instruction length truncated", ErrSvndiffCorrupt)
			}
			if val > maxWindowView {
				return nil, fmt.Errorf("%w: instruction length %d too large", ErrSvndiffCorrupt, val)
			}
			op.Length = int(val)
			pos += n
		}
		if op.Action == OpNew {
			op.Offset = newOffset
			newOffset += op.Length
		} else {
			val, n, err := readVarint(data[pos:])
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, fmt.Errorf("%w: instruction offset truncated", ErrSvndiffCorrupt)
			}
			if val > maxWindowView {
				return nil, fmt.Errorf("%w: instruction offset %d too large", ErrSvndiffCorrupt, val)
			}
			op.Offset = int(val)
			pos += n
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// decompressSection undoes the version 1 section encoding.
func decompressSection(section []byte) ([]byte, error) {
	origLen, n, err := readVarint(section)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: section size truncated", ErrSvndiffCorrupt)
	}
	if origLen > maxWindowView {
		return nil, fmt.Errorf("%w: section too large", ErrSvndiffCorrupt)
	}
	section = section[n:]
	if uint64(len(section)) == origLen {
		return section, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(section))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSvndiffCorrupt, err)
	}
	defer zr.Close()
	out := make([]byte, origLen)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("%w: decompressing section: %w", ErrSvndiffCorrupt, err)
	}
	return out, nil
}

// readVarint decodes one integer. n is 0 if b ends before the integer does.
func readVarint(b []byte) (val uint64, n int, err error) {
	for i, c := range b {
		if i >= maxVarintLen {
			return 0, 0, fmt.Errorf("%w: integer too long", ErrSvndiffCorrupt)
		}
		val = val<<7 | uint64(c&0x7f)
		if c&0x80 == 0 {
			return val, i + 1, nil
		}
	}
	if len(b) >= maxVarintLen {
		return 0, 0, fmt.Errorf("%w: integer too long", ErrSvndiffCorrupt)
	}
	return 0, 0, nil
}

// appendVarint encodes one integer.
func appendVarint(b []byte, val uint64) []byte {
	var tmp [maxVarintLen]byte
	i := len(tmp) - 1
	tmp[i] = byte(val & 0x7f)
	for val >>= 7; val > 0; val >>= 7 {
		i--
		tmp[i] = byte(val&0x7f) | 0x80
	}
	return append(b, tmp[i:]...)
}
