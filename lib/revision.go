package svn

import (
	"fmt"
	"io"
	"time"
)

// Revision is one revision record of a dump, with its node records.
type Revision struct {
	Number     Revnum     // Repository's number for this revision.
	Headers    *Headers   // Table of headers for this revision.
	Properties Properties // Table of svn:properties attached to the revision.
	Nodes      []*Node    // The actual file/directory changes in the revision.

	startOffset int // Offset of first byte of this rev in its dump.
	endOffset   int // Offset past the last byte of this rev in its dump.
}

// NewRevision reads the next revision record and all of its nodes. A reader
// with nothing left yields io.EOF.
func NewRevision(dump *DumpReader) (rev *Revision, err error) {
	dump.SkipNewlines()
	if dump.AtEOF() {
		return nil, io.EOF
	}

	rev = &Revision{startOffset: dump.Offset()}

	if rev.Headers, err = NewHeaders(dump); err != nil {
		return nil, err
	}

	// Extract the revision number.
	number, err := rev.Headers.Int(RevisionNumberHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRevisionHeader, err)
	}
	rev.Number = Revnum(number)

	// Find the length of the property data.
	propLen, err := rev.Headers.IntOr(PropContentLengthHeader, 0)
	if err != nil {
		return nil, fmt.Errorf("r%d: %w", rev.Number, err)
	}

	block, err := dump.Read(propLen)
	if err != nil {
		return nil, fmt.Errorf("r%d: properties: %w", rev.Number, err)
	}
	rev.Properties = NewProperties()
	if propLen > 0 {
		if rev.Properties, _, err = ReadProperties(NewDumpReader(block)); err != nil {
			return nil, fmt.Errorf("r%d: properties: %w", rev.Number, err)
		}
	}

	dump.SkipNewlines()

	// Optimistically allocate a block to reduce the number of reallocs.
	rev.Nodes = make([]*Node, 0, 16)
	for dump.HasPrefix(NodePathHeader + ": ") {
		node, err := NewNode(dump)
		if err != nil {
			return nil, fmt.Errorf("r%d: %w", rev.Number, err)
		}
		rev.Nodes = append(rev.Nodes, node)
	}

	rev.endOffset = dump.Offset()

	return rev, nil
}

// Author returns the svn:author of the revision, which may be empty.
func (r *Revision) Author() string {
	return r.Properties[RevisionPropAuthor]
}

// Date returns the svn:date of the revision in its wire form.
func (r *Revision) Date() string {
	return r.Properties[RevisionPropDate]
}

// Time parses the svn:date of the revision; zero time if it has none.
func (r *Revision) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, r.Date())
	if err != nil {
		return time.Time{}
	}
	return t
}

// Size returns the number of dump bytes the revision occupied.
func (r *Revision) Size() int {
	return r.endOffset - r.startOffset
}
