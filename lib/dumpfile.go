package svn

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

/*
revision -> revision-number revision-props <newline> node-list

revision-number -> "Revision-number: " <digits>:revision-number <newline>

revision-props ->
  "Prop-content-length: " <digits>:prop-content-length <newline>
  "Content-length: " <digits>:prop-content-length <newline> <newline>
  <prop-content-length bytes of property-data>

property-data -> key-value-pair-list props-end

key-value-pair -> ("K " | "D ") digit:length <newline> <length bytes> <newline>
                  ["V " digit:length <newline> <length bytes> <newline>]

props-end -> "PROPS-END" <newline>

node -> node-header node-content <newline> <newline>

node-header ->
  Node-path: <newline-terminated-string>
  Node-kind: "file" | "dir"
  Node-action: "change" | "add" | "delete" | "replace"
  [Node-copyfrom-rev: <newline-terminated-string>]
  [Node-copyfrom-path: <newline-terminated-string>]
  [Text-delta: "true"]
  [Prop-delta: "true"]
  [Text-content-length: <digits>]
  [Prop-content-length: <digits>]
  [Content-length: <digits>] <newline>

node-content -> <prop-content-length bytes of property-data>
                <text-content-length bytes of text or svndiff>
*/

// DumpFile encapsulates the key attributes of an svn dump file.
type DumpFile struct {
	Path       string
	DumpHeader *DumpHeader
	Revisions  []*Revision

	data   mmap.MMap
	reader *DumpReader
}

// Close releases resources held by the dump. Note: This will invalidate
// any slices referencing the data since it releases the mmap.
func (df *DumpFile) Close() error {
	df.reader.Close()
	if df.data != nil {
		data := df.data
		df.data = nil
		return data.Unmap()
	}
	return nil
}

// GetHead returns the highest revision number represented by the dump.
func (df *DumpFile) GetHead() Revnum {
	if len(df.Revisions) == 0 {
		return InvalidRevnum
	}
	return df.Revisions[len(df.Revisions)-1].Number
}

// checkValidSource tests that a mapped file looks like an actual, valid svn dump.
// Also checks that the user created the dump with "-F" by testing whether the
// first line has windows (CRLF) line endings. The OS adds these when svnadmin
// writes to the console and invalidates all of the headers by making the byte
// counts wrong (svnadmin is unaware these characters are being added).
func checkValidSource(source []byte) error {
	if !bytes.HasPrefix(source, []byte(VersionStringHeader+":")) {
		return errors.New("missing dump format header, not an svnadmin dump file?")
	}

	// Now check that there's a newline on this line, but don't look too far.
	limit := len(VersionStringHeader) * 2
	if limit > len(source) {
		limit = len(source)
	}
	lf := bytes.IndexByte(source[:limit], '\n')
	if lf < len(VersionStringHeader) {
		return errors.New("unrecognized dump file format, not an svnadmin dump file?")
	}

	// Great, just check there's no <cr> caused by outputting it to a CRLF console.
	if cr := bytes.IndexByte(source[:lf], '\r'); cr != -1 {
		return errors.New("windows line-ending translations detected, on windows use `svnadmin dump -F filename` rather than redirecting output")
	}

	return nil
}

// NewDumpFile creates a new DumpFile representation of a disk file,
// mapping it into memory and parsing the header.
func NewDumpFile(path string) (dump *DumpFile, err error) {
	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dump, err = newDumpFile(path, data)
	if err != nil {
		_ = data.Unmap()
		return nil, err
	}
	dump.data = data

	return dump, nil
}

// ParseDump wraps an in-memory dump. The slice must stay untouched while the
// DumpFile or anything loaded from it is in use.
func ParseDump(name string, data []byte) (*DumpFile, error) {
	return newDumpFile(name, data)
}

func newDumpFile(path string, data []byte) (*DumpFile, error) {
	if err := checkValidSource(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dump := &DumpFile{Path: path}
	dump.reader = NewDumpReader(data)
	header, err := NewDumpHeader(dump.reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dump.DumpHeader = header

	log("dump header: %+#v", *dump.DumpHeader)

	// Start the list big so it doesn't have to spend a lot of time growing.
	dump.Revisions = make([]*Revision, 0, 1024)

	return dump, nil
}

// NextRevision attempts to read the next revision from the dump file, or
// returns io.EOF if the end of file has been reached.
func (df *DumpFile) NextRevision() (*Revision, error) {
	rev, err := NewRevision(df.reader)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%s: %w", df.Path, err)
	}

	if len(df.Revisions) > 0 {
		if expect := df.GetHead() + 1; rev.Number != expect {
			return rev, fmt.Errorf("%s: expected revision %d, got %d", df.Path, expect, rev.Number)
		}
	}

	df.Revisions = append(df.Revisions, rev)

	return rev, nil
}

// LoadRevisions reads every remaining revision of the dump.
func (df *DumpFile) LoadRevisions() error {
	for {
		if _, err := df.NextRevision(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
