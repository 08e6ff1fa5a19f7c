package svn

import (
	"errors"
)

// Dump parsing.
var (
	ErrMissingField       = errors.New("missing required field")
	ErrMissingNewline     = errors.New("missing newline")
	ErrInvalidHeader      = errors.New("invalid header")
	ErrBadFormatHeader    = errors.New("bad format header")
	ErrBadRevisionHeader  = errors.New("bad revision header")
	ErrUnknownNodeKind    = errors.New("unknown node kind")
	ErrUnknownNodeAction  = errors.New("unknown node action")
	ErrDumpHeaderMismatch = errors.New("dump header mismatch")
)

// Storage engine.
var (
	ErrNoSuchRevision = errors.New("no such revision")
	ErrPathNotFound   = errors.New("path not found")
	ErrNotDirectory   = errors.New("not a directory")
	ErrNotFile        = errors.New("not a file")
	ErrPathExists     = errors.New("path already exists")
)

// Delta decoding.
var (
	ErrSvndiffHeader    = errors.New("svndiff data has invalid header")
	ErrSvndiffCorrupt   = errors.New("svndiff data is corrupt")
	ErrSvndiffTruncated = errors.New("svndiff data ends mid-window")
	ErrWindowInvalid    = errors.New("delta window is invalid")
)

// ErrEditorMisuse is returned by a checked editor when a driver breaks the
// open/close discipline of an edit.
var ErrEditorMisuse = errors.New("editor misuse")
