package svn

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Headers are a simple RFC-822 style collection of headers as a map for
// ease of access, remembering the order they appeared in.
type Headers struct {
	index []string          // Preserve the order of the keys.
	table map[string]string // Map keys to values.
}

// NewHeaders reads a header block from the given reader, up to and including
// the blank line that terminates it. A reader that is already exhausted
// yields io.EOF.
func NewHeaders(dump *DumpReader) (h *Headers, err error) {
	h = &Headers{
		index: make([]string, 0, 8),
		table: make(map[string]string),
	}

	for {
		line, err := dump.PeekLine()
		if err != nil {
			if err == io.EOF && len(h.index) > 0 {
				return h, nil
			}
			return nil, err
		}

		// Extract the part before the newline.
		content := line[:len(line)-1]

		// Once we see a line with 0 length, we're at a newline denoting end of the block.
		if len(content) == 0 {
			dump.Newline()
			break
		}

		key, value, err := ReadHeader(content)
		if err != nil {
			return nil, err
		}
		if _, dupe := h.table[key]; !dupe {
			h.index = append(h.index, key)
		}
		h.table[key] = value

		if _, err := dump.Discard(len(line)); err != nil {
			return nil, err
		}
	}

	return h, nil
}

var headerSplit = []byte{':', ' '}

// ReadHeader splits a byte slice holding one RFC-822 style header line into
// its key and value.
func ReadHeader(line []byte) (key string, value string, err error) {
	colon := bytes.Index(line, headerSplit)
	if colon == -1 {
		lineText := strings.ReplaceAll(string(line), "\r", "\\r")
		return "", "", fmt.Errorf("malformed header line: %s", lineText)
	}

	key, value = string(line[:colon]), string(line[colon+len(headerSplit):])

	return key, value, nil
}

func (h *Headers) Has(key string) bool {
	_, ok := h.table[key]
	return ok
}

func (h *Headers) Int(key string) (int, error) {
	value, ok := h.table[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	ret, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %s", ErrInvalidHeader, key, err)
	}
	return ret, nil
}

// IntOr returns the integer value of key, or fallback when it is absent.
func (h *Headers) IntOr(key string, fallback int) (int, error) {
	if !h.Has(key) {
		return fallback, nil
	}
	return h.Int(key)
}

func (h *Headers) String(key string) (string, error) {
	value, ok := h.table[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	return value, nil
}

// Bool reports whether key is present with the value "true".
func (h *Headers) Bool(key string) bool {
	return h.table[key] == "true"
}

func (h *Headers) Len() int {
	return len(h.index)
}

// Keys returns the header names in the order they were read.
func (h *Headers) Keys() []string {
	return append([]string(nil), h.index...)
}
