package dav

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidElement    = errors.New("invalid XML element")
	ErrMissingAttribute  = errors.New("missing required attribute")
	ErrRequestFailed     = errors.New("request failed")
	ErrMalformedResponse = errors.New("malformed response")
	ErrReportClosed      = errors.New("report already finished or aborted")
)

// GrammarError identifies an element that appeared somewhere the REPORT
// grammar does not allow it.
type GrammarError struct {
	Parent string
	Child  string
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("%s: <%s> is not allowed inside <%s>", ErrInvalidElement, e.Child, e.Parent)
}

func (e *GrammarError) Unwrap() error {
	return ErrInvalidElement
}
