package scenefile

import (
	"fmt"

	"golang.org/x/xerrors"
)

// ParseError points at the scene file line that could not be understood.
type ParseError struct {
	File    string
	Line    int
	Message string

	inner error
	frame xerrors.Frame
}

func newParseError(file string, line int, message string, inner error) *ParseError {
	return &ParseError{
		File:    file,
		Line:    line,
		Message: message,
		inner:   inner,
		frame:   xerrors.Caller(1),
	}
}

func (e *ParseError) Error() string {
	if e.inner == nil {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s: %v", e.File, e.Line, e.Message, e.inner)
}

func (e *ParseError) Format(f fmt.State, c rune) { // implements fmt.Formatter
	xerrors.FormatError(e, f, c)
}

func (e *ParseError) FormatError(p xerrors.Printer) error { // implements xerrors.Formatter
	p.Print(fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message))
	if p.Detail() {
		e.frame.Format(p)
	}
	return e.inner
}

func (e *ParseError) Unwrap() error {
	return e.inner
}
