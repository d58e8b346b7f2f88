package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why fetching a map failed.
type ErrorKind int

const (
	// KindTransport is a network or connection level failure.
	KindTransport ErrorKind = iota + 1

	// KindTextDecode means a response body could not be decoded as text.
	KindTextDecode

	// KindNotFound means the response lacked the expected fields.
	KindNotFound

	// KindIO is a local filesystem failure (create, open, write, remove).
	KindIO

	// KindUnzip means the archive was malformed or unreadable.
	KindUnzip

	// KindExecution is reserved for a broken task runner. It is never
	// produced by a failed download.
	KindExecution
)

// String returns the name used in logs and failure listings.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "TransportFailed"
	case KindTextDecode:
		return "TextDecodeFailed"
	case KindNotFound:
		return "ItemNotFound"
	case KindIO:
		return "IOFailed"
	case KindUnzip:
		return "UnzipFailed"
	case KindExecution:
		return "ExecutionFault"
	default:
		return "Unknown"
	}
}

// Error is the error type returned by every fetch stage. Kind is the closed
// classification; Err keeps the underlying cause for logging.
type Error struct {
	Kind ErrorKind
	Err  error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrTransportFailed  = &Error{Kind: KindTransport}
	ErrTextDecodeFailed = &Error{Kind: KindTextDecode}
	ErrItemNotFound     = &Error{Kind: KindNotFound}
	ErrIOFailed         = &Error{Kind: KindIO}
	ErrUnzipFailed      = &Error{Kind: KindUnzip}
	ErrExecutionFault   = &Error{Kind: KindExecution}
)

// NewError wraps err with the given kind.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf formats a cause and wraps it with the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
