// Package store implements the on-disk byte-file namespace, the binary
// stream codecs, cross-process locking, and compound-file packing that the
// segmented index engine is built on.
package store

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind partitions every *Error into five kinds.
// Callers that need to distinguish kinds should use errors.Cause
// (github.com/pkg/errors) to unwrap a wrapped error and then
// type-switch, rather than matching on message substrings.
type ErrorKind int

const (
	// InvalidArgument signals malformed input from the caller.
	InvalidArgument ErrorKind = iota
	// OutOfRange signals a document id at or beyond docCount.
	OutOfRange
	// InvalidFileFormat signals an unrecognized format marker or bad magic.
	InvalidFileFormat
	// Runtime signals lock contention, IO failure, missing files, or an
	// unsupported configuration such as per-field norm files.
	Runtime
	// QueryParserError signals a query syntax error with a character
	// position.
	QueryParserError
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case OutOfRange:
		return "OutOfRange"
	case InvalidFileFormat:
		return "InvalidFileFormat"
	case Runtime:
		return "Runtime"
	case QueryParserError:
		return "QueryParserError"
	default:
		return "Unknown"
	}
}

// Error is the concrete type behind the errors that packages store and
// index and the orchestrator originate, so their callers can catch
// generically on *Error, then branch on Kind for kind-specific handling.
// Query syntax errors are not *Error: package search returns its own
// *search.QueryParserError, and lucenecfg its own InvalidOperatorError.
type Error struct {
	Kind ErrorKind
	msg  string
}

func (e *Error) Error() string { return e.msg }

// New builds a *Error of the given kind with a formatted message.
func New(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches operation context to err while preserving its Kind for a
// later errors.Cause/AsKind lookup. Used at IO boundaries (file open,
// read, write) so a caller sees both "what we were doing" and "what the
// OS said".
func Wrap(err error, kind ErrorKind, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(&Error{Kind: kind, msg: err.Error()}, fmt.Sprintf(format, args...))
}

// AsKind reports whether err (or any error in its Cause chain) is a
// *Error of the given kind.
func AsKind(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	e, ok := errors.Cause(err).(*Error)
	return ok && e.Kind == kind
}
