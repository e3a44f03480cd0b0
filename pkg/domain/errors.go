package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can pick the right recovery path.
type ErrorKind string

const (
	// KindValidation marks malformed structured input or output. Recoverable
	// by retry or fallback.
	KindValidation ErrorKind = "validation"
	// KindBusinessRule marks a violated tool precondition. Reported to the
	// caller, never retried automatically.
	KindBusinessRule ErrorKind = "business_rule"
	// KindTimeout marks an external capability exceeding its bound.
	KindTimeout ErrorKind = "timeout"
	// KindConflict marks an idempotency key collision. Resolved by returning
	// the prior result, not surfaced to the end user as an error.
	KindConflict ErrorKind = "conflict"
	// KindInternal marks anything unanticipated. Logged with a correlation
	// identifier; internal detail never leaks to the caller.
	KindInternal ErrorKind = "internal"
)

// ErrNotFound is returned by repositories when an entity does not exist.
var ErrNotFound = errors.New("not found")

// Error is the typed error carried across component boundaries.
type Error struct {
	Kind          ErrorKind
	Message       string
	CorrelationID string
	Err           error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a typed error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps err with a kind and message.
func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the error kind, defaulting to KindInternal for untyped
// errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
