package store

import (
	"errors"
	"fmt"
)

// Kind classifies a store-level failure so callers above (the scheduler,
// the HTTP layer) can map it to a stable outcome without string matching.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindInvalid     Kind = "invalid"
	KindUnavailable Kind = "unavailable"
	KindInternal    Kind = "internal"
)

// Error is the typed error every Store and Scheduler operation returns
// for expected failure modes. Code is a stable dotted identifier
// (e.g. "task.wrong_state") suitable for API clients to switch on; Message
// is human readable.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func wrapErr(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, cause: cause}
}

// NotFound builds a KindNotFound error for the named entity.
func NotFound(entity, id string) *Error {
	return newErr(KindNotFound, entity+".not_found", fmt.Sprintf("%s %q not found", entity, id))
}

// Conflict builds a KindConflict error with a caller-supplied code.
func Conflict(code, message string) *Error {
	return newErr(KindConflict, code, message)
}

// Invalid builds a KindInvalid error with a caller-supplied code.
func Invalid(code, message string) *Error {
	return newErr(KindInvalid, code, message)
}

// Internal wraps an unexpected error, or returns nil if cause is nil —
// safe to use as `return x, Internal(rows.Err())` at the end of a scan loop.
func Internal(cause error) error {
	if cause == nil {
		return nil
	}
	return wrapErr(KindInternal, "internal", "unexpected storage error", cause)
}

// AsError recovers a *Error from err or from any error it wraps, if any.
func AsError(err error) (*Error, bool) {
	var se *Error
	ok := errors.As(err, &se)
	return se, ok
}
