// Package apperr defines the error kinds surfaced to API clients
//
// Domain packages declare their sentinel errors with New so the request
// boundary can map any wrapped error to a stable kind without knowing the
// package that produced it
package apperr

import "errors"

// Kind is a machine-readable error category
type Kind string

const (
	KindInternal        Kind = "INTERNAL_ERROR"
	KindBadRequest      Kind = "BAD_REQUEST"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindInvalidState    Kind = "INVALID_STATE"
	KindUpstream        Kind = "UPSTREAM_FAILURE"
)

// Error is a categorized error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates a categorized error with a message
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind to an underlying error
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first categorized error in the chain,
// or KindInternal when there is none
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message for err. Uncategorized errors
// never leak their text
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
