package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error is a store error with an HTTP status code.
// Two errors match under errors.Is when their codes match, so sentinels
// stay comparable after WithMessage or WithCause.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Code:    e.Code,
		Message: msg,
		Err:     e.Err,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "document not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "document already exists",
	}

	// ErrRevisionConflict is returned when an IfRevision precondition fails
	// because another writer updated the document first.
	ErrRevisionConflict = &Error{
		Code:    http.StatusPreconditionFailed,
		Message: "document was modified concurrently",
	}

	ErrInvalidInput = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid input",
	}

	// ErrFailure wraps backend errors (I/O, corruption, closed database).
	ErrFailure = &Error{
		Code:    http.StatusServiceUnavailable,
		Message: "document store failure",
	}

	// ErrSubscriptionConsumed is yielded when a subscription is ranged over twice.
	ErrSubscriptionConsumed = &Error{
		Code:    http.StatusGone,
		Message: "subscription already consumed",
	}
)

// failure wraps a backend error as ErrFailure unless it already is a store
// error or a context error.
func failure(op string, err error) error {
	var storeErr *Error
	if errors.As(err, &storeErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return ErrFailure.WithCause(fmt.Errorf("%s: %w", op, err))
}
