// Package apperr classifies failures into the small set of outcomes an API
// client can act on. Anything not classified here is a storage or internal
// failure and is reported to clients as a generic 500.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindUnauthenticated
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a client-facing failure. Message is safe to return verbatim.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthenticated uses a fixed message unless one is supplied.
func Unauthenticated(message string) error {
	if message == "" {
		message = "not authenticated"
	}
	return &Error{Kind: KindUnauthenticated, Message: message}
}

// InvalidCredentials is the single answer for every failed login.
func InvalidCredentials() error {
	return Unauthenticated("invalid credentials")
}

// WithCause attaches an underlying error for logs without changing the
// client-visible message.
func WithCause(err error, cause error) error {
	var ae *Error
	if errors.As(err, &ae) {
		return &Error{Kind: ae.Kind, Message: ae.Message, Cause: cause}
	}
	return err
}

// KindOf returns the classification of err, or 0 for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Status maps err to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message for err. Unclassified errors get
// fallback, so storage details never leak to the client.
func Message(err error, fallback string) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return fallback
}

// IsTimeout reports whether err came from an expired request deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
