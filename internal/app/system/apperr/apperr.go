// internal/app/system/apperr/apperr.go
//
// Package apperr is the error taxonomy shared by stores, policies, and
// handlers. Lifecycle operations fail fast with one of four kinds; the HTTP
// layer maps kinds to status codes in exactly one place (system/respond).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an operation failure.
type Kind int

const (
	// KindInternal is the zero value: an unexpected failure (DB error, bug).
	KindInternal Kind = iota
	// KindNotFound: the target entity does not exist.
	KindNotFound
	// KindForbidden: authenticated but insufficient role/membership.
	KindForbidden
	// KindBadRequest: an invariant violation (last admin, default-list
	// deletion, expired token, malformed role).
	KindBadRequest
	// KindConflict: a duplicate (pending invitation, active membership).
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified error. Message is safe to show to API clients;
// the wrapped cause (if any) is for logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error with a client-safe message.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds a classified error with a formatted client-safe message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and client-safe message to an underlying cause.
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, or KindInternal if err is not
// classified. A nil err has no kind; callers should not ask.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message, or a generic one for
// unclassified errors.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// Is reports whether err is classified with the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps a kind to its HTTP status code.
func HTTPStatus(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
