// Package apperror defines the typed errors returned by the service layer.
// Each error carries a Kind that the HTTP layer maps to a status code, so
// services never deal with transport concerns.
package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindBadRequest
	KindAlreadyExists
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBadRequest:
		return "bad_request"
	case KindAlreadyExists:
		return "already_exists"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindBadRequest, KindAlreadyExists:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// Error is the error type produced by services.
//
// Message is safe to show to clients. Err holds the underlying cause and is
// only ever logged. Fields carries the validation messages, one per
// offending field, each prefixed with the field name.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. A target with an
// empty message matches any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newError(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

func Validation(msg string, fields []string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func BadRequest(msg string) *Error    { return newError(KindBadRequest, msg) }
func AlreadyExists(msg string) *Error { return newError(KindAlreadyExists, msg) }
func Unauthorized(msg string) *Error  { return newError(KindUnauthorized, msg) }
func Forbidden(msg string) *Error     { return newError(KindForbidden, msg) }
func NotFound(msg string) *Error      { return newError(KindNotFound, msg) }

// Internal wraps an unexpected failure. The cause is kept for logging.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
