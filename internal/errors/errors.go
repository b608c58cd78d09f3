// Package errors defines the coded errors shared by the note store, the
// transaction ledger, the wallet and chat services and the HTTP layer.
//
// Repositories return coded errors and callers match them by code:
//
//	if errors.Is(err, domainerrors.ErrNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code returned to API clients.
type Code string

// Error codes.
const (
	CodeValidation    Code = "VALIDATION"
	CodeNotFound      Code = "NOT_FOUND"
	CodeForbidden     Code = "FORBIDDEN"
	CodeConflict      Code = "CONFLICT"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeProvider      Code = "PROVIDER"
	CodeNotConfigured Code = "NOT_CONFIGURED"
	CodeMalformedData Code = "MALFORMED_DATA"
	CodeInternal      Code = "INTERNAL"
)

// statuses lists codes in the order CodeForStatus prefers them.
var statuses = []struct {
	code   Code
	status int
}{
	{CodeValidation, http.StatusBadRequest},
	{CodeNotFound, http.StatusNotFound},
	{CodeForbidden, http.StatusForbidden},
	{CodeConflict, http.StatusConflict},
	{CodeRateLimited, http.StatusTooManyRequests},
	{CodeProvider, http.StatusBadGateway},
	{CodeNotConfigured, http.StatusServiceUnavailable},
	{CodeInternal, http.StatusInternalServerError},
	{CodeMalformedData, http.StatusInternalServerError},
}

// HTTPStatus maps the code to a response status. Unknown codes are 500.
func (c Code) HTTPStatus() int {
	for _, s := range statuses {
		if s.code == c {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// CodeForStatus maps a response status back to a code. Statuses that have
// no code of their own are internal; 422 counts as validation.
func CodeForStatus(status int) Code {
	if status == http.StatusUnprocessableEntity {
		return CodeValidation
	}
	for _, s := range statuses {
		if s.status == status {
			return s.code
		}
	}
	return CodeInternal
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Error is a coded error with an optional cause and client-facing details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code, so sentinels compare by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPStatus returns the response status for the error's code.
func (e *Error) HTTPStatus() int { return e.Code.HTTPStatus() }

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.cause = err
	return &c
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	c := *e
	c.Details = details
	return &c
}

// Sentinels for errors.Is.
var (
	ErrValidation    = &Error{Code: CodeValidation, Message: "invalid input"}
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "not found"}
	ErrForbidden     = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrConflict      = &Error{Code: CodeConflict, Message: "conflict"}
	ErrProvider      = &Error{Code: CodeProvider, Message: "provider failed"}
	ErrNotConfigured = &Error{Code: CodeNotConfigured, Message: "not configured"}
	ErrMalformedData = &Error{Code: CodeMalformedData, Message: "malformed stored value"}
	ErrInternal      = &Error{Code: CodeInternal, Message: "internal error"}
)

func newError(code Code, msg string) *Error { return &Error{Code: code, Message: msg} }

// Validation reports bad caller input.
func Validation(msg string) *Error { return newError(CodeValidation, msg) }

// Validationf is Validation with a formatted message.
func Validationf(format string, args ...any) *Error {
	return newError(CodeValidation, fmt.Sprintf(format, args...))
}

// ValidationWithDetails reports bad input with per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	e := newError(CodeValidation, msg)
	e.Details = details
	return e
}

// NotFoundf reports a missing note or record.
func NotFoundf(format string, args ...any) *Error {
	return newError(CodeNotFound, fmt.Sprintf(format, args...))
}

// Forbidden reports an account acting on something it does not own.
func Forbidden(msg string) *Error { return newError(CodeForbidden, msg) }

// Conflict reports a state clash such as buying a note twice.
func Conflict(msg string) *Error { return newError(CodeConflict, msg) }

// NotConfigured reports an optional collaborator that was never set up.
func NotConfigured(msg string) *Error { return newError(CodeNotConfigured, msg) }

// Internal reports a server-side failure.
func Internal(msg string) *Error { return newError(CodeInternal, msg) }

// Provider wraps a failure reported by the wallet provider or the
// inference API.
func Provider(err error, msg string) *Error {
	return newError(CodeProvider, msg).WithCause(err)
}

// MalformedData wraps a stored value that failed to decode.
func MalformedData(err error, msg string) *Error {
	return newError(CodeMalformedData, msg).WithCause(err)
}

// Wrapf wraps err under code with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return newError(code, fmt.Sprintf(format, args...)).WithCause(err)
}
