// Package apperr defines the error taxonomy surfaced by the chat core.
// Every failure leaving a service carries a stable code plus a
// human-readable message; handlers map codes onto HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers.
type Code string

const (
	CodeValidation Code = "validation" // malformed/missing input, user-correctable
	CodeNotFound   Code = "not_found"  // referenced entity absent or already deleted
	CodeForbidden  Code = "forbidden"  // actor lacks the required role
	CodeConflict   Code = "conflict"   // invariant violation, e.g. already a member
	CodeUpstream   Code = "upstream"   // repository or attachment-store call failed
)

// Error is the concrete error type used across services.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on code: two *Errors are equal when their
// codes match, so sentinels like apperr.NotFound("") work as targets.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func Validation(msg string) *Error { return &Error{Code: CodeValidation, Message: msg} }
func NotFound(msg string) *Error   { return &Error{Code: CodeNotFound, Message: msg} }
func Forbidden(msg string) *Error  { return &Error{Code: CodeForbidden, Message: msg} }
func Conflict(msg string) *Error   { return &Error{Code: CodeConflict, Message: msg} }

// Upstream wraps a failed repository or attachment-store call.
func Upstream(msg string, err error) *Error {
	return &Error{Code: CodeUpstream, Message: msg, Err: err}
}

// CodeOf extracts the code from err, defaulting to CodeUpstream for
// errors that did not originate in this package.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUpstream
}

// HTTPStatus maps a code onto the HTTP status used by the REST surface.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
