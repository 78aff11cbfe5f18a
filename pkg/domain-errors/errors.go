// Package domainerrors provides code-tagged errors for the compliance core.
//
// Services return these so transport can translate them into HTTP responses
// without inspecting error strings. Infrastructure facts (row missing, conflict)
// live in pkg/platform/sentinel; this package is for errors that cross the
// service boundary with a classification attached.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for boundary translation.
type Code string

const (
	// CodeBadRequest marks malformed or missing input to a core operation.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks a reference to an entity that does not exist.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized marks a missing or invalid actor credential.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks a failed enforcement gate. The error usually carries
	// structured detail (see enforcement.GateError) alongside this code.
	CodeForbidden Code = "forbidden"
	// CodeConflict marks a lost optimistic check, e.g. a correction race.
	CodeConflict Code = "conflict"
	// CodeIntegrity marks an attempt to mutate append-only data or a broken
	// correction chain. Never downgrade or swallow this code.
	CodeIntegrity Code = "integrity_violation"
	// CodeTimeout marks a cancelled or deadline-exceeded operation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks storage or infrastructure failure.
	CodeInternal Code = "internal_error"
)

// Error is a code-tagged domain error. Construct via New or Wrap.
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

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for untagged
// errors so unknown failures never leak detail to clients.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeIntegrity, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
