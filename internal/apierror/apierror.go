// Package apierror defines the API error type and the single exit
// point that renders every failure into one response shape.
package apierror

import (
	"fmt"
	"net/http"
)

// Well-known error codes returned to clients.
const (
	CodeMissingAuthHeader = "MISSING_AUTH_HEADER"
	CodeInvalidAuthFormat = "INVALID_AUTH_FORMAT"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeServerConfigError = "SERVER_CONFIG_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeCORSError         = "CORS_ERROR"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeNotFound          = "NOT_FOUND"
	CodeValidationError   = "VALIDATION_ERROR"
	CodeInternalError     = "INTERNAL_ERROR"
)

// Error is a classified API failure. Operational errors are expected
// conditions whose message is safe to reveal to the client verbatim;
// everything else is masked outside development mode.
type Error struct {
	// Status is the HTTP status code for the response.
	Status int

	// Code is the machine-readable error code.
	Code string

	// Message is the human-readable error message.
	Message string

	// Details carries optional structured context for the client.
	Details any

	// Operational distinguishes expected failures from programming
	// errors.
	Operational bool

	// Cause is the underlying error, if any. Never rendered to the
	// client; logged server-side.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetails attaches structured details and returns the error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// WithCause attaches an underlying error and returns the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// New creates an operational error with the given status, code, and
// message.
func New(status int, code, message string) *Error {
	return &Error{
		Status:      status,
		Code:        code,
		Message:     message,
		Operational: true,
	}
}

// BadRequest creates a 400 validation error.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeValidationError, message)
}

// Unauthorized creates a 401 error with the given code.
func Unauthorized(code, message string) *Error {
	return New(http.StatusUnauthorized, code, message)
}

// Forbidden creates a 403 error with the given code.
func Forbidden(code, message string) *Error {
	return New(http.StatusForbidden, code, message)
}

// NotFound creates a 404 error.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message)
}

// TooManyRequests creates a 429 rate-limit error.
func TooManyRequests(message string) *Error {
	return New(http.StatusTooManyRequests, CodeRateLimitExceeded, message)
}

// Internal creates a 500 error marked non-operational, so its message
// is masked outside development mode.
func Internal(message string) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternalError,
		Message: message,
	}
}

// ServerConfig creates a 500 configuration error. The condition is a
// startup misconfiguration, never a client fault, so the message stays
// generic and the real cause is logged server-side.
func ServerConfig(message string) *Error {
	return New(http.StatusInternalServerError, CodeServerConfigError, message)
}
