package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

const (
	// Generic errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"

	// Gate setup errors
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// Per-request gate errors
	ErrCodeSessionMissing     ErrorCode = "SESSION_MISSING"
	ErrCodeIdentityUnresolved ErrorCode = "IDENTITY_UNRESOLVED"
	ErrCodeInvalidSecret      ErrorCode = "INVALID_SECRET"

	// Injected capability errors
	ErrCodeStoreFailure ErrorCode = "STORE_FAILURE"
	ErrCodeFlagFailure  ErrorCode = "FLAG_FAILURE"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an existing error with code and formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
// Returns ErrCodeInternal if the error is not a structured Error
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// GetDetails extracts the details from an error
// Returns nil if the error is not a structured Error
func GetDetails(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	// 400 Bad Request
	case ErrCodeInvalidInput:
		return http.StatusBadRequest

	// 404 Not Found
	case ErrCodeNotFound:
		return http.StatusNotFound

	// 503 Service Unavailable
	case ErrCodeStoreFailure, ErrCodeFlagFailure:
		return http.StatusServiceUnavailable

	// 500 Internal Server Error (default)
	// Configuration, session and secret errors are deployment bugs, not client errors.
	case ErrCodeInternal, ErrCodeConfiguration, ErrCodeSessionMissing,
		ErrCodeIdentityUnresolved, ErrCodeInvalidSecret:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors for frequently used errors

// Configuration creates a "configuration error" for a construction argument
func Configuration(field, reason string) *Error {
	return Newf(ErrCodeConfiguration, "invalid %s: %s", field, reason).WithDetail("field", field)
}

// SessionMissing reports a request that reached the gate without a session
func SessionMissing() *Error {
	return New(ErrCodeSessionMissing, "no session found")
}

// StoreFailure wraps an error returned by the enrollment store
func StoreFailure(err error, op string) *Error {
	return Wrapf(err, ErrCodeStoreFailure, "enrollment store %s failed", op)
}

// FlagFailure wraps an error returned by the session flag
func FlagFailure(err error, op string) *Error {
	return Wrapf(err, ErrCodeFlagFailure, "session flag %s failed", op)
}

// InvalidInput creates an "invalid input" error
func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason))
}

// InternalWrap wraps an internal error
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}
