// internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Invalid returns a validation error describing a single bad field.
func Invalid(format string, args ...any) *Error {
	return WrapError(ErrValidation, fmt.Errorf(format, args...))
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Predefined errors
var (
	// Record errors
	ErrNotFound    = &Error{Code: "NOT_FOUND", Message: "record not found"}
	ErrValidation  = &Error{Code: "VALIDATION_FAILED", Message: "validation failed"}
	ErrConflict    = &Error{Code: "CONFLICT", Message: "record already exists"}
	ErrStoreFailed = &Error{Code: "STORE_FAILED", Message: "backing store failed"}

	// Market data errors
	ErrUpstreamFailed = &Error{Code: "UPSTREAM_FAILED", Message: "market data provider failed"}
	ErrNoData         = &Error{Code: "NO_DATA", Message: "no data available"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Auth errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid api key"}

	// LLM errors
	ErrLLMFailed   = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
	ErrLLMDisabled = &Error{Code: "LLM_DISABLED", Message: "no LLM provider configured"}
)
