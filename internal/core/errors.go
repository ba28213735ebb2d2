// internal/core/errors.go
package core

import "fmt"

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

// Is matches by code.
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

// Predefined errors
var (
	// Backend API errors
	ErrAPIRequest = &Error{Code: "API_REQUEST_FAILED", Message: "backend request failed"}
	ErrAPIDecode  = &Error{Code: "API_DECODE_FAILED", Message: "unexpected backend response"}

	// Session errors
	ErrUnauthenticated = &Error{Code: "UNAUTHENTICATED", Message: "no valid session token"}

	// Signal errors
	ErrSignalNotFound  = &Error{Code: "SIGNAL_NOT_FOUND", Message: "signal not found"}
	ErrAlreadyExecuted = &Error{Code: "ALREADY_EXECUTED", Message: "signal already executed"}
	ErrInvalidOrder    = &Error{Code: "INVALID_ORDER", Message: "invalid execution request"}

	// Report errors
	ErrInvalidReport = &Error{Code: "INVALID_REPORT", Message: "report must be a PDF file"}

	// Local storage errors
	ErrNotFound     = &Error{Code: "NOT_FOUND", Message: "key not found"}
	ErrCacheCorrupt = &Error{Code: "CACHE_CORRUPT", Message: "cached value could not be decoded"}
	ErrStoreFailed  = &Error{Code: "STORE_FAILED", Message: "local store operation failed"}

	// Notifier errors
	ErrNotifierFailed = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// LLM errors
	ErrLLMFailed = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
)
