// internal/core/errors_test.go
package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_ErrorWithCause(t *testing.T) {
	err := WrapError(ErrAPIRequest, errors.New("status 502"))
	if err.Error() != "[API_REQUEST_FAILED] backend request failed: status 502" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrSignalNotFound, ErrSignalNotFound) {
		t.Error("same error should match")
	}
	wrapped := fmt.Errorf("executing: %w", WrapError(ErrUnauthenticated, nil))
	if !errors.Is(wrapped, ErrUnauthenticated) {
		t.Error("wrapped error should match by code")
	}
	if errors.Is(ErrNotFound, ErrSignalNotFound) {
		t.Error("different codes should not match")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrStoreFailed, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrStoreFailed.Code {
		t.Error("code not preserved")
	}
}
