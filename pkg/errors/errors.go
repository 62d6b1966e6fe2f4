// Package errors provides structured error types for inksite.
//
// Every failure in a build is fatal, but not every failure means the same
// thing to the user. The codes defined here let the CLI and tests tell apart:
//
//   - CONFIG: the source tree does not have the shape a site needs
//     (ambiguous or missing root, Home, Logo or Posts)
//   - SOURCE_INTEGRITY: the fetched material is inconsistent (unknown id,
//     missing archive entry, unparsable page number)
//   - CACHE_CORRUPT: the build cache claims a document is rendered but its
//     output directory is missing or malformed
//   - IO: filesystem failures, always carrying the operation and path
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfig, "found %d folders named %q", n, name)
//	if errors.Is(err, errors.ErrCodeConfig) {
//	    // ...
//	}
//
//	err := errors.Wrap(errors.ErrCodeIO, cause, "create %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the failure taxonomy of a build.
const (
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeConfig          Code = "CONFIG"
	ErrCodeSourceIntegrity Code = "SOURCE_INTEGRITY"
	ErrCodeCacheCorrupt    Code = "CACHE_CORRUPT"
	ErrCodeIO              Code = "IO"
	ErrCodeRender          Code = "RENDER"
	ErrCodeInternal        Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IO wraps a filesystem failure with the operation and the path it touched.
func IO(cause error, op, path string) *Error {
	return Wrap(ErrCodeIO, cause, "%s %s", op, path)
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
