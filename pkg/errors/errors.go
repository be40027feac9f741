// Package errors provides structured error types for ndskl.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the parser, the writer and the CLI
//   - Machine-readable error codes for programmatic handling
//   - Line-level context for diagnosing malformed skeleton files
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - MALFORMED_*: The input text does not follow the NDskl_ascii grammar
//   - TRUNCATED_INPUT / TRAILING_DATA: The input is shorter or longer than declared
//   - INVALID_*: Option or reference validation failures
//   - WRITE_FAILURE / READ_FAILURE: Container I/O failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.AtLine(errors.ErrCodeMalformedNumber, 12, "expected integer, found %q", tok)
//	if errors.Is(err, errors.ErrCodeMalformedNumber) {
//	    // Handle parse error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeWriteFailure, origErr, "write dataset %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Grammar errors
	ErrCodeMalformedHeader  Code = "MALFORMED_HEADER"
	ErrCodeMalformedSection Code = "MALFORMED_SECTION"
	ErrCodeMalformedNumber  Code = "MALFORMED_NUMBER"
	ErrCodeMalformedRecord  Code = "MALFORMED_RECORD" // wrong token count on a fixed-arity line
	ErrCodeTruncatedInput   Code = "TRUNCATED_INPUT"
	ErrCodeTrailingData     Code = "TRAILING_DATA"
	ErrCodeFieldCount       Code = "FIELD_COUNT_MISMATCH"

	// Validation errors
	ErrCodeInvalidReference Code = "INVALID_REFERENCE"
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidPath      Code = "INVALID_PATH"

	// Container errors
	ErrCodeWriteFailure Code = "WRITE_FAILURE"
	ErrCodeReadFailure  Code = "READ_FAILURE"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code, an optional input line and an
// optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Line    int    // 1-based input line, 0 when not tied to a line
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
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

// AtLine creates a new Error tied to a 1-based input line.
func AtLine(code Code, line int, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
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

// GetLine extracts the input line number from an error, if available.
func GetLine(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Line
	}
	return 0
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Line > 0 {
			return fmt.Sprintf("line %d: %s", e.Line, e.Message)
		}
		return e.Message
	}
	return err.Error()
}
