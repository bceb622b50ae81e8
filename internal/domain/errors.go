package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EINVALID      = "invalid"        // Invalid input or validation failure
	ENOTFOUND     = "not_found"      // Resource not found
	ECONFLICT     = "conflict"       // Resource conflict (e.g. save already in flight)
	EFETCH        = "fetch_failed"   // Could not read the current persisted document
	EWRITE        = "write_failed"   // The single atomic update call failed
	EINVALIDRES   = "invalid_result" // A downstream step produced an unusable document
	EINTERNAL     = "internal"       // Internal server error
	ENOTIMPL      = "not_impl"       // Not implemented
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g. "report.save")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code, op, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		// For internal errors, return generic message
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Convenience constructors for common error types

// NotFound creates a not found error.
func NotFound(op, resource, id string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s with ID %q not found", resource, id),
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// FetchFailed wraps a failure to read the current persisted document.
func FetchFailed(err error, op string) *Error {
	return &Error{
		Code:    EFETCH,
		Op:      op,
		Message: "failed to fetch current report document",
		Err:     err,
	}
}

// WriteFailed wraps a failure of the single atomic update call.
func WriteFailed(err error, op string) *Error {
	return &Error{
		Code:    EWRITE,
		Op:      op,
		Message: "failed to write report document",
		Err:     err,
	}
}

// InvalidResult marks a save step that produced an unusable document.
func InvalidResult(err error, op, message string) *Error {
	return &Error{
		Code:    EINVALIDRES,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
