package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an *AppError with the same code. This lets
// callers match on sentinel AppErrors with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// ItemFailed wraps a producer failure for the item at position.
func ItemFailed(position int, cause error) *AppError {
	return &AppError{
		Code: ErrCodeItemFailed, Message: fmt.Sprintf("item at position %d failed", position),
		Details: map[string]any{"position": position}, Cause: cause,
	}
}

// TaskTimeout creates an error for a task that did not resolve in time.
func TaskTimeout(position int, bound time.Duration) *AppError {
	return &AppError{
		Code: ErrCodeTaskTimeout, Message: fmt.Sprintf("item at position %d did not resolve within %s", position, bound),
		Retryable: true,
		Details:   map[string]any{"position": position, "timeout": bound.String()},
	}
}

// ResourceExhausted creates an error for a pool that refused a submission.
func ResourceExhausted(resource string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeResourceExhausted, Message: fmt.Sprintf("the %s could not accept more work", resource),
		Retryable: true,
		Details:   map[string]any{"resource": resource}, Cause: cause,
	}
}

// SourceFailed creates an error for a key source that failed mid-stream.
func SourceFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeSourceFailed, Message: "the key source failed", Cause: cause,
	}
}

// SessionClosed creates an error for a session used after Close.
func SessionClosed() *AppError {
	return &AppError{Code: ErrCodeSessionClosed, Message: "the session has been closed"}
}

// InvalidConfig creates an error for a configuration field that failed validation.
func InvalidConfig(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidConfig, Message: fmt.Sprintf("invalid configuration: %s", reason),
		Details: details,
	}
}

// Panic converts a recovered worker panic into an error.
func Panic(value any, cause error) *AppError {
	return &AppError{
		Code: ErrCodePanic, Message: fmt.Sprintf("producer panicked: %v", value),
		Cause: cause,
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource string) *AppError {
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("no %s is available", resource),
		Details: map[string]any{"resource": resource},
	}
}

// Internal creates a new AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred", Cause: cause,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// IsRetryable reports whether err carries a retryable AppError.
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	return false
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
