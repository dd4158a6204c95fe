package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Item-level errors. These never end a session.
const (
	// ErrCodeItemFailed indicates the item producer returned an error for a key.
	ErrCodeItemFailed ErrorCode = "ITEM_FAILED"
	// ErrCodeTaskTimeout indicates a task exceeded the configured per-task bound.
	ErrCodeTaskTimeout ErrorCode = "TASK_TIMEOUT"
	// ErrCodePanic indicates the producer panicked inside a worker.
	ErrCodePanic ErrorCode = "PANIC"
)

// Session-level errors. These are terminal for the session that raised them.
const (
	// ErrCodeResourceExhausted indicates the worker pool could not accept a task.
	ErrCodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"
	// ErrCodeSourceFailed indicates the key source failed while drawing a key.
	ErrCodeSourceFailed ErrorCode = "SOURCE_FAILED"
	// ErrCodeSessionClosed indicates the session was used after Close.
	ErrCodeSessionClosed ErrorCode = "SESSION_CLOSED"
)

// Validation and internal errors
const (
	// ErrCodeInvalidConfig indicates configuration failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTaskTimeout:       true,
	ErrCodeResourceExhausted: true,
	ErrCodeItemFailed:        false,
	ErrCodeInternal:          false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
