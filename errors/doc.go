// Package errors provides the structured error type used across prefetchkit.
//
// Every failure that crosses a package boundary is an *AppError carrying a
// machine-readable code, a human-readable message, optional details and the
// underlying cause. AppError unwraps to its cause, so the standard library
// errors.Is and errors.As keep working against producer errors.
//
// The codes map onto the loader's failure taxonomy:
//
//   - ITEM_FAILED: the item producer failed for one key (session stays usable)
//   - TASK_TIMEOUT: a task did not resolve within the configured bound
//   - RESOURCE_EXHAUSTED: the worker pool refused a submission (fatal for the session)
//   - SOURCE_FAILED: the key source reported an error (fatal for the session)
//   - SESSION_CLOSED: the session was used after it was abandoned
//   - INVALID_CONFIG: configuration failed validation
//   - PANIC: a worker panicked while producing an item
package errors
