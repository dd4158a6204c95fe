package prefetch

import (
	"github.com/kbukum/prefetchkit/errors"
)

// IsItemFailure reports whether err is a per-item failure, after which the
// session can keep yielding.
func IsItemFailure(err error) bool {
	switch errors.CodeOf(err) {
	case errors.ErrCodeItemFailed, errors.ErrCodeTaskTimeout:
		return true
	default:
		return false
	}
}

// IsSessionFailure reports whether err ended the session.
func IsSessionFailure(err error) bool {
	switch errors.CodeOf(err) {
	case errors.ErrCodeResourceExhausted, errors.ErrCodeSourceFailed:
		return true
	default:
		return false
	}
}

// FailedPosition returns the stream position an item failure belongs to.
func FailedPosition(err error) (int, bool) {
	if !IsItemFailure(err) {
		return 0, false
	}
	appErr, _ := errors.AsAppError(err)
	pos, ok := appErr.Details["position"].(int)
	return pos, ok
}
