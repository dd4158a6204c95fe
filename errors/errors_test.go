package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestAppError_New_Retryable(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeTaskTimeout, true},
		{ErrCodeResourceExhausted, true},
		{ErrCodeItemFailed, false},
		{ErrCodeSourceFailed, false},
		{ErrCodeInternal, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			err := New(tc.code, "msg")
			if err.Retryable != tc.want {
				t.Errorf("New(%s).Retryable = %v, want %v", tc.code, err.Retryable, tc.want)
			}
		})
	}
}

func TestAppError_ErrorString(t *testing.T) {
	err := New(ErrCodeItemFailed, "boom")
	if got := err.Error(); got != "ITEM_FAILED: boom" {
		t.Errorf("unexpected error string %q", got)
	}

	err = err.WithCause(stderrors.New("disk"))
	if !strings.Contains(err.Error(), "cause: disk") {
		t.Errorf("expected cause in error string, got %q", err.Error())
	}
}

func TestItemFailed_UnwrapsToCause(t *testing.T) {
	cause := stderrors.New("feature file missing")
	err := ItemFailed(2, cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the producer error")
	}
	if err.Details["position"] != 2 {
		t.Errorf("expected position=2, got %v", err.Details["position"])
	}
	if err.Retryable {
		t.Error("ItemFailed should not be retryable")
	}
}

func TestAppError_IsMatchesCode(t *testing.T) {
	wrapped := fmt.Errorf("session: %w", ResourceExhausted("worker pool", stderrors.New("closed")))

	if !stderrors.Is(wrapped, New(ErrCodeResourceExhausted, "")) {
		t.Error("expected code match through wrapping")
	}
	if stderrors.Is(wrapped, New(ErrCodeSourceFailed, "")) {
		t.Error("did not expect a match on a different code")
	}
}

func TestTaskTimeout_Details(t *testing.T) {
	err := TaskTimeout(4, 250*time.Millisecond)
	if err.Code != ErrCodeTaskTimeout {
		t.Errorf("expected TASK_TIMEOUT, got %s", err.Code)
	}
	if err.Details["timeout"] != "250ms" {
		t.Errorf("expected timeout=250ms, got %v", err.Details["timeout"])
	}
	if !err.Retryable {
		t.Error("TaskTimeout should be retryable")
	}
}

func TestInvalidConfig_EmptyField(t *testing.T) {
	err := InvalidConfig("", "bad")
	if _, ok := err.Details["field"]; ok {
		t.Error("expected no 'field' key in details when field is empty")
	}
	err = InvalidConfig("workers", "must be >= 1")
	if err.Details["field"] != "workers" {
		t.Errorf("expected field=workers, got %v", err.Details["field"])
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(stderrors.New("plain")); got != "" {
		t.Errorf("expected empty code for plain error, got %s", got)
	}
	if got := CodeOf(fmt.Errorf("wrap: %w", SessionClosed())); got != ErrCodeSessionClosed {
		t.Errorf("expected SESSION_CLOSED, got %s", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(stderrors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
	if !IsRetryable(TaskTimeout(0, time.Second)) {
		t.Error("timeouts are retryable")
	}
}

func TestToResponse(t *testing.T) {
	resp := NotFound("session").ToResponse()
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", resp.Error.Code)
	}
	if resp.Error.Details["resource"] != "session" {
		t.Errorf("expected resource=session, got %v", resp.Error.Details["resource"])
	}
}
