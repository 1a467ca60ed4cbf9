package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Retryable(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{ErrCodeTimeout, true},
		{ErrCodeExecutorFailed, true},
		{ErrCodeNotFound, false},
		{ErrCodeGraphInvalid, false},
		{ErrCodeInsufficientVotes, false},
	}
	for _, tt := range tests {
		err := New(tt.code, "msg", http.StatusTeapot)
		if err.Retryable != tt.retryable {
			t.Errorf("%s: retryable = %v, want %v", tt.code, err.Retryable, tt.retryable)
		}
		if err.HTTPStatus != http.StatusTeapot {
			t.Errorf("%s: status = %d, want %d", tt.code, err.HTTPStatus, http.StatusTeapot)
		}
	}
}

func TestAppError_NotFound_EmptyID(t *testing.T) {
	err := NotFound("run", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %d", err.HTTPStatus)
	}
}

func TestAppError_ErrorString(t *testing.T) {
	err := RunNotFound("r1")
	if got := err.Error(); got != "RUN_NOT_FOUND: run r1 not found" {
		t.Errorf("unexpected message %q", got)
	}

	wrapped := GraphInvalid(fmt.Errorf("cycle"))
	if !strings.Contains(wrapped.Error(), "cause: cycle") {
		t.Errorf("expected cause in message, got %q", wrapped.Error())
	}
}

func TestAppError_Unwrap(t *testing.T) {
	sentinel := stderrors.New("boom")
	err := ExecutorFailed("shell", sentinel)
	if !stderrors.Is(err, sentinel) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Details["executor"] != "shell" {
		t.Errorf("expected executor=shell, got %v", err.Details["executor"])
	}
}

func TestAppError_InsufficientVotes(t *testing.T) {
	err := InsufficientVotes(1, 2, 2)
	if err.Code != ErrCodeInsufficientVotes {
		t.Errorf("expected INSUFFICIENT_VOTES, got %s", err.Code)
	}
	if err.Details["rejections"] != 2 {
		t.Errorf("expected rejections=2, got %v", err.Details["rejections"])
	}
	if err.Retryable {
		t.Error("insufficient votes must not be retryable")
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := Conflict("busy").WithDetail("a", 1).WithDetails(map[string]any{"b": 2})
	if len(err.Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(err.Details))
	}
}

func TestAsAppError_Wrapped(t *testing.T) {
	base := TaskNotFound("r1", "t1")
	wrapped := fmt.Errorf("dispatch: %w", base)

	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed through wrapping")
	}
	if got.Code != ErrCodeTaskNotFound {
		t.Errorf("expected TASK_NOT_FOUND, got %s", got.Code)
	}
	if !HasCode(wrapped, ErrCodeTaskNotFound) {
		t.Error("HasCode should match through wrapping")
	}
	if HasCode(stderrors.New("plain"), ErrCodeTaskNotFound) {
		t.Error("HasCode should not match plain errors")
	}
}

func TestFromError_And_StatusOf(t *testing.T) {
	plain := stderrors.New("plain")
	if got := FromError(plain); got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}
	if got := StatusOf(plain); got != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", got)
	}
	if got := StatusOf(SignalRejected("t", "not confirmed")); got != http.StatusConflict {
		t.Errorf("expected 409, got %d", got)
	}
	if got := StatusOf(GraphInvalid(plain)); got != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", got)
	}
}

func TestToResponse(t *testing.T) {
	resp := UnknownExecutor("docker").ToResponse()
	if resp.Error.Code != ErrCodeUnknownExecutor {
		t.Errorf("expected UNKNOWN_EXECUTOR, got %s", resp.Error.Code)
	}
	if resp.Error.Details["executor"] != "docker" {
		t.Errorf("expected executor=docker, got %v", resp.Error.Details["executor"])
	}
}
