package errors

import (
	"fmt"
	"net/http"
)

// GraphInvalid reports a submitted graph that failed validation.
// No run is created for it.
func GraphInvalid(cause error) *AppError {
	return &AppError{
		Code: ErrCodeGraphInvalid, Message: "graph validation failed",
		HTTPStatus: http.StatusUnprocessableEntity, Cause: cause,
	}
}

// RunNotFound reports an unknown run id.
func RunNotFound(runID string) *AppError {
	return &AppError{
		Code: ErrCodeRunNotFound, Message: fmt.Sprintf("run %s not found", runID),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"run_id": runID},
	}
}

// TaskNotFound reports a task id that is not part of the run.
func TaskNotFound(runID, taskID string) *AppError {
	return &AppError{
		Code: ErrCodeTaskNotFound, Message: fmt.Sprintf("task %s not found in run %s", taskID, runID),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"run_id": runID, "task_id": taskID},
	}
}

// RunTerminal reports an operation on a run that has already finished.
func RunTerminal(runID, status string) *AppError {
	return &AppError{
		Code: ErrCodeRunTerminal, Message: fmt.Sprintf("run %s is already %s", runID, status),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"run_id": runID, "status": status},
	}
}

// SignalRejected reports a decision signal that does not apply to the task.
func SignalRejected(taskID, reason string) *AppError {
	return &AppError{
		Code: ErrCodeSignalRejected, Message: fmt.Sprintf("signal for task %s rejected: %s", taskID, reason),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"task_id": taskID},
	}
}

// UnknownExecutor reports a task whose executor tag has no registration.
func UnknownExecutor(tag string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownExecutor, Message: fmt.Sprintf("no executor registered for %q", tag),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"executor": tag},
	}
}

// InsufficientVotes reports an arbitrated task whose quorum can no longer be reached.
func InsufficientVotes(approvals, rejections, quorum int) *AppError {
	return &AppError{
		Code: ErrCodeInsufficientVotes,
		Message: fmt.Sprintf("quorum of %d unreachable (%d approvals, %d rejections)",
			quorum, approvals, rejections),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"approvals":  approvals,
			"rejections": rejections,
			"quorum":     quorum,
		},
	}
}

// ExecutorFailed wraps a task body failure.
func ExecutorFailed(tag string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExecutorFailed, Message: fmt.Sprintf("executor %q failed", tag),
		HTTPStatus: http.StatusInternalServerError, Retryable: true,
		Details: map[string]any{"executor": tag}, Cause: cause,
	}
}
