package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (retryable)
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
)

// Resource errors
const (
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// Input errors
const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Authentication errors
const (
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Internal errors
const (
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError   ErrorCode = "DATABASE_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Orchestration errors
const (
	// ErrCodeGraphInvalid marks a submission rejected by graph validation.
	ErrCodeGraphInvalid ErrorCode = "GRAPH_INVALID"
	// ErrCodeRunNotFound marks an unknown run id.
	ErrCodeRunNotFound ErrorCode = "RUN_NOT_FOUND"
	// ErrCodeTaskNotFound marks an unknown task id within a run.
	ErrCodeTaskNotFound ErrorCode = "TASK_NOT_FOUND"
	// ErrCodeRunTerminal marks an operation on a run that already finished.
	ErrCodeRunTerminal ErrorCode = "RUN_TERMINAL"
	// ErrCodeSignalRejected marks an approval, rejection, cancel or vote that
	// does not apply to the task's decision level or current state.
	ErrCodeSignalRejected ErrorCode = "SIGNAL_REJECTED"
	// ErrCodeUnknownExecutor marks a task whose executor tag is not registered.
	ErrCodeUnknownExecutor ErrorCode = "UNKNOWN_EXECUTOR"
	// ErrCodeInsufficientVotes marks an arbitrated task whose quorum became unreachable.
	ErrCodeInsufficientVotes ErrorCode = "INSUFFICIENT_VOTES"
	// ErrCodeExecutorFailed marks a task body failure.
	ErrCodeExecutorFailed ErrorCode = "EXECUTOR_FAILED"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeDatabaseError:      true,
	ErrCodeExternalService:    true,
	ErrCodeExecutorFailed:     true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
