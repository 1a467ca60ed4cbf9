package dag

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/resilience"
)

// FailureKind classifies why a task did not complete. ExecutionPolicy
// ContinueOn matches on it.
type FailureKind string

const (
	// FailureExecutor is an error returned by the executor.
	FailureExecutor FailureKind = "executor"
	// FailureInsufficientVotes is an arbitrated task whose quorum became unreachable.
	FailureInsufficientVotes FailureKind = "insufficient_votes"
	// FailureCancelled is a task cancelled by its own decision, by a
	// cancelled dependency, or by the run.
	FailureCancelled FailureKind = "cancelled"
	// FailureUnknownExecutor is a task whose executor tag is not registered.
	FailureUnknownExecutor FailureKind = "unknown_executor"
	// FailureOrphaned is a task found running after a crash in fail recovery mode.
	FailureOrphaned FailureKind = "orphaned"
	// FailureTimeout is an executor call that ran past its deadline.
	FailureTimeout FailureKind = "timeout"
)

// FailureKinds lists every failure kind.
var FailureKinds = []FailureKind{
	FailureExecutor, FailureInsufficientVotes, FailureCancelled,
	FailureUnknownExecutor, FailureOrphaned, FailureTimeout,
}

// Failure records why a task ended Failed or Cancelled.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	// Cause names the task whose failure this one follows from, or CauseRun
	// when the run was cancelled. It is empty for a task that failed on its own.
	Cause string `json:"cause,omitempty"`
}

// CauseRun is the Failure cause of tasks cancelled with their run.
const CauseRun = "<run>"

// Permanent marks an executor error as not worth retrying. Mechanical tasks
// stop retrying when they see one.
func Permanent(err error) error {
	return resilience.Permanent(err)
}

// classify maps an executor error to a failure kind.
func classify(err error) FailureKind {
	switch {
	case apperrors.HasCode(err, apperrors.ErrCodeUnknownExecutor):
		return FailureUnknownExecutor
	case apperrors.HasCode(err, apperrors.ErrCodeInsufficientVotes):
		return FailureInsufficientVotes
	case errors.Is(err, context.DeadlineExceeded), apperrors.HasCode(err, apperrors.ErrCodeTimeout):
		return FailureTimeout
	default:
		return FailureExecutor
	}
}

func newFailure(err error) *Failure {
	return &Failure{Kind: classify(err), Message: err.Error()}
}
