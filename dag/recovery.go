package dag

import (
	"fmt"
	"sort"
	"time"
)

// RecoveryMode decides what happens to tasks found Running after a crash.
type RecoveryMode string

const (
	// RecoveryReexecute resets them to Pending so their decision and
	// executor run again. Executors must be idempotent.
	RecoveryReexecute RecoveryMode = "reexecute"
	// RecoveryFail marks them Failed with kind orphaned and lets the policy decide.
	RecoveryFail RecoveryMode = "fail"
)

// Validate checks the mode.
func (m RecoveryMode) Validate() error {
	switch m {
	case RecoveryReexecute, RecoveryFail:
		return nil
	default:
		return fmt.Errorf("unknown recovery mode %q (want %s or %s)", m, RecoveryReexecute, RecoveryFail)
	}
}

// PrepareRecovery rewrites the tasks of a persisted run that were Running
// when the process stopped, and returns their ids in sorted order. Callers
// persist the rewritten states before resuming the run.
func PrepareRecovery(run *DagRun, mode RecoveryMode) []string {
	now := time.Now().UTC()
	var touched []string
	for _, id := range sortedStateIDs(run.Tasks) {
		st := run.Tasks[id]
		if st.Status != TaskRunning {
			continue
		}
		switch mode {
		case RecoveryFail:
			st.Status = TaskFailed
			st.Failure = &Failure{Kind: FailureOrphaned, Message: "task was running when the engine stopped"}
			st.CompletedAt = &now
		default:
			st.Status = TaskPending
			st.Failure = nil
			st.Result = nil
			st.StartedAt = nil
		}
		st.UpdatedAt = now
		touched = append(touched, id)
	}
	return touched
}

func sortedStateIDs(tasks map[string]*TaskState) []string {
	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CancelStored concludes a stored run that no engine is executing as
// Cancelled. Every non-terminal task is cancelled with cause CauseRun.
func CancelStored(run *DagRun, reason string) {
	concludeStored(run, RunCancelled, reason)
}

// AbortStored concludes a stored run that cannot be resumed as Aborted.
func AbortStored(run *DagRun, reason string) {
	concludeStored(run, RunAborted, reason)
}

func concludeStored(run *DagRun, status RunStatus, reason string) {
	now := time.Now().UTC()
	for _, id := range sortedStateIDs(run.Tasks) {
		st := run.Tasks[id]
		if st.Status.IsTerminal() {
			continue
		}
		st.Status = TaskCancelled
		st.Failure = &Failure{Kind: FailureCancelled, Message: reason, Cause: CauseRun}
		st.CompletedAt = &now
		st.UpdatedAt = now
	}
	run.Status = status
	run.Reason = reason
	run.CompletedAt = &now
	run.UpdatedAt = now
}
