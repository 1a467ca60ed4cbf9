package dag

import "context"

// RunStore is the durable record of run progress. Implementations must be
// safe for concurrent use across runs; writes for one run come from a
// single goroutine.
type RunStore interface {
	// SaveRun writes the whole run, tasks included.
	SaveRun(ctx context.Context, run *DagRun) error
	// SaveTaskStatus writes one task's state. It is durable before it returns.
	SaveTaskStatus(ctx context.Context, runID, taskID string, state TaskState) error
	// LoadRun returns a run by id or an errors.RunNotFound AppError.
	LoadRun(ctx context.Context, runID string) (*DagRun, error)
	// LoadNonTerminalRuns returns every run whose status is not terminal.
	LoadNonTerminalRuns(ctx context.Context) ([]*DagRun, error)
}
