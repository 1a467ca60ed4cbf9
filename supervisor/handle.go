package supervisor

import (
	"context"
	"time"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/decision"
)

// RunHandle is a run executing in this process.
type RunHandle struct {
	id        string
	graph     string
	createdAt time.Time
	recovered bool
	exec      *dag.Execution
	settled   chan struct{}
}

// ID returns the run id.
func (h *RunHandle) ID() string { return h.id }

// Graph returns the graph name.
func (h *RunHandle) Graph() string { return h.graph }

// Recovered reports whether the run was resumed by Recover.
func (h *RunHandle) Recovered() bool { return h.recovered }

// Done is closed once the run has ended and its report was archived.
func (h *RunHandle) Done() <-chan struct{} { return h.settled }

// Wait blocks until the run ends or ctx is done. The error is non-nil when
// the run was interrupted or could not be stored.
func (h *RunHandle) Wait(ctx context.Context) (dag.RunReport, error) {
	select {
	case <-h.settled:
		return h.exec.Report(), h.exec.Err()
	case <-ctx.Done():
		return dag.RunReport{}, ctx.Err()
	}
}

// Snapshot returns a copy of the run.
func (h *RunHandle) Snapshot() *dag.DagRun { return h.exec.Snapshot() }

// Report summarizes the run as last written.
func (h *RunHandle) Report() dag.RunReport { return h.exec.Report() }

// Pending lists the decisions waiting for a signal.
func (h *RunHandle) Pending() []decision.Request { return h.exec.Pending() }

// RunSummary is one entry of Supervisor.List.
type RunSummary struct {
	RunID     string                 `json:"run_id"`
	Graph     string                 `json:"graph"`
	Status    dag.RunStatus          `json:"status"`
	Counts    map[dag.TaskStatus]int `json:"counts"`
	Pending   int                    `json:"pending_decisions"`
	Recovered bool                   `json:"recovered,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func (h *RunHandle) summary() RunSummary {
	snap := h.exec.Snapshot()
	return RunSummary{
		RunID:     h.id,
		Graph:     h.graph,
		Status:    snap.Status,
		Counts:    snap.Counts(),
		Pending:   len(h.exec.Pending()),
		Recovered: h.recovered,
		CreatedAt: h.createdAt,
	}
}
