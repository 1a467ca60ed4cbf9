package dag

import (
	"encoding/json"
	"sort"
	"time"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunPending               RunStatus = "pending"
	RunRunning               RunStatus = "running"
	RunCompleted             RunStatus = "completed"
	RunCompletedWithFailures RunStatus = "completed_with_failures"
	RunAborted               RunStatus = "aborted"
	RunCancelled             RunStatus = "cancelled"
)

// IsTerminal reports whether the run has finished.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunCompleted, RunCompletedWithFailures, RunAborted, RunCancelled:
		return true
	default:
		return false
	}
}

// DagRun is one execution of a graph. The graph is a snapshot taken at
// submission. Once Status is terminal the run is never modified again.
type DagRun struct {
	ID          string                `json:"id"`
	Graph       *Graph                `json:"graph"`
	Status      RunStatus             `json:"status"`
	Tasks       map[string]*TaskState `json:"tasks"`
	Reason      string                `json:"reason,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
}

// NewRun instantiates a run of a validated graph with every task Pending.
func NewRun(id string, vg *ValidatedGraph) *DagRun {
	now := time.Now().UTC()
	run := &DagRun{
		ID:        id,
		Graph:     vg.Graph().Clone(),
		Status:    RunPending,
		Tasks:     make(map[string]*TaskState, vg.Len()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, tid := range vg.IDs() {
		run.Tasks[tid] = &TaskState{
			TaskID:    tid,
			Status:    TaskPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return run
}

// Clone returns a deep copy of the run.
func (r *DagRun) Clone() *DagRun {
	c := *r
	if r.Graph != nil {
		c.Graph = r.Graph.Clone()
	}
	c.Tasks = make(map[string]*TaskState, len(r.Tasks))
	for id, st := range r.Tasks {
		c.Tasks[id] = st.Clone()
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Counts returns the number of tasks per status.
func (r *DagRun) Counts() map[TaskStatus]int {
	out := make(map[TaskStatus]int, 5)
	for _, st := range r.Tasks {
		out[st.Status]++
	}
	return out
}

// Failures lists the tasks that ended Failed or Cancelled, sorted by id.
func (r *DagRun) Failures() []TaskFailure {
	var out []TaskFailure
	for id, st := range r.Tasks {
		if st.Failure == nil || (st.Status != TaskFailed && st.Status != TaskCancelled) {
			continue
		}
		out = append(out, TaskFailure{
			TaskID:  id,
			Status:  st.Status,
			Kind:    st.Failure.Kind,
			Message: st.Failure.Message,
			Cause:   st.Failure.Cause,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

// Report summarizes the run.
func (r *DagRun) Report() RunReport {
	rep := RunReport{
		RunID:       r.ID,
		Status:      r.Status,
		Reason:      r.Reason,
		Counts:      r.Counts(),
		Failures:    r.Failures(),
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
	if r.Graph != nil {
		rep.Graph = r.Graph.Name
	}
	if r.CompletedAt != nil {
		rep.Duration = r.CompletedAt.Sub(r.CreatedAt)
	}

	ids := make([]string, 0, len(r.Tasks))
	for id := range r.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		st := r.Tasks[id]
		tr := TaskReport{
			TaskID:      id,
			Status:      st.Status,
			Attempts:    st.Attempts,
			Result:      st.Result,
			Failure:     st.Failure,
			StartedAt:   st.StartedAt,
			CompletedAt: st.CompletedAt,
		}
		if r.Graph != nil {
			if t, ok := r.Graph.Tasks[id]; ok {
				tr.Name = t.DisplayName()
				tr.Executor = t.Executor.Type
			}
		}
		rep.Tasks = append(rep.Tasks, tr)
	}
	return rep
}

// TaskFailure is one entry of a run's failure list.
type TaskFailure struct {
	TaskID  string      `json:"task_id"`
	Status  TaskStatus  `json:"status"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Cause   string      `json:"cause,omitempty"`
}

// RunReport is the outcome of a run as returned to callers and archived.
type RunReport struct {
	RunID       string             `json:"run_id"`
	Graph       string             `json:"graph"`
	Status      RunStatus          `json:"status"`
	Reason      string             `json:"reason,omitempty"`
	Counts      map[TaskStatus]int `json:"counts"`
	Tasks       []TaskReport       `json:"tasks"`
	Failures    []TaskFailure      `json:"failures,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Duration    time.Duration      `json:"duration"`
}

// Task returns the report entry of a task.
func (r RunReport) Task(id string) (TaskReport, bool) {
	for _, t := range r.Tasks {
		if t.TaskID == id {
			return t, true
		}
	}
	return TaskReport{}, false
}

// TaskReport is the per-task part of a RunReport.
type TaskReport struct {
	TaskID      string          `json:"task_id"`
	Name        string          `json:"name"`
	Executor    string          `json:"executor"`
	Status      TaskStatus      `json:"status"`
	Attempts    int             `json:"attempts"`
	Result      json.RawMessage `json:"result,omitempty"`
	Failure     *Failure        `json:"failure,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
