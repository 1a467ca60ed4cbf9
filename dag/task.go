package dag

import (
	"encoding/json"
	"maps"
	"slices"
	"time"

	"github.com/kbukum/dagflow/decision"
)

// TaskStatus is the lifecycle state of a task within a run.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether the status can no longer change.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// ExecutorRef names the executor of a task and the opaque parameters passed
// to it on every attempt.
type ExecutorRef struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// Task is one unit of work in a graph.
type Task struct {
	ID        string         `json:"id"`
	Name      string         `json:"name,omitempty"`
	Executor  ExecutorRef    `json:"executor"`
	Decision  decision.Level `json:"decision"`
	DependsOn []string       `json:"depends_on,omitempty"`
}

// DisplayName returns Name, or ID when no name is set.
func (t Task) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

func (t Task) clone() Task {
	t.Executor.Params = maps.Clone(t.Executor.Params)
	t.Decision.Stakeholders = slices.Clone(t.Decision.Stakeholders)
	t.DependsOn = slices.Clone(t.DependsOn)
	return t
}

// TaskState is the per-run progress of one task. The engine loop is its
// only writer.
type TaskState struct {
	TaskID      string          `json:"task_id"`
	Status      TaskStatus      `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	Failure     *Failure        `json:"failure,omitempty"`
	Attempts    int             `json:"attempts"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the state.
func (s *TaskState) Clone() *TaskState {
	c := *s
	c.Result = slices.Clone(s.Result)
	if s.Failure != nil {
		f := *s.Failure
		c.Failure = &f
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
