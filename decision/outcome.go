package decision

import "time"

// Verdict is the resolution of an authorization.
type Verdict string

const (
	Proceed   Verdict = "proceed"
	Cancelled Verdict = "cancelled"
	Failed    Verdict = "failed"
)

// Outcome is what Authorize resolves to.
type Outcome struct {
	Verdict Verdict
	// Reason explains a Cancelled or Failed verdict.
	Reason string
	// Err carries the failure for a Failed verdict.
	Err error
	// ExecutorTag overrides the task's executor tag when non-empty.
	ExecutorTag string
	// Votes holds the counted votes of an arbitrated task.
	Votes []Vote
	// ByRun is set when the run itself was cancelled during the wait.
	ByRun bool
}

// Request describes a decision that is waiting for external input.
type Request struct {
	RunID        string     `json:"run_id"`
	TaskID       string     `json:"task_id"`
	Kind         Kind       `json:"kind"`
	Since        time.Time  `json:"since"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Stakeholders []string   `json:"stakeholders,omitempty"`
	Quorum       int        `json:"quorum,omitempty"`
	Votes        []Vote     `json:"votes,omitempty"`
}
