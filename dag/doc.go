// Package dag runs task graphs whose tasks are gated by decision levels.
//
// A Graph declares tasks, their dependencies and the ExecutionPolicy that
// decides how a failure affects the rest of the run. Validate checks a graph
// once and groups its tasks into topological layers; nothing is re-checked
// during execution.
//
// The Engine drives a ValidatedGraph as a DagRun. A single loop goroutine
// owns every task status: workers authorize and execute tasks and report
// back, and the loop persists each transition to the RunStore before any
// dependent is scheduled. Decision waits happen outside the worker pool, so
// a task awaiting approval never holds a slot that an executor call needs.
//
// Graphs are usually written as documents:
//
//	name: release
//	policy: best_effort
//	tasks:
//	  - id: build
//	    executor: shell
//	    params: {command: make}
//	    decision: {kind: mechanical, max_retries: 2}
//	  - id: deploy
//	    executor: shell
//	    depends_on: [build]
//	    decision: {kind: confirmed}
//
// and loaded with LoadDocument, which accepts YAML, JSON and TOML.
package dag
