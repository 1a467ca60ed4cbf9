// Package dagtest provides helpers for tests that drive the engine:
// a scripted executor, graph builders and polling assertions.
package dagtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/decision"
)

// Step is the scripted body of one executor tag.
type Step func(ctx context.Context, params map[string]any) (json.RawMessage, error)

// ScriptedExecutor is a dag.Executor with per-tag scripted results and
// call counting. Unscripted tags fail with an executor error.
type ScriptedExecutor struct {
	mu    sync.Mutex
	steps map[string]Step
	calls map[string]int
}

var _ dag.Executor = (*ScriptedExecutor)(nil)

// NewScriptedExecutor creates an executor with no scripted tags.
func NewScriptedExecutor() *ScriptedExecutor {
	return &ScriptedExecutor{
		steps: make(map[string]Step),
		calls: make(map[string]int),
	}
}

// On scripts a tag.
func (s *ScriptedExecutor) On(tag string, step Step) *ScriptedExecutor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[tag] = step
	return s
}

// Succeed scripts a tag to return {"tag": tag}.
func (s *ScriptedExecutor) Succeed(tag string) *ScriptedExecutor {
	return s.On(tag, func(context.Context, map[string]any) (json.RawMessage, error) {
		return json.RawMessage(fmt.Sprintf(`{"tag":%q}`, tag)), nil
	})
}

// Fail scripts a tag to always return err.
func (s *ScriptedExecutor) Fail(tag string, err error) *ScriptedExecutor {
	return s.On(tag, func(context.Context, map[string]any) (json.RawMessage, error) {
		return nil, err
	})
}

// FailTimes scripts a tag to fail its first n calls and succeed afterwards.
func (s *ScriptedExecutor) FailTimes(tag string, n int) *ScriptedExecutor {
	var mu sync.Mutex
	seen := 0
	return s.On(tag, func(context.Context, map[string]any) (json.RawMessage, error) {
		mu.Lock()
		defer mu.Unlock()
		seen++
		if seen <= n {
			return nil, fmt.Errorf("%s: attempt %d failed", tag, seen)
		}
		return json.RawMessage(fmt.Sprintf(`{"tag":%q,"attempt":%d}`, tag, seen)), nil
	})
}

// Block scripts a tag to wait until release is closed or ctx is done.
func (s *ScriptedExecutor) Block(tag string, release <-chan struct{}) *ScriptedExecutor {
	return s.On(tag, func(ctx context.Context, _ map[string]any) (json.RawMessage, error) {
		select {
		case <-release:
			return json.RawMessage(`{}`), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

// Execute runs the scripted step of tag.
func (s *ScriptedExecutor) Execute(ctx context.Context, tag string, params map[string]any) (json.RawMessage, error) {
	s.mu.Lock()
	s.calls[tag]++
	step, ok := s.steps[tag]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unscripted executor tag %q", tag)
	}
	return step(ctx, params)
}

// Calls returns how many times tag was executed.
func (s *ScriptedExecutor) Calls(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[tag]
}

// TotalCalls returns the number of executions across all tags.
func (s *ScriptedExecutor) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Task builds a task whose executor tag is its id.
func Task(id string, level decision.Level, deps ...string) dag.Task {
	return dag.Task{ID: id, Executor: dag.ExecutorRef{Type: id}, Decision: level, DependsOn: deps}
}

// Graph builds a graph from tasks.
func Graph(name string, policy dag.ExecutionPolicy, tasks ...dag.Task) *dag.Graph {
	g := &dag.Graph{Name: name, Policy: policy, Tasks: make(map[string]dag.Task, len(tasks))}
	for _, t := range tasks {
		g.Tasks[t.ID] = t
	}
	return g
}

// MustValidate validates g or fails the test.
func MustValidate(t testing.TB, g *dag.Graph) *dag.ValidatedGraph {
	t.Helper()
	vg, err := dag.Validate(g)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return vg
}

// DefaultTimeout bounds every polling helper.
const DefaultTimeout = 5 * time.Second

// Eventually polls cond until it holds or DefaultTimeout passes.
func Eventually(t testing.TB, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(DefaultTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// WaitForStatus polls the store until the run reaches want and returns it.
func WaitForStatus(t testing.TB, store dag.RunStore, runID string, want dag.RunStatus) *dag.DagRun {
	t.Helper()
	var run *dag.DagRun
	Eventually(t, fmt.Sprintf("run %s to be %s", runID, want), func() bool {
		r, err := store.LoadRun(context.Background(), runID)
		if err != nil {
			return false
		}
		run = r
		return r.Status == want
	})
	return run
}

// WaitForTask polls the store until the task reaches want.
func WaitForTask(t testing.TB, store dag.RunStore, runID, taskID string, want dag.TaskStatus) {
	t.Helper()
	Eventually(t, fmt.Sprintf("task %s/%s to be %s", runID, taskID, want), func() bool {
		r, err := store.LoadRun(context.Background(), runID)
		if err != nil {
			return false
		}
		st, ok := r.Tasks[taskID]
		return ok && st.Status == want
	})
}
