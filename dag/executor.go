package dag

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	apperrors "github.com/kbukum/dagflow/errors"
)

// Executor runs task bodies. Execute is called once per authorized attempt
// with the task's executor tag and parameters. It may be called again for
// the same task: on Mechanical retries, and when a run is recovered after a
// crash in reexecute mode. Implementations must therefore tolerate
// duplicate invocation.
//
// Returning an error wrapped with Permanent stops Mechanical retries.
// Execute must honor ctx cancellation.
type Executor interface {
	Execute(ctx context.Context, tag string, params map[string]any) (json.RawMessage, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, tag string, params map[string]any) (json.RawMessage, error)

func (f ExecutorFunc) Execute(ctx context.Context, tag string, params map[string]any) (json.RawMessage, error) {
	return f(ctx, tag, params)
}

// Registry maps executor tags to executors. It is itself an Executor that
// dispatches on the tag; an unregistered tag fails with a permanent
// UNKNOWN_EXECUTOR error.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register binds an executor to a tag, replacing any previous binding.
func (r *Registry) Register(tag string, exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[tag] = exec
}

// Get retrieves the executor of a tag.
func (r *Registry) Get(tag string) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[tag]
	return e, ok
}

// List returns sorted tags of all registered executors.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.executors))
	for tag := range r.executors {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Execute dispatches to the executor registered for tag.
func (r *Registry) Execute(ctx context.Context, tag string, params map[string]any) (json.RawMessage, error) {
	exec, ok := r.Get(tag)
	if !ok {
		return nil, Permanent(apperrors.UnknownExecutor(tag))
	}
	return exec.Execute(ctx, tag, params)
}
