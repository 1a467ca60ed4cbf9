package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidGraph marks a structurally malformed graph.
	ErrInvalidGraph = errors.New("invalid task graph")
	// ErrUnknownDependency marks a dependency id with no task behind it.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrCycleDetected marks a graph whose dependencies form a cycle.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrInterrupted is returned by an execution whose parent context ended
	// before the run reached a terminal status. The run stays resumable.
	ErrInterrupted = errors.New("run interrupted")
)

// GraphError reports why Validate rejected a graph. Kind is one of the
// sentinel errors above and is what errors.Is matches.
type GraphError struct {
	Kind       error
	TaskID     string
	Dependency string
	// Involved lists the tasks on a detected cycle, in dependency order.
	Involved []string
	Msg      string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(taskID, format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, TaskID: taskID, Msg: fmt.Sprintf(format, args...)}
}

func unknownDependency(taskID, dep string) error {
	return &GraphError{
		Kind:       ErrUnknownDependency,
		TaskID:     taskID,
		Dependency: dep,
		Msg:        fmt.Sprintf("task %q depends on %q", taskID, dep),
	}
}

// cycleError takes the DFS path that closed the cycle, first id repeated last.
func cycleError(path []string) error {
	involved := path
	if len(path) > 1 && path[0] == path[len(path)-1] {
		involved = path[:len(path)-1]
	}
	return &GraphError{
		Kind:     ErrCycleDetected,
		TaskID:   path[0],
		Involved: append([]string(nil), involved...),
		Msg:      strings.Join(path, " -> "),
	}
}
