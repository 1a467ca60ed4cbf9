package dag

import (
	"fmt"
	"slices"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending: {TaskRunning, TaskCancelled},
	TaskRunning: {TaskCompleted, TaskFailed, TaskCancelled},
}

// CanTransition reports whether a task may move from one status to another.
// Terminal statuses have no outgoing transitions.
func CanTransition(from, to TaskStatus) bool {
	return slices.Contains(taskTransitions[from], to)
}

func checkTransition(taskID string, from, to TaskStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("dag: task %s cannot move from %s to %s", taskID, from, to)
	}
	return nil
}
