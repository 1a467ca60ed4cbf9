package runstore

import (
	"context"
	"sort"
	"sync"

	"github.com/kbukum/dagflow/dag"
	apperrors "github.com/kbukum/dagflow/errors"
)

// MemoryStore is an in-process dag.RunStore.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*dag.DagRun
}

var _ dag.RunStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*dag.DagRun)}
}

// SaveRun stores a copy of the run.
func (s *MemoryStore) SaveRun(_ context.Context, run *dag.DagRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run.Clone()
	return nil
}

// SaveTaskStatus replaces one task's state.
func (s *MemoryStore) SaveTaskStatus(_ context.Context, runID, taskID string, state dag.TaskState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return apperrors.RunNotFound(runID)
	}
	if _, ok := run.Tasks[taskID]; !ok {
		return apperrors.TaskNotFound(runID, taskID)
	}
	run.Tasks[taskID] = state.Clone()
	if state.UpdatedAt.After(run.UpdatedAt) {
		run.UpdatedAt = state.UpdatedAt
	}
	return nil
}

// LoadRun returns a copy of the run.
func (s *MemoryStore) LoadRun(_ context.Context, runID string) (*dag.DagRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, apperrors.RunNotFound(runID)
	}
	return run.Clone(), nil
}

// LoadNonTerminalRuns returns copies of the active runs, oldest first.
func (s *MemoryStore) LoadNonTerminalRuns(_ context.Context) ([]*dag.DagRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*dag.DagRun
	for _, run := range s.runs {
		if !run.Status.IsTerminal() {
			out = append(out, run.Clone())
		}
	}
	sortRuns(out)
	return out, nil
}

// Len returns the number of stored runs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func sortRuns(runs []*dag.DagRun) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
