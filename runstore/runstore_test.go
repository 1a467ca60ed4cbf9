package runstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/database"
	"github.com/kbukum/dagflow/decision"
	apperrors "github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/redis"
)

// --- fixtures ---

func newRun(t *testing.T, id string, created time.Time) *dag.DagRun {
	t.Helper()
	g := &dag.Graph{
		Name:   "release",
		Policy: dag.ContinueOn(dag.FailureUnknownExecutor),
		Tasks: map[string]dag.Task{
			"build": {ID: "build", Executor: dag.ExecutorRef{Type: "shell", Params: map[string]any{"command": "make"}}, Decision: decision.Mechanical(2)},
			"ship": {ID: "ship", Executor: dag.ExecutorRef{Type: "noop"},
				Decision: decision.Arbitrated([]string{"alice", "bob"}, 2), DependsOn: []string{"build"}},
		},
	}
	vg, err := dag.Validate(g)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	run := dag.NewRun(id, vg)
	run.CreatedAt = created
	run.UpdatedAt = created
	for _, st := range run.Tasks {
		st.CreatedAt = created
		st.UpdatedAt = created
	}
	return run
}

func openSQLStore(t *testing.T) dag.RunStore {
	t.Helper()
	ctx := context.Background()
	comp := database.NewComponent(database.Config{
		Enabled:     true,
		DSN:         filepath.Join(t.TempDir(), "runs.db"),
		AutoMigrate: true,
		MaxRetries:  1,
		LogLevel:    "silent",
	}, logger.Nop()).WithAutoMigrate(Models()...)
	if err := comp.Start(ctx); err != nil {
		t.Fatalf("database Start() error = %v", err)
	}
	t.Cleanup(func() { comp.Stop(ctx) })
	return NewSQLStore(comp.DB())
}

func openRedisStore(t *testing.T) dag.RunStore {
	t.Helper()
	mini := miniredis.RunT(t)
	client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatalf("redis New() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client)
}

var stores = map[string]func(t *testing.T) dag.RunStore{
	"memory": func(*testing.T) dag.RunStore { return NewMemoryStore() },
	"sql":    openSQLStore,
	"redis":  openRedisStore,
}

// --- contract tests, run against every store ---

func TestStore_SaveAndLoad(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			run := newRun(t, "r1", base)
			run.Status = dag.RunRunning

			if err := s.SaveRun(ctx, run); err != nil {
				t.Fatalf("SaveRun() error = %v", err)
			}

			done := base.Add(time.Second)
			st := *run.Tasks["build"]
			st.Status = dag.TaskCompleted
			st.Attempts = 2
			st.Result = json.RawMessage(`{"ok":true}`)
			st.StartedAt = &base
			st.CompletedAt = &done
			st.UpdatedAt = done
			if err := s.SaveTaskStatus(ctx, "r1", "build", st); err != nil {
				t.Fatalf("SaveTaskStatus() error = %v", err)
			}

			got, err := s.LoadRun(ctx, "r1")
			if err != nil {
				t.Fatalf("LoadRun() error = %v", err)
			}
			if got.Status != dag.RunRunning || len(got.Tasks) != 2 {
				t.Fatalf("LoadRun() = status %s, %d tasks", got.Status, len(got.Tasks))
			}
			b := got.Tasks["build"]
			if b.Status != dag.TaskCompleted || b.Attempts != 2 || string(b.Result) != `{"ok":true}` {
				t.Errorf("build state = %+v", b)
			}
			if b.CompletedAt == nil || !b.CompletedAt.Equal(done) {
				t.Errorf("build CompletedAt = %v, want %v", b.CompletedAt, done)
			}
			if got.Tasks["ship"].Status != dag.TaskPending {
				t.Errorf("ship status = %s", got.Tasks["ship"].Status)
			}
			if !reflect.DeepEqual(got.Graph.Tasks["ship"].Decision.Stakeholders, []string{"alice", "bob"}) {
				t.Errorf("graph snapshot = %+v", got.Graph.Tasks["ship"])
			}
			if _, err := dag.Validate(got.Graph); err != nil {
				t.Errorf("loaded graph no longer validates: %v", err)
			}
		})
	}
}

func TestStore_Failure(t *testing.T) {
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			run := newRun(t, "r1", time.Now().UTC())
			if err := s.SaveRun(ctx, run); err != nil {
				t.Fatalf("SaveRun() error = %v", err)
			}

			st := *run.Tasks["ship"]
			st.Status = dag.TaskCancelled
			st.Failure = &dag.Failure{Kind: dag.FailureCancelled, Message: "upstream failed", Cause: "build"}
			if err := s.SaveTaskStatus(ctx, "r1", "ship", st); err != nil {
				t.Fatalf("SaveTaskStatus() error = %v", err)
			}
			got, err := s.LoadRun(ctx, "r1")
			if err != nil {
				t.Fatalf("LoadRun() error = %v", err)
			}
			if f := got.Tasks["ship"].Failure; f == nil || f.Cause != "build" || f.Kind != dag.FailureCancelled {
				t.Errorf("failure = %+v", f)
			}
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			if _, err := s.LoadRun(ctx, "ghost"); !apperrors.HasCode(err, apperrors.ErrCodeRunNotFound) {
				t.Errorf("LoadRun() error = %v, want RUN_NOT_FOUND", err)
			}
			err := s.SaveTaskStatus(ctx, "ghost", "a", dag.TaskState{Status: dag.TaskRunning})
			if !apperrors.HasCode(err, apperrors.ErrCodeRunNotFound) {
				t.Errorf("SaveTaskStatus() error = %v, want RUN_NOT_FOUND", err)
			}
		})
	}
}

func TestStore_LoadNonTerminalRuns(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			statuses := map[string]dag.RunStatus{
				"r3": dag.RunRunning,
				"r1": dag.RunPending,
				"r2": dag.RunCompleted,
				"r4": dag.RunAborted,
			}
			for i, id := range []string{"r1", "r2", "r3", "r4"} {
				run := newRun(t, id, base.Add(time.Duration(i)*time.Minute))
				run.Status = statuses[id]
				if err := s.SaveRun(ctx, run); err != nil {
					t.Fatalf("SaveRun(%s) error = %v", id, err)
				}
			}

			// A run that finishes later leaves the active set.
			r3, err := s.LoadRun(ctx, "r3")
			if err != nil {
				t.Fatalf("LoadRun() error = %v", err)
			}
			active, err := s.LoadNonTerminalRuns(ctx)
			if err != nil {
				t.Fatalf("LoadNonTerminalRuns() error = %v", err)
			}
			if got := runIDs(active); !reflect.DeepEqual(got, []string{"r1", "r3"}) {
				t.Errorf("active = %v, want [r1 r3]", got)
			}

			r3.Status = dag.RunCancelled
			if err := s.SaveRun(ctx, r3); err != nil {
				t.Fatalf("SaveRun() error = %v", err)
			}
			active, err = s.LoadNonTerminalRuns(ctx)
			if err != nil {
				t.Fatalf("LoadNonTerminalRuns() error = %v", err)
			}
			if got := runIDs(active); !reflect.DeepEqual(got, []string{"r1"}) {
				t.Errorf("active = %v, want [r1]", got)
			}
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	run := newRun(t, "r1", time.Now().UTC())
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	run.Tasks["build"].Status = dag.TaskFailed

	got, _ := s.LoadRun(ctx, "r1")
	if got.Tasks["build"].Status != dag.TaskPending {
		t.Errorf("store aliases the saved run")
	}
	got.Tasks["build"].Status = dag.TaskCompleted
	again, _ := s.LoadRun(ctx, "r1")
	if again.Tasks["build"].Status != dag.TaskPending {
		t.Errorf("store aliases the loaded run")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d", s.Len())
	}
}

func runIDs(runs []*dag.DagRun) []string {
	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	return ids
}
