package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/dagflow/component"
	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/dagtest"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/resilience"
	"github.com/kbukum/dagflow/runstore"
	"github.com/kbukum/dagflow/supervisor"
)

// --- test helpers ---

func newSupervisor(t *testing.T, exec *dagtest.ScriptedExecutor) (*supervisor.Supervisor, *runstore.MemoryStore) {
	t.Helper()
	store := runstore.NewMemoryStore()
	engine := dag.NewEngine(dag.EngineConfig{
		MaxParallel: 2,
		Retry:       resilience.BackoffConfig{InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond},
	}, store, exec)
	var n atomic.Int64
	sup := supervisor.New(supervisor.Config{}, engine, store,
		supervisor.WithIDGenerator(func() string { return fmt.Sprintf("run-%d", n.Add(1)) }),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), dagtest.DefaultTimeout)
		defer cancel()
		_ = sup.Shutdown(ctx)
	})
	return sup, store
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const nightly = `
name: nightly
schedule: "@every 1h"
includes: [common.yaml]
tasks:
  - id: work
    executor: work
    depends_on: [checkout]
`

const common = `
name: common
tasks:
  - id: checkout
    executor: noop
`

// --- tests ---

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "nightly.yaml", nightly)
	write(t, dir, "common.yaml", common)
	write(t, dir, "README.md", "not a document")

	sup, _ := newSupervisor(t, dagtest.NewScriptedExecutor())
	s := New(dir, sup, logger.Nop())
	if err := s.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("Entries() = %+v, want one schedule", entries)
	}
	if e := entries[0]; e.Name != "nightly" || e.Schedule != "@every 1h" || !strings.HasSuffix(e.Path, "nightly.yaml") {
		t.Errorf("entry = %+v", e)
	}
}

func TestLoadDir_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad expression", "name: x\nschedule: every tuesday\ntasks:\n  - {id: a, executor: noop}\n", "parse schedule"},
		{"cycle", "name: x\nschedule: '@daily'\ntasks:\n  - {id: a, executor: noop, depends_on: [a]}\n", "cycle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			write(t, dir, "x.yaml", tt.doc)
			sup, _ := newSupervisor(t, dagtest.NewScriptedExecutor())
			err := New(dir, sup, logger.Nop()).LoadDir(dir)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadDir() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestAdd_Duplicate(t *testing.T) {
	sup, _ := newSupervisor(t, dagtest.NewScriptedExecutor())
	s := New("", sup, logger.Nop())
	doc := &dag.Document{Name: "d", Schedule: "@hourly", Tasks: []dag.TaskDoc{{ID: "a", Executor: "noop"}}}
	if err := s.Add(doc); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(doc); err == nil {
		t.Error("second Add() of the same graph must fail")
	}
	if err := s.Add(&dag.Document{Name: "e", Tasks: doc.Tasks}); err == nil {
		t.Error("Add() without schedule must fail")
	}
	if !s.Remove("d") || s.Remove("d") {
		t.Error("Remove() must report whether the schedule existed")
	}
}

func TestFire_SkipsWhilePreviousRunExecutes(t *testing.T) {
	release := make(chan struct{})
	exec := dagtest.NewScriptedExecutor().Block("work", release)
	sup, store := newSupervisor(t, exec)

	s := New("", sup, logger.Nop())
	doc := &dag.Document{Name: "d", Schedule: "@hourly", Tasks: []dag.TaskDoc{{ID: "work", Executor: "work"}}}
	if err := s.Add(doc); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	s.fire("d")
	dagtest.WaitForTask(t, store, "run-1", "work", dag.TaskRunning)
	s.fire("d")

	e := s.Entries()[0]
	if e.LastRunID != "run-1" || e.Skipped != 1 {
		t.Fatalf("entry = %+v, want run-1 with one skip", e)
	}

	close(release)
	dagtest.Eventually(t, "run-1 settled", func() bool {
		h, active := sup.Handle("run-1")
		return !active || settled(h)
	})
	s.fire("d")
	if got := s.Entries()[0].LastRunID; got != "run-2" {
		t.Errorf("LastRunID = %q, want run-2", got)
	}
	dagtest.WaitForStatus(t, store, "run-2", dag.RunCompleted)
}

func TestScheduler_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "tick.json", `{"name":"tick","schedule":"@every 1s","tasks":[{"id":"a","executor":"noop"}]}`)

	exec := dagtest.NewScriptedExecutor().Succeed("noop")
	sup, store := newSupervisor(t, exec)
	s := New(dir, sup, logger.Nop())

	if h := s.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("Health() before Start = %s", h.Status)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if h := s.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("Health() after Start = %s", h.Status)
	}
	if e := s.Entries()[0]; e.Next.IsZero() {
		t.Errorf("entry %+v has no next activation", e)
	}

	dagtest.WaitForStatus(t, store, "run-1", dag.RunCompleted)

	ctx, cancel := context.WithTimeout(context.Background(), dagtest.DefaultTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if d := s.Describe(); d.Type != "scheduler" || !strings.Contains(d.Details, "schedules=1") {
		t.Errorf("Describe() = %+v", d)
	}
}

func TestParseSchedule(t *testing.T) {
	for _, expr := range []string{"*/5 * * * *", "0 3 * * 1-5", "@daily", "@every 90s"} {
		if _, err := ParseSchedule(expr); err != nil {
			t.Errorf("ParseSchedule(%q) error = %v", expr, err)
		}
	}
	for _, expr := range []string{"", "* * *", "0 0 0 * * *"} {
		if _, err := ParseSchedule(expr); err == nil {
			t.Errorf("ParseSchedule(%q) expected error", expr)
		}
	}
}
