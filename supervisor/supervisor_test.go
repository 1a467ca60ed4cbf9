package supervisor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/dagflow/component"
	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/dagtest"
	"github.com/kbukum/dagflow/decision"
	apperrors "github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/resilience"
	"github.com/kbukum/dagflow/runstore"
	"github.com/kbukum/dagflow/storage"
	"github.com/kbukum/dagflow/storage/memory"
)

// --- test helpers ---

type fixture struct {
	sup     *Supervisor
	store   *runstore.MemoryStore
	exec    *dagtest.ScriptedExecutor
	archive *memory.Storage
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		store:   runstore.NewMemoryStore(),
		exec:    dagtest.NewScriptedExecutor(),
		archive: memory.New(),
	}
	f.sup = f.supervisor(t, cfg)
	return f
}

// supervisor builds a supervisor on the fixture's store, as a restarted
// process would.
func (f *fixture) supervisor(t *testing.T, cfg Config) *Supervisor {
	t.Helper()
	engine := dag.NewEngine(dag.EngineConfig{
		MaxParallel: 4,
		Retry: resilience.BackoffConfig{
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
		},
	}, f.store, f.exec)

	var n atomic.Int64
	s := New(cfg, engine, f.store,
		WithArchive(f.archive),
		WithIDGenerator(func() string { return fmt.Sprintf("run-%d", n.Add(1)) }),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), dagtest.DefaultTimeout)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func wait(t *testing.T, h *RunHandle) dag.RunReport {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), dagtest.DefaultTimeout)
	defer cancel()
	rep, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait(%s) error = %v", h.ID(), err)
	}
	return rep
}

func taskStatus(t *testing.T, rep dag.RunReport, id string) dag.TaskStatus {
	t.Helper()
	tr, ok := rep.Task(id)
	if !ok {
		t.Fatalf("task %s missing from report", id)
	}
	return tr.Status
}

func waitPending(t *testing.T, s *Supervisor, runID, taskID string) decision.Request {
	t.Helper()
	var req decision.Request
	dagtest.Eventually(t, taskID+" to wait for a decision", func() bool {
		h, ok := s.Handle(runID)
		if !ok {
			return false
		}
		for _, r := range h.Pending() {
			if r.TaskID == taskID {
				req = r
				return true
			}
		}
		return false
	})
	return req
}

func wantCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	if !apperrors.HasCode(err, code) {
		t.Errorf("error = %v, want code %s", err, code)
	}
}

var mech = decision.Mechanical(0)

// --- Submit ---

func TestSubmit_CompletesAndArchives(t *testing.T) {
	f := newFixture(t, Config{})
	f.exec.Succeed("a").Succeed("b")
	ctx := context.Background()

	h, err := f.sup.Submit(ctx, dagtest.Graph("pipe", dag.AllSuccess(),
		dagtest.Task("a", mech),
		dagtest.Task("b", mech, "a"),
	))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if h.ID() != "run-1" || h.Graph() != "pipe" {
		t.Errorf("handle = %s/%s", h.ID(), h.Graph())
	}

	rep := wait(t, h)
	if rep.Status != dag.RunCompleted {
		t.Fatalf("status = %s, want %s", rep.Status, dag.RunCompleted)
	}

	var archived dag.RunReport
	if err := storage.GetJSON(ctx, f.archive, "reports/run-1.json", &archived); err != nil {
		t.Fatalf("archived report: %v", err)
	}
	if archived.Status != dag.RunCompleted || len(archived.Tasks) != 2 {
		t.Errorf("archived = %+v", archived)
	}

	run, err := f.sup.Status(ctx, "run-1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if run.Status != dag.RunCompleted {
		t.Errorf("stored status = %s", run.Status)
	}
	if got := f.sup.List(ctx); len(got) != 0 {
		t.Errorf("List() after completion = %v", got)
	}
}

func TestSubmit_InvalidGraph(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.sup.Submit(context.Background(), dagtest.Graph("loop", dag.AllSuccess(),
		dagtest.Task("a", mech, "b"),
		dagtest.Task("b", mech, "a"),
	))
	wantCode(t, err, apperrors.ErrCodeGraphInvalid)
	if f.store.Len() != 0 {
		t.Errorf("store has %d runs, want none", f.store.Len())
	}
}

func TestSubmitDocument(t *testing.T) {
	f := newFixture(t, Config{})
	f.exec.Succeed("noop")
	doc := &dag.Document{Name: "doc", Tasks: []dag.TaskDoc{
		{ID: "one", Executor: "noop"},
		{ID: "two", Executor: "noop", DependsOn: []string{"one"}},
	}}
	h, err := f.sup.SubmitDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("SubmitDocument() error = %v", err)
	}
	if rep := wait(t, h); rep.Status != dag.RunCompleted {
		t.Errorf("status = %s", rep.Status)
	}
	if got := f.exec.Calls("noop"); got != 2 {
		t.Errorf("noop calls = %d, want 2", got)
	}
}

// --- signals ---

func TestApprove_BufferedBeforeWaiting(t *testing.T) {
	f := newFixture(t, Config{})
	release := make(chan struct{})
	f.exec.Block("a", release).Succeed("b")
	ctx := context.Background()

	h, err := f.sup.Submit(ctx, dagtest.Graph("g", dag.AllSuccess(),
		dagtest.Task("a", mech),
		dagtest.Task("b", decision.Confirmed(), "a"),
	))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// b is still Pending behind a; the approval waits in its mailbox.
	if err := f.sup.Approve(ctx, h.ID(), "b", "ship it"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	close(release)

	rep := wait(t, h)
	if rep.Status != dag.RunCompleted || taskStatus(t, rep, "b") != dag.TaskCompleted {
		t.Errorf("report = %+v", rep)
	}
}

func TestReject_AbortsAllSuccess(t *testing.T) {
	f := newFixture(t, Config{})
	f.exec.Succeed("a").Succeed("b")
	ctx := context.Background()

	h, _ := f.sup.Submit(ctx, dagtest.Graph("g", dag.AllSuccess(),
		dagtest.Task("a", mech),
		dagtest.Task("b", decision.Confirmed(), "a"),
	))
	waitPending(t, f.sup, h.ID(), "b")
	if err := f.sup.Reject(ctx, h.ID(), "b", "not today"); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	rep := wait(t, h)
	if rep.Status != dag.RunAborted {
		t.Errorf("status = %s, want %s", rep.Status, dag.RunAborted)
	}
	if taskStatus(t, rep, "a") != dag.TaskCompleted || taskStatus(t, rep, "b") != dag.TaskCancelled {
		t.Errorf("tasks = %+v", rep.Tasks)
	}
	if f.exec.Calls("b") != 0 {
		t.Errorf("rejected task was executed")
	}
}

func TestSignal_Rejections(t *testing.T) {
	f := newFixture(t, Config{})
	release := make(chan struct{})
	defer close(release)
	f.exec.Block("slow", release)
	ctx := context.Background()

	h, _ := f.sup.Submit(ctx, dagtest.Graph("g", dag.BestEffort(),
		dagtest.Task("slow", mech),
		dagtest.Task("confirm", decision.Confirmed()),
		dagtest.Task("vote", decision.Arbitrated([]string{"alice", "bob"}, 2)),
	))
	id := h.ID()
	waitPending(t, f.sup, id, "vote")

	wantCode(t, f.sup.Approve(ctx, "ghost", "confirm", ""), apperrors.ErrCodeRunNotFound)
	wantCode(t, f.sup.Approve(ctx, id, "ghost", ""), apperrors.ErrCodeTaskNotFound)
	wantCode(t, f.sup.Approve(ctx, id, "vote", ""), apperrors.ErrCodeSignalRejected)
	wantCode(t, f.sup.Vote(ctx, id, "confirm", "alice", true), apperrors.ErrCodeSignalRejected)
	wantCode(t, f.sup.Vote(ctx, id, "vote", "mallory", true), apperrors.ErrCodeSignalRejected)
	wantCode(t, f.sup.CancelTask(ctx, id, "slow", ""), apperrors.ErrCodeSignalRejected)
	wantCode(t, f.sup.Signal(ctx, id, "confirm", decision.Signal{Type: "shout"}), apperrors.ErrCodeSignalRejected)

	if err := f.sup.Cancel(ctx, id, "done testing"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	wait(t, h)
	wantCode(t, f.sup.Approve(ctx, id, "confirm", ""), apperrors.ErrCodeRunTerminal)
}

func TestSignal_RejectedAfterDecisionResolved(t *testing.T) {
	f := newFixture(t, Config{})
	release := make(chan struct{})
	f.exec.Block("ship", release)
	ctx := context.Background()

	h, _ := f.sup.Submit(ctx, dagtest.Graph("g", dag.AllSuccess(),
		dagtest.Task("ship", decision.Confirmed()),
	))
	id := h.ID()
	waitPending(t, f.sup, id, "ship")
	if err := f.sup.Approve(ctx, id, "ship", ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	dagtest.Eventually(t, "ship to execute", func() bool { return f.exec.Calls("ship") == 1 })

	// ship is Running; its decision is over.
	wantCode(t, f.sup.Approve(ctx, id, "ship", "again"), apperrors.ErrCodeSignalRejected)
	wantCode(t, f.sup.CancelTask(ctx, id, "ship", "too late"), apperrors.ErrCodeSignalRejected)

	close(release)
	if rep := wait(t, h); rep.Status != dag.RunCompleted {
		t.Errorf("status = %s, want %s", rep.Status, dag.RunCompleted)
	}
}

func TestVote_DuplicateIgnored(t *testing.T) {
	f := newFixture(t, Config{})
	f.exec.Succeed("deploy")
	ctx := context.Background()

	h, _ := f.sup.Submit(ctx, dagtest.Graph("g", dag.AllSuccess(),
		dagtest.Task("deploy", decision.Arbitrated([]string{"alice", "bob", "carol"}, 2)),
	))
	id := h.ID()
	waitPending(t, f.sup, id, "deploy")

	if err := f.sup.Vote(ctx, id, "deploy", "alice", true); err != nil {
		t.Fatalf("Vote(alice) error = %v", err)
	}
	dagtest.Eventually(t, "alice's vote to be counted", func() bool {
		req, ok := h.exec.PendingFor("deploy")
		return ok && len(req.Votes) == 1
	})
	// A second vote by alice does not make a quorum.
	if err := f.sup.Vote(ctx, id, "deploy", "alice", true); err != nil {
		t.Fatalf("repeated Vote(alice) error = %v", err)
	}
	if req := waitPending(t, f.sup, id, "deploy"); len(req.Votes) != 1 {
		t.Errorf("votes = %v, want alice's only", req.Votes)
	}

	if err := f.sup.Vote(ctx, id, "deploy", "bob", true); err != nil {
		t.Fatalf("Vote(bob) error = %v", err)
	}
	rep := wait(t, h)
	if rep.Status != dag.RunCompleted || f.exec.Calls("deploy") != 1 {
		t.Errorf("status = %s, deploy calls = %d", rep.Status, f.exec.Calls("deploy"))
	}
}

func TestCancelTask_Recommended(t *testing.T) {
	f := newFixture(t, Config{})
	f.exec.Succeed("notify").Succeed("after")
	ctx := context.Background()

	h, _ := f.sup.Submit(ctx, dagtest.Graph("g", dag.BestEffort(),
		dagtest.Task("notify", decision.Recommended(time.Hour, "")),
		dagtest.Task("after", mech, "notify"),
	))
	req := waitPending(t, f.sup, h.ID(), "notify")
	if req.Kind != decision.KindRecommended || req.Deadline == nil {
		t.Errorf("pending request = %+v", req)
	}
	if err := f.sup.CancelTask(ctx, h.ID(), "notify", "too noisy"); err != nil {
		t.Fatalf("CancelTask() error = %v", err)
	}

	rep := wait(t, h)
	if rep.Status != dag.RunCompletedWithFailures {
		t.Errorf("status = %s", rep.Status)
	}
	if taskStatus(t, rep, "notify") != dag.TaskCancelled || taskStatus(t, rep, "after") != dag.TaskCancelled {
		t.Errorf("tasks = %+v", rep.Tasks)
	}
}

// --- Cancel, Status, Pending, List ---

func TestCancel_ActiveRun(t *testing.T) {
	f := newFixture(t, Config{})
	release := make(chan struct{})
	defer close(release)
	f.exec.Block("a", release).Succeed("b")
	ctx := context.Background()

	h, _ := f.sup.Submit(ctx, dagtest.Graph("g", dag.AllSuccess(),
		dagtest.Task("a", mech),
		dagtest.Task("b", mech, "a"),
	))
	dagtest.WaitForTask(t, f.store, h.ID(), "a", dag.TaskRunning)

	summaries := f.sup.List(ctx)
	if len(summaries) != 1 || summaries[0].RunID != h.ID() || summaries[0].Status != dag.RunRunning {
		t.Errorf("List() = %+v", summaries)
	}

	if err := f.sup.Cancel(ctx, h.ID(), "operator"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	rep := wait(t, h)
	if rep.Status != dag.RunCancelled {
		t.Errorf("status = %s, want %s", rep.Status, dag.RunCancelled)
	}
	if taskStatus(t, rep, "a") != dag.TaskCancelled || taskStatus(t, rep, "b") != dag.TaskCancelled {
		t.Errorf("tasks = %+v", rep.Tasks)
	}
	wantCode(t, f.sup.Cancel(ctx, h.ID(), ""), apperrors.ErrCodeRunTerminal)
	wantCode(t, f.sup.Cancel(ctx, "ghost", ""), apperrors.ErrCodeRunNotFound)
}

func TestCancel_StoredRun(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	vg := dagtest.MustValidate(t, dagtest.Graph("g", dag.AllSuccess(),
		dagtest.Task("a", mech),
		dagtest.Task("b", mech, "a"),
	))
	if err := f.store.SaveRun(ctx, dag.NewRun("parked", vg)); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	if err := f.sup.Cancel(ctx, "parked", "no longer needed"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	run, err := f.sup.Status(ctx, "parked")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if run.Status != dag.RunCancelled {
		t.Errorf("status = %s", run.Status)
	}
	for id, st := range run.Tasks {
		if st.Status != dag.TaskCancelled || st.Failure == nil || st.Failure.Cause != dag.CauseRun {
			t.Errorf("task %s = %+v", id, st)
		}
	}
	if ok, _ := f.archive.Exists(ctx, "reports/parked.json"); !ok {
		t.Error("cancelled stored run was not archived")
	}
}

func TestStatusAndPending_Unknown(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	_, err := f.sup.Status(ctx, "ghost")
	wantCode(t, err, apperrors.ErrCodeRunNotFound)
	_, err = f.sup.Pending(ctx, "ghost")
	wantCode(t, err, apperrors.ErrCodeRunNotFound)
}

// --- Recover ---

// crashedRun stores a run as a crashed process would leave it: a
// Completed, b Running, c Pending.
func crashedRun(t *testing.T, store dag.RunStore, policy dag.ExecutionPolicy) {
	t.Helper()
	vg := dagtest.MustValidate(t, dagtest.Graph("crashed", policy,
		dagtest.Task("a", mech),
		dagtest.Task("b", mech, "a"),
		dagtest.Task("c", mech, "b"),
	))
	run := dag.NewRun("crashed", vg)
	now := time.Now().UTC()
	run.Status = dag.RunRunning
	run.Tasks["a"].Status = dag.TaskCompleted
	run.Tasks["a"].CompletedAt = &now
	run.Tasks["b"].Status = dag.TaskRunning
	run.Tasks["b"].StartedAt = &now
	if err := store.SaveRun(context.Background(), run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
}

func TestRecover_Reexecute(t *testing.T) {
	f := newFixture(t, Config{})
	f.exec.Succeed("a").Succeed("b").Succeed("c")
	crashedRun(t, f.store, dag.AllSuccess())
	ctx := context.Background()

	handles, err := f.sup.Recover(ctx)
	if err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if len(handles) != 1 || !handles[0].Recovered() {
		t.Fatalf("Recover() = %v", handles)
	}
	rep := wait(t, handles[0])
	if rep.Status != dag.RunCompleted {
		t.Errorf("status = %s", rep.Status)
	}
	if got := [3]int{f.exec.Calls("a"), f.exec.Calls("b"), f.exec.Calls("c")}; got != [3]int{0, 1, 1} {
		t.Errorf("calls a/b/c = %v, want [0 1 1]", got)
	}

	// Nothing is left to recover and nothing runs again.
	again, err := f.sup.Recover(ctx)
	if err != nil {
		t.Fatalf("second Recover() error = %v", err)
	}
	if len(again) != 0 || f.exec.TotalCalls() != 2 {
		t.Errorf("second Recover() = %d handles, %d calls", len(again), f.exec.TotalCalls())
	}
}

func TestRecover_TwiceWhileActive(t *testing.T) {
	f := newFixture(t, Config{})
	release := make(chan struct{})
	f.exec.Succeed("a").Block("b", release).Succeed("c")
	crashedRun(t, f.store, dag.AllSuccess())
	ctx := context.Background()

	first, err := f.sup.Recover(ctx)
	if err != nil || len(first) != 1 {
		t.Fatalf("Recover() = %v, %v", first, err)
	}
	dagtest.Eventually(t, "b to be re-executed", func() bool { return f.exec.Calls("b") == 1 })

	second, err := f.sup.Recover(ctx)
	if err != nil {
		t.Fatalf("second Recover() error = %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second Recover() resumed %d runs, want 0", len(second))
	}
	close(release)
	wait(t, first[0])
	if f.exec.Calls("a") != 0 || f.exec.Calls("b") != 1 {
		t.Errorf("calls a=%d b=%d", f.exec.Calls("a"), f.exec.Calls("b"))
	}
}

func TestRecover_Concurrent(t *testing.T) {
	f := newFixture(t, Config{})
	release := make(chan struct{})
	f.exec.Succeed("a").Block("b", release).Succeed("c")
	crashedRun(t, f.store, dag.AllSuccess())
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		handles []*RunHandle
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hs, err := f.sup.Recover(ctx)
			if err != nil {
				t.Errorf("Recover() error = %v", err)
				return
			}
			mu.Lock()
			handles = append(handles, hs...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(handles) != 1 {
		t.Fatalf("concurrent Recover() started %d executions, want 1", len(handles))
	}
	close(release)
	if rep := wait(t, handles[0]); rep.Status != dag.RunCompleted {
		t.Errorf("status = %s, want %s", rep.Status, dag.RunCompleted)
	}
	if got := f.exec.Calls("b"); got != 1 {
		t.Errorf("b calls = %d, want 1", got)
	}
}

func TestRecover_FailMode(t *testing.T) {
	f := newFixture(t, Config{RecoveryMode: dag.RecoveryFail})
	f.exec.Succeed("c")
	crashedRun(t, f.store, dag.AllSuccess())

	handles, err := f.sup.Recover(context.Background())
	if err != nil || len(handles) != 1 {
		t.Fatalf("Recover() = %v, %v", handles, err)
	}
	rep := wait(t, handles[0])
	if rep.Status != dag.RunAborted {
		t.Errorf("status = %s, want %s", rep.Status, dag.RunAborted)
	}
	b, _ := rep.Task("b")
	if b.Status != dag.TaskFailed || b.Failure == nil || b.Failure.Kind != dag.FailureOrphaned {
		t.Errorf("b = %+v", b)
	}
	if taskStatus(t, rep, "c") != dag.TaskCancelled || f.exec.TotalCalls() != 0 {
		t.Errorf("c = %s, calls = %d", taskStatus(t, rep, "c"), f.exec.TotalCalls())
	}
}

func TestShutdown_LeavesRunForRecovery(t *testing.T) {
	f := newFixture(t, Config{})
	release := make(chan struct{})
	f.exec.Succeed("a").Block("b", release).Succeed("c")
	ctx := context.Background()

	h, _ := f.sup.Submit(ctx, dagtest.Graph("g", dag.AllSuccess(),
		dagtest.Task("a", mech),
		dagtest.Task("b", mech, "a"),
		dagtest.Task("c", mech, "b"),
	))
	dagtest.WaitForTask(t, f.store, h.ID(), "b", dag.TaskRunning)

	shutdownCtx, cancel := context.WithTimeout(ctx, dagtest.DefaultTimeout)
	defer cancel()
	if err := f.sup.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if _, err := h.Wait(ctx); err == nil {
		t.Error("Wait() after Shutdown returned no error")
	}
	if _, err := f.sup.Submit(ctx, dagtest.Graph("late", dag.AllSuccess(), dagtest.Task("a", mech))); !apperrors.HasCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Errorf("Submit() after Shutdown error = %v", err)
	}
	if f.sup.Health(ctx).Status != component.StatusUnhealthy {
		t.Error("Health() after Shutdown is not unhealthy")
	}

	stored, _ := f.store.LoadRun(ctx, h.ID())
	if stored.Status != dag.RunRunning || stored.Tasks["a"].Status != dag.TaskCompleted {
		t.Fatalf("stored run = %s, a = %s", stored.Status, stored.Tasks["a"].Status)
	}

	// A restarted process picks the run up where it stopped.
	close(release)
	next := f.supervisor(t, Config{})
	if err := next.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	resumed, ok := next.Handle(h.ID())
	if !ok {
		dagtest.WaitForStatus(t, f.store, h.ID(), dag.RunCompleted)
	} else if rep := wait(t, resumed); rep.Status != dag.RunCompleted {
		t.Errorf("resumed status = %s", rep.Status)
	}
	if f.exec.Calls("a") != 1 || f.exec.Calls("c") != 1 {
		t.Errorf("calls a=%d c=%d", f.exec.Calls("a"), f.exec.Calls("c"))
	}
}

func TestConfig(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.RecoveryMode != dag.RecoveryReexecute || cfg.ArchivePrefix != "reports" {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	cfg.RecoveryMode = "retry"
	cfg.RecoverConcurrency = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown recovery mode and zero concurrency")
	}
	for _, field := range []string{"recovery.mode", "recovery.concurrency"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("Validate() error = %q, want mention of %s", err, field)
		}
	}
	if got := ReportPath("reports", "r1"); got != "reports/r1.json" {
		t.Errorf("ReportPath() = %q", got)
	}
}
