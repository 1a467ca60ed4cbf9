package dag

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/kbukum/dagflow/decision"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/observability"
	"github.com/kbukum/dagflow/resilience"
)

// EngineConfig configures the execution engine.
type EngineConfig struct {
	// MaxParallel bounds concurrent executor calls across all runs.
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel"`
	// Retry shapes the delay between Mechanical attempts.
	Retry resilience.BackoffConfig `yaml:"retry" mapstructure:"retry"`
	// PersistAttempts is how often a store write is tried before the run
	// is left for recovery.
	PersistAttempts int `yaml:"persist_attempts" mapstructure:"persist_attempts"`
}

// ApplyDefaults fills unset values.
func (c *EngineConfig) ApplyDefaults() {
	if c.MaxParallel <= 0 {
		c.MaxParallel = 8
	}
	if c.PersistAttempts <= 0 {
		c.PersistAttempts = 3
	}
	c.Retry.ApplyDefaults()
}

// Validate checks the configuration.
func (c *EngineConfig) Validate() error {
	if c.MaxParallel < 1 {
		return fmt.Errorf("engine.max_parallel must be >= 1 (got: %d)", c.MaxParallel)
	}
	if c.PersistAttempts < 1 {
		return fmt.Errorf("engine.persist_attempts must be >= 1 (got: %d)", c.PersistAttempts)
	}
	return c.Retry.Validate()
}

// Engine executes validated graphs. One Engine serves any number of
// concurrent runs; its worker pool is shared between them.
type Engine struct {
	cfg      EngineConfig
	store    RunStore
	exec     Executor
	notifier Notifier
	hub      *decision.Hub
	log      *logger.Logger
	metrics  *observability.Metrics
	pool     *resilience.Bulkhead
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the event notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithHub sets the signal hub decision waits read from.
func WithHub(h *decision.Hub) Option {
	return func(e *Engine) { e.hub = h }
}

// WithMetrics records executor calls, decisions and runs.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine. The executor is wrapped with tracing and
// logging, and with metrics when WithMetrics is given.
func NewEngine(cfg EngineConfig, store RunStore, exec Executor, opts ...Option) *Engine {
	cfg.ApplyDefaults()
	e := &Engine{
		cfg:      cfg,
		store:    store,
		notifier: nopNotifier{},
		hub:      decision.NewHub(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithComponent("engine")

	exec = WithLogging(exec, e.log)
	if e.metrics != nil {
		exec = WithExecutorMetrics(exec, e.metrics)
	}
	e.exec = WithTracing(exec, "executor")

	e.pool = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "executors",
		MaxConcurrent: cfg.MaxParallel,
		MaxWait:       resilience.WaitForSlot,
	})
	return e
}

// Hub returns the signal hub of the engine.
func (e *Engine) Hub() *decision.Hub { return e.hub }

// Pool returns the executor worker pool.
func (e *Engine) Pool() *resilience.Bulkhead { return e.pool }

// Run executes a run to its end and returns the report. See Start.
func (e *Engine) Run(ctx context.Context, run *DagRun, vg *ValidatedGraph) (RunReport, error) {
	x := e.Start(ctx, run, vg)
	<-x.Done()
	return x.Report(), x.Err()
}

// Start begins executing run in the background. The engine takes ownership
// of run; read it through the returned Execution.
//
// A run in status Pending starts fresh. A run in status Running is resumed:
// terminal tasks are kept, failures are re-applied to the policy, and the
// remaining tasks are scheduled. Tasks must not be Running on entry; see
// PrepareRecovery.
//
// Cancelling ctx interrupts the execution without concluding the run. The
// results of executor calls that still complete are stored, the run stays
// Running in the store, and Err returns ErrInterrupted.
func (e *Engine) Start(ctx context.Context, run *DagRun, vg *ValidatedGraph) *Execution {
	x := &Execution{
		engine:   e,
		vg:       vg,
		run:      run,
		log:      e.log.WithRun(run.ID),
		pending:  make(map[string]decision.Request),
		results:  make(chan taskResult, vg.Len()+1),
		cancelCh: make(chan string, 1),
		done:     make(chan struct{}),
	}
	go x.loop(ctx)
	return x
}

// Execution is a run in progress. All task state is written by a single
// loop goroutine; the accessors return copies.
type Execution struct {
	engine *Engine
	vg     *ValidatedGraph
	log    *logger.Logger

	mu      sync.RWMutex
	run     *DagRun
	pending map[string]decision.Request

	results    chan taskResult
	cancelCh   chan string
	cancelOnce sync.Once
	done       chan struct{}
	err        error

	// loop-owned
	parent      context.Context
	runCtx      context.Context
	storeCtx    context.Context
	cancelRun   context.CancelFunc
	inflight    int
	stopping    bool
	aborted     bool
	cancelled   bool
	interrupted bool
	cause       string
	causeTask   string
}

type taskResult struct {
	taskID   string
	status   TaskStatus
	result   json.RawMessage
	failure  *Failure
	attempts int
	byRun    bool
}

// RunID returns the id of the run.
func (x *Execution) RunID() string { return x.run.ID }

// Done is closed when the execution has ended.
func (x *Execution) Done() <-chan struct{} { return x.done }

// Err returns nil once the run concluded and was stored. It returns
// ErrInterrupted when the parent context ended first, or the store error
// that stopped the run.
func (x *Execution) Err() error {
	select {
	case <-x.done:
		return x.err
	default:
		return nil
	}
}

// Cancel stops scheduling, cancels every task that has not started, and
// interrupts decision waits and executor calls. Executor calls are still
// awaited. Only the first call has an effect.
func (x *Execution) Cancel(reason string) {
	x.cancelOnce.Do(func() {
		if reason == "" {
			reason = "cancelled"
		}
		x.cancelCh <- reason
	})
}

// Snapshot returns a copy of the run as last written.
func (x *Execution) Snapshot() *DagRun {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.run.Clone()
}

// Report summarizes the run as last written.
func (x *Execution) Report() RunReport {
	return x.Snapshot().Report()
}

// Pending returns the decisions currently waiting for a signal, ordered by
// task id.
func (x *Execution) Pending() []decision.Request {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]decision.Request, 0, len(x.pending))
	for _, id := range sortedKeys(x.pending) {
		out = append(out, x.pending[id])
	}
	return out
}

// PendingFor returns the waiting decision of one task.
func (x *Execution) PendingFor(taskID string) (decision.Request, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	req, ok := x.pending[taskID]
	return req, ok
}

// Waiting implements decision.Observer.
func (x *Execution) Waiting(req decision.Request) {
	x.mu.Lock()
	x.pending[req.TaskID] = req
	x.mu.Unlock()

	x.log.Info("decision waiting", logger.Fields(
		logger.FieldTaskID, req.TaskID,
		logger.FieldDecision, string(req.Kind),
	))
	x.notify(Event{Type: EventDecisionWaiting, TaskID: req.TaskID, Decision: &req})
}

// VoteCounted implements decision.Observer.
func (x *Execution) VoteCounted(req decision.Request) {
	x.mu.Lock()
	if cur, ok := x.pending[req.TaskID]; ok {
		cur.Votes = req.Votes
		req = cur
		x.pending[req.TaskID] = cur
	}
	x.mu.Unlock()

	if n := len(req.Votes); n > 0 {
		last := req.Votes[n-1]
		x.log.Info("vote counted", logger.Fields(
			logger.FieldTaskID, req.TaskID,
			logger.FieldStakeholder, last.Stakeholder,
			"approved", last.Approved,
			"votes", n,
			"quorum", req.Quorum,
		))
	}
	x.notify(Event{Type: EventVoteCounted, TaskID: req.TaskID, Decision: &req})
}

func (x *Execution) loop(parent context.Context) {
	defer close(x.done)

	rt := observability.NewRunTrace(x.vg.Graph().Name, x.run.ID, x.engine.metrics)
	spanCtx, span := rt.Start(parent)
	runCtx, cancelRun := context.WithCancel(spanCtx)
	defer cancelRun()

	x.parent = parent
	x.runCtx = runCtx
	x.storeCtx = context.WithoutCancel(parent)
	x.cancelRun = cancelRun

	if err := x.begin(); err != nil {
		x.err = err
		rt.End(spanCtx, span, string(x.run.Status), err)
		return
	}

	parentDone := parent.Done()
	cancelCh := x.cancelCh
	for x.inflight > 0 {
		select {
		case res := <-x.results:
			x.inflight--
			x.handle(res)
		case reason := <-cancelCh:
			cancelCh = nil
			x.cancelExternally(reason)
		case <-parentDone:
			parentDone = nil
			x.interrupt("parent context done")
		}
		if !x.stopping {
			x.scheduleReady()
		}
	}

	// Cancel may arrive while nothing is in flight, e.g. every ready task
	// just finished. Drain it so the final status reflects it.
	if !x.stopping {
		select {
		case reason := <-cancelCh:
			x.cancelExternally(reason)
		default:
		}
	}

	if x.interrupted {
		if x.err == nil {
			x.err = ErrInterrupted
		}
		x.log.Warn("run interrupted, left for recovery", logger.Fields(logger.FieldStatus, string(x.run.Status)))
		rt.End(spanCtx, span, "interrupted", x.err)
		return
	}

	x.conclude()
	x.engine.hub.ReleaseRun(x.run.ID)
	rt.End(spanCtx, span, string(x.run.Status), x.err)
}

// begin marks the run Running, re-applies the policy to recovered failures
// and schedules the first ready tasks.
func (x *Execution) begin() error {
	g := x.vg.Graph()
	resumed := x.run.Status == RunRunning

	x.update(func(r *DagRun) {
		r.Status = RunRunning
		r.UpdatedAt = time.Now().UTC()
	})
	if err := x.persist("save run", func(ctx context.Context) error {
		return x.engine.store.SaveRun(ctx, x.run)
	}); err != nil {
		return err
	}

	x.log.Info("run started", logger.Fields(
		"graph", g.Name,
		logger.FieldTaskCount, x.vg.Len(),
		logger.FieldPolicy, g.Policy.String(),
		"resumed", resumed,
	))
	x.notify(Event{Type: EventRunStarted, RunStatus: RunRunning})

	if resumed {
		var touched []string
		x.update(func(r *DagRun) { touched = PrepareRecovery(r, RecoveryReexecute) })
		for _, id := range touched {
			if !x.store(*x.run.Tasks[id]) {
				return x.err
			}
		}
		for _, id := range x.vg.IDs() {
			st := x.run.Tasks[id]
			if x.stopping {
				break
			}
			if isRootFailure(st) {
				x.applyPolicy(id, st.Failure)
			}
		}
	}

	if !x.stopping {
		x.scheduleReady()
	}
	return nil
}

// scheduleReady dispatches every Pending task whose dependencies all
// completed.
func (x *Execution) scheduleReady() {
	for _, id := range x.vg.IDs() {
		if x.stopping {
			return
		}
		st := x.run.Tasks[id]
		if st.Status != TaskPending || !x.depsCompleted(id) {
			continue
		}
		x.dispatch(id)
	}
}

func (x *Execution) depsCompleted(id string) bool {
	t, _ := x.vg.Task(id)
	for _, dep := range t.DependsOn {
		if x.run.Tasks[dep].Status != TaskCompleted {
			return false
		}
	}
	return true
}

func (x *Execution) dispatch(id string) {
	now := time.Now().UTC()
	next := *x.run.Tasks[id]
	if err := checkTransition(id, next.Status, TaskRunning); err != nil {
		x.log.Error("dispatch rejected", logger.ErrorFields("dispatch", err))
		return
	}
	next.Status = TaskRunning
	next.StartedAt = &now
	next.CompletedAt = nil
	next.Attempts = 0
	next.UpdatedAt = now

	if !x.store(next) {
		return
	}

	t, _ := x.vg.Task(id)
	x.log.Debug("task dispatched", logger.Fields(
		logger.FieldTaskID, id,
		logger.FieldExecutor, t.Executor.Type,
		logger.FieldDecision, t.Decision.String(),
		logger.FieldLayer, x.vg.Layer(id),
	))

	x.inflight++
	go x.work(x.runCtx, t)
}

// work authorizes and executes one task, then reports back to the loop.
// It runs outside the worker pool until the executor is actually called.
func (x *Execution) work(ctx context.Context, t Task) {
	runID := x.run.ID
	ctx = logger.ContextWithTaskID(logger.ContextWithRunID(ctx, runID), t.ID)
	res := taskResult{taskID: t.ID}

	waitStart := time.Now()
	out := decision.Authorize(ctx, t.Decision, decision.TaskContext{
		RunID:       runID,
		TaskID:      t.ID,
		ExecutorTag: t.Executor.Type,
		Mailbox:     x.engine.hub.Mailbox(runID, t.ID),
		Observer:    x,
	})
	x.engine.hub.Release(runID, t.ID)
	x.mu.Lock()
	delete(x.pending, t.ID)
	x.mu.Unlock()

	if t.Decision.Waits() {
		if x.engine.metrics != nil {
			x.engine.metrics.RecordDecision(ctx, string(t.Decision.Kind), string(out.Verdict), time.Since(waitStart))
		}
		x.log.Info("decision resolved", logger.Fields(
			logger.FieldTaskID, t.ID,
			logger.FieldDecision, string(t.Decision.Kind),
			"verdict", string(out.Verdict),
			"reason", out.Reason,
		))
	}

	switch out.Verdict {
	case decision.Proceed:
		tag := t.Executor.Type
		if out.ExecutorTag != "" {
			tag = out.ExecutorTag
		}
		result, attempts, err := x.execute(ctx, t, tag)
		res.attempts = attempts
		switch {
		case err == nil:
			res.status = TaskCompleted
			res.result = result
		case ctx.Err() != nil:
			// The run stopped during the call or between retries.
			res.status = TaskCancelled
			res.failure = &Failure{Kind: FailureCancelled, Message: "executor call cancelled"}
			res.byRun = true
		default:
			res.status = TaskFailed
			res.failure = newFailure(err)
		}
	case decision.Cancelled:
		res.status = TaskCancelled
		res.failure = &Failure{Kind: FailureCancelled, Message: out.Reason}
		res.byRun = out.ByRun
	default:
		res.status = TaskFailed
		if out.Err != nil {
			res.failure = newFailure(out.Err)
		} else {
			res.failure = &Failure{Kind: FailureExecutor, Message: out.Reason}
		}
	}

	x.results <- res
}

// execute calls the executor, retrying as the decision level allows. Each
// attempt holds a pool slot only while the executor runs.
func (x *Execution) execute(ctx context.Context, t Task, tag string) (json.RawMessage, int, error) {
	attempts := 0
	cfg := x.engine.cfg.Retry.RetryConfig(t.Decision.Attempts())
	// An executor's own deadline is an ordinary failure; only the run's
	// context stops retrying.
	cfg.RetryIf = func(err error) bool {
		return ctx.Err() == nil && !resilience.IsPermanent(err)
	}
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		x.log.Warn("task attempt failed, retrying", logger.Fields(
			logger.FieldTaskID, t.ID,
			logger.FieldExecutor, tag,
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			"backoff_ms", backoff.Milliseconds(),
		))
	}

	result, err := resilience.Retry(ctx, cfg, func() (json.RawMessage, error) {
		return resilience.ExecuteWithResult(x.engine.pool, ctx, func() (json.RawMessage, error) {
			attempts++
			return x.engine.exec.Execute(ctx, tag, maps.Clone(t.Executor.Params))
		})
	})
	return result, attempts, err
}

// handle records a task result: store first, then memory, then notify,
// then policy and readiness.
func (x *Execution) handle(res taskResult) {
	if x.interrupted || x.parent.Err() != nil {
		if !x.interrupted {
			x.interrupt("parent context done")
		}
		// Only finished work survives an interruption; everything else is
		// re-run on recovery.
		if res.status == TaskCompleted {
			x.record(res)
		}
		return
	}

	if res.byRun && x.stopping {
		res.failure.Message = x.cause
		res.failure.Cause = x.causeTask
	}
	if !x.record(res) {
		return
	}

	if x.stopping {
		return
	}
	switch {
	case res.status == TaskFailed:
		x.applyPolicy(res.taskID, res.failure)
	case res.status == TaskCancelled && !res.byRun:
		x.applyPolicy(res.taskID, res.failure)
	}
}

func (x *Execution) record(res taskResult) bool {
	now := time.Now().UTC()
	next := *x.run.Tasks[res.taskID]
	if err := checkTransition(res.taskID, next.Status, res.status); err != nil {
		x.log.Error("result rejected", logger.ErrorFields("record", err))
		return false
	}
	next.Status = res.status
	next.Result = res.result
	next.Failure = res.failure
	next.Attempts = res.attempts
	next.CompletedAt = &now
	next.UpdatedAt = now

	if !x.store(next) {
		return false
	}

	fields := logger.Fields(
		logger.FieldTaskID, res.taskID,
		logger.FieldStatus, string(res.status),
		logger.FieldAttempt, res.attempts,
	)
	if next.StartedAt != nil {
		fields[logger.FieldDuration] = now.Sub(*next.StartedAt).Milliseconds()
	}
	if res.failure != nil {
		fields[logger.FieldFailureKind] = string(res.failure.Kind)
		fields[logger.FieldError] = res.failure.Message
		x.log.Warn("task finished", fields)
	} else {
		x.log.Info("task finished", fields)
	}
	return true
}

// applyPolicy decides what a failed or decision-cancelled task means for
// the run.
func (x *Execution) applyPolicy(id string, f *Failure) {
	policy := x.vg.Graph().Policy
	if policy.Tolerates(f.Kind) {
		x.cancelDependents(id)
		return
	}
	x.abort(id, fmt.Sprintf("task %s failed (%s): %s", id, f.Kind, f.Message))
}

// cancelDependents cancels every Pending task downstream of id.
func (x *Execution) cancelDependents(id string) {
	queue := x.vg.Dependents(id)
	from := map[string]string{}
	for _, d := range queue {
		from[d] = id
	}
	for len(queue) > 0 {
		dep := queue[0]
		queue = queue[1:]
		if x.run.Tasks[dep].Status != TaskPending {
			continue
		}
		upstream := from[dep]
		if !x.cancelTask(dep, &Failure{
			Kind:    FailureCancelled,
			Message: fmt.Sprintf("dependency %s did not complete", upstream),
			Cause:   upstream,
		}) {
			return
		}
		for _, next := range x.vg.Dependents(dep) {
			if _, seen := from[next]; !seen {
				from[next] = dep
			}
			queue = append(queue, next)
		}
	}
}

func (x *Execution) abort(cause, reason string) {
	x.stopping = true
	x.aborted = true
	x.cause = "run aborted: " + reason
	x.causeTask = cause
	x.update(func(r *DagRun) { r.Reason = reason })
	x.log.Warn("run aborting", logger.Fields(logger.FieldTaskID, cause, "reason", reason))
	x.cancelPending()
	x.cancelRun()
}

func (x *Execution) cancelExternally(reason string) {
	if x.stopping {
		return
	}
	x.stopping = true
	x.cancelled = true
	x.cause = "run cancelled: " + reason
	x.causeTask = CauseRun
	x.update(func(r *DagRun) { r.Reason = reason })
	x.log.Info("run cancelling", logger.Fields("reason", reason, "in_flight", x.inflight))
	x.cancelPending()
	x.cancelRun()
}

func (x *Execution) interrupt(reason string) {
	x.stopping = true
	x.interrupted = true
	x.cancelRun()
	x.log.Warn("run interrupting", logger.Fields("reason", reason, "in_flight", x.inflight))
}

func (x *Execution) cancelPending() {
	for _, id := range x.vg.IDs() {
		if x.run.Tasks[id].Status != TaskPending {
			continue
		}
		if !x.cancelTask(id, &Failure{Kind: FailureCancelled, Message: x.cause, Cause: x.causeTask}) {
			return
		}
	}
}

func (x *Execution) cancelTask(id string, f *Failure) bool {
	now := time.Now().UTC()
	next := *x.run.Tasks[id]
	next.Status = TaskCancelled
	next.Failure = f
	next.CompletedAt = &now
	next.UpdatedAt = now
	if !x.store(next) {
		return false
	}
	x.log.Debug("task cancelled", logger.Fields(logger.FieldTaskID, id, "reason", f.Message))
	return true
}

// store persists a task state, then publishes it in memory and as an
// event. A store that keeps failing interrupts the run.
func (x *Execution) store(next TaskState) bool {
	err := x.persist("save task "+next.TaskID, func(ctx context.Context) error {
		return x.engine.store.SaveTaskStatus(ctx, x.run.ID, next.TaskID, next)
	})
	if err != nil {
		x.err = err
		if !x.interrupted {
			x.interrupt("store unavailable")
		}
		return false
	}

	x.update(func(r *DagRun) {
		r.Tasks[next.TaskID] = &next
		r.UpdatedAt = next.UpdatedAt
	})
	x.notify(Event{
		Type:       EventTaskStatus,
		TaskID:     next.TaskID,
		TaskStatus: next.Status,
		Failure:    next.Failure,
	})
	return true
}

func (x *Execution) persist(op string, fn func(ctx context.Context) error) error {
	cfg := resilience.RetryConfig{
		MaxAttempts:    x.engine.cfg.PersistAttempts,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     time.Second,
		BackoffFactor:  2,
		RetryIf:        func(error) bool { return true },
		OnRetry: func(attempt int, err error, _ time.Duration) {
			x.log.Warn("store write failed, retrying", logger.Fields(
				logger.FieldOperation, op,
				logger.FieldAttempt, attempt,
				logger.FieldError, err.Error(),
			))
		},
	}
	err := resilience.RetryFunc(x.storeCtx, cfg, func() error { return fn(x.storeCtx) })
	if err != nil {
		x.log.Error("store write failed", logger.ErrorFields(op, err))
		if x.engine.metrics != nil {
			x.engine.metrics.RecordError(x.storeCtx, "store", "engine")
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// conclude computes and stores the final run status.
func (x *Execution) conclude() {
	counts := x.run.Counts()
	status := RunCompleted
	switch {
	case x.cancelled:
		status = RunCancelled
	case x.aborted:
		status = RunAborted
	case counts[TaskCompleted] != len(x.run.Tasks):
		status = RunCompletedWithFailures
	}

	now := time.Now().UTC()
	x.update(func(r *DagRun) {
		r.Status = status
		r.CompletedAt = &now
		r.UpdatedAt = now
	})
	if err := x.persist("save run", func(ctx context.Context) error {
		return x.engine.store.SaveRun(ctx, x.run)
	}); err != nil {
		x.err = err
	}

	x.log.Info("run finished", logger.Fields(
		logger.FieldStatus, string(status),
		"completed", counts[TaskCompleted],
		"failed", counts[TaskFailed],
		"cancelled", counts[TaskCancelled],
		logger.FieldDuration, now.Sub(x.run.CreatedAt).Milliseconds(),
	))
	x.notify(Event{Type: EventRunFinished, RunStatus: status})
}

func (x *Execution) update(fn func(r *DagRun)) {
	x.mu.Lock()
	fn(x.run)
	x.mu.Unlock()
}

func (x *Execution) notify(ev Event) {
	ev.RunID = x.run.ID
	ev.Graph = x.vg.Graph().Name
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	x.engine.notifier.Notify(x.storeCtx, ev)
}

// isRootFailure reports whether a stored task failed on its own rather than
// being cancelled because of another task.
func isRootFailure(st *TaskState) bool {
	switch st.Status {
	case TaskFailed:
		return true
	case TaskCancelled:
		return st.Failure != nil && st.Failure.Cause == ""
	default:
		return false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
