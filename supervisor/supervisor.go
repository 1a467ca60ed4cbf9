package supervisor

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/dagflow/component"
	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/decision"
	apperrors "github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/storage"
)

// Supervisor submits, cancels, inspects and recovers runs.
type Supervisor struct {
	cfg     Config
	engine  *dag.Engine
	store   dag.RunStore
	archive storage.Storage
	log     *logger.Logger
	newID   func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	active map[string]*RunHandle
}

var _ component.Component = (*Supervisor)(nil)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithArchive stores the report of every finished run in st under
// "<archive_prefix>/<run_id>.json".
func WithArchive(st storage.Storage) Option {
	return func(s *Supervisor) { s.archive = st }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Supervisor) { s.log = l }
}

// WithIDGenerator replaces the uuid run id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Supervisor) { s.newID = fn }
}

// New creates a supervisor. Runs execute on engine and are persisted in
// store, which must be the store the engine writes to.
func New(cfg Config, engine *dag.Engine, store dag.RunStore, opts ...Option) *Supervisor {
	cfg.ApplyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		cfg:    cfg,
		engine: engine,
		store:  store,
		log:    logger.Nop(),
		newID:  uuid.NewString,
		ctx:    ctx,
		cancel: cancel,
		active: make(map[string]*RunHandle),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("supervisor")
	return s
}

// Submit validates the graph, persists a new run and starts it. A graph
// that fails validation is rejected with a GRAPH_INVALID error and no run
// is created.
func (s *Supervisor) Submit(ctx context.Context, g *dag.Graph) (*RunHandle, error) {
	if s.ctx.Err() != nil {
		return nil, apperrors.ServiceUnavailable("supervisor")
	}
	vg, err := dag.Validate(g)
	if err != nil {
		return nil, apperrors.GraphInvalid(err)
	}

	run := dag.NewRun(s.newID(), vg)
	if err := s.store.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("persist run %s: %w", run.ID, err)
	}
	s.log.Info("run submitted", logger.Fields(
		logger.FieldRunID, run.ID,
		"graph", g.Name,
		logger.FieldTaskCount, vg.Len(),
	))
	h, _ := s.start(run, vg, false)
	return h, nil
}

// SubmitDocument converts a document to a graph and submits it.
func (s *Supervisor) SubmitDocument(ctx context.Context, doc *dag.Document) (*RunHandle, error) {
	g, err := doc.ToGraph()
	if err != nil {
		return nil, apperrors.GraphInvalid(err)
	}
	return s.Submit(ctx, g)
}

// start executes run unless it already executes here, in which case the
// existing handle is returned and started is false.
func (s *Supervisor) start(run *dag.DagRun, vg *dag.ValidatedGraph, recovered bool) (h *RunHandle, started bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.active[run.ID]; ok {
		return cur, false
	}
	h = &RunHandle{
		id:        run.ID,
		graph:     vg.Graph().Name,
		createdAt: run.CreatedAt,
		recovered: recovered,
		settled:   make(chan struct{}),
	}
	h.exec = s.engine.Start(s.ctx, run, vg)
	s.active[run.ID] = h

	s.wg.Add(1)
	go s.watch(h)
	return h, true
}

func (s *Supervisor) watch(h *RunHandle) {
	defer s.wg.Done()
	defer close(h.settled)
	<-h.exec.Done()

	// Released before the run leaves the active set so a recovered
	// execution of it never sees this one's mailboxes.
	s.engine.Hub().ReleaseRun(h.id)
	s.mu.Lock()
	if s.active[h.id] == h {
		delete(s.active, h.id)
	}
	s.mu.Unlock()

	if err := h.exec.Err(); err != nil {
		s.log.Warn("run stopped before concluding", logger.Fields(
			logger.FieldRunID, h.id,
			logger.FieldError, err.Error(),
		))
		return
	}
	rep := h.exec.Report()
	s.log.Info("run finished", logger.Fields(
		logger.FieldRunID, h.id,
		logger.FieldStatus, string(rep.Status),
		logger.FieldDuration, rep.Duration.Milliseconds(),
	))
	s.archiveReport(rep)
}

func (s *Supervisor) archiveReport(rep dag.RunReport) {
	if s.archive == nil {
		return
	}
	key := ReportPath(s.cfg.ArchivePrefix, rep.RunID)
	// The run is over; archive even while shutting down.
	ctx := context.WithoutCancel(s.ctx)
	if err := storage.PutJSON(ctx, s.archive, key, rep); err != nil {
		s.log.Error("archive run report", logger.MergeWithError(logger.Fields(logger.FieldRunID, rep.RunID, "path", key), err))
		return
	}
	s.log.Debug("run report archived", logger.Fields(logger.FieldRunID, rep.RunID, "path", key))
}

// ReportPath returns the storage path of a run's archived report.
func ReportPath(prefix, runID string) string {
	return path.Join(prefix, runID+".json")
}

// Cancel stops a run. Tasks that have not started are cancelled, decision
// waits are interrupted, and executor calls get a cancellation signal and
// are awaited. A non-terminal run not executing in this process is
// cancelled directly in the store.
func (s *Supervisor) Cancel(ctx context.Context, runID, reason string) error {
	if reason == "" {
		reason = "cancelled by request"
	}
	if h, ok := s.handle(runID); ok {
		s.log.Info("cancelling run", logger.Fields(logger.FieldRunID, runID, "reason", reason))
		h.exec.Cancel(reason)
		return nil
	}

	run, err := s.store.LoadRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status.IsTerminal() {
		return apperrors.RunTerminal(runID, string(run.Status))
	}
	dag.CancelStored(run, reason)
	if err := s.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("persist cancelled run %s: %w", runID, err)
	}
	s.log.Info("cancelled inactive run", logger.Fields(logger.FieldRunID, runID, "reason", reason))
	s.archiveReport(run.Report())
	return nil
}

// Status returns a copy of the run: live for runs executing in this
// process, from the store otherwise.
func (s *Supervisor) Status(ctx context.Context, runID string) (*dag.DagRun, error) {
	if h, ok := s.handle(runID); ok {
		return h.exec.Snapshot(), nil
	}
	return s.store.LoadRun(ctx, runID)
}

// Handle returns the handle of a run executing in this process.
func (s *Supervisor) Handle(runID string) (*RunHandle, bool) {
	return s.handle(runID)
}

func (s *Supervisor) handle(runID string) (*RunHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.active[runID]
	return h, ok
}

// Pending lists the decisions of a run that wait for a signal. Runs not
// executing in this process have none.
func (s *Supervisor) Pending(ctx context.Context, runID string) ([]decision.Request, error) {
	if h, ok := s.handle(runID); ok {
		return h.exec.Pending(), nil
	}
	if _, err := s.store.LoadRun(ctx, runID); err != nil {
		return nil, err
	}
	return []decision.Request{}, nil
}

// List summarizes the runs executing in this process, oldest first.
func (s *Supervisor) List(_ context.Context) []RunSummary {
	s.mu.RLock()
	handles := make([]*RunHandle, 0, len(s.active))
	for _, h := range s.active {
		handles = append(handles, h)
	}
	s.mu.RUnlock()

	out := make([]RunSummary, 0, len(handles))
	for _, h := range handles {
		out = append(out, h.summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].RunID < out[j].RunID
	})
	return out
}

// Recover resumes every non-terminal run of the store that is not already
// executing here. Tasks found Running are handled per Config.RecoveryMode
// and the rewritten states are persisted before the run resumes. Terminal
// tasks are never executed again, so calling Recover twice is harmless.
func (s *Supervisor) Recover(ctx context.Context) ([]*RunHandle, error) {
	runs, err := s.store.LoadNonTerminalRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("load non-terminal runs: %w", err)
	}

	var todo []*dag.DagRun
	for _, run := range runs {
		if _, ok := s.handle(run.ID); !ok {
			todo = append(todo, run)
		}
	}

	prepared := make([]*dag.ValidatedGraph, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.RecoverConcurrency)
	for i, run := range todo {
		g.Go(func() error {
			vg, err := s.prepare(gctx, run)
			if err != nil {
				return err
			}
			prepared[i] = vg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	handles := make([]*RunHandle, 0, len(todo))
	for i, run := range todo {
		if prepared[i] == nil {
			continue
		}
		if h, started := s.start(run, prepared[i], true); started {
			handles = append(handles, h)
		}
	}
	if len(handles) > 0 {
		s.log.Info("runs recovered", logger.Fields("count", len(handles), "mode", string(s.cfg.RecoveryMode)))
	}
	return handles, nil
}

// prepare rewrites orphaned tasks of one run and persists them. A run whose
// graph no longer validates is aborted in the store and skipped.
func (s *Supervisor) prepare(ctx context.Context, run *dag.DagRun) (*dag.ValidatedGraph, error) {
	vg, err := dag.Validate(run.Graph)
	if err != nil {
		s.log.Error("stored graph is invalid, aborting run", logger.MergeWithError(logger.Fields(logger.FieldRunID, run.ID), err))
		dag.AbortStored(run, "stored graph is invalid: "+err.Error())
		if err := s.store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("persist aborted run %s: %w", run.ID, err)
		}
		return nil, nil
	}

	for _, id := range dag.PrepareRecovery(run, s.cfg.RecoveryMode) {
		s.log.Info("recovering orphaned task", logger.Fields(
			logger.FieldRunID, run.ID,
			logger.FieldTaskID, id,
			"mode", string(s.cfg.RecoveryMode),
		))
		if err := s.store.SaveTaskStatus(ctx, run.ID, id, *run.Tasks[id]); err != nil {
			return nil, fmt.Errorf("persist recovered task %s/%s: %w", run.ID, id, err)
		}
	}
	return vg, nil
}

// Shutdown interrupts every run executing here and waits for their
// executions to stop, or for ctx. Interrupted runs stay non-terminal in the
// store and are picked up by the next Recover.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Name implements component.Component.
func (s *Supervisor) Name() string { return "supervisor" }

// Start implements component.Component by recovering unfinished runs.
func (s *Supervisor) Start(ctx context.Context) error {
	_, err := s.Recover(ctx)
	return err
}

// Stop implements component.Component.
func (s *Supervisor) Stop(ctx context.Context) error {
	return s.Shutdown(ctx)
}

// Health implements component.Component.
func (s *Supervisor) Health(_ context.Context) component.Health {
	s.mu.RLock()
	n := len(s.active)
	s.mu.RUnlock()
	h := component.Health{Name: s.Name(), Status: component.StatusHealthy, Message: fmt.Sprintf("%d active runs", n)}
	if s.ctx.Err() != nil {
		h.Status = component.StatusUnhealthy
		h.Message = "shut down"
	}
	return h
}
