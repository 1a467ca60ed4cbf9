package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kbukum/dagflow/component"
	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/supervisor"
)

// Submitter starts runs. *supervisor.Supervisor implements it.
type Submitter interface {
	SubmitDocument(ctx context.Context, doc *dag.Document) (*supervisor.RunHandle, error)
}

// Entry describes one registered schedule.
type Entry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path,omitempty"`
	Schedule  string    `json:"schedule"`
	Next      time.Time `json:"next"`
	Prev      time.Time `json:"prev,omitempty"`
	LastRunID string    `json:"last_run_id,omitempty"`
	Skipped   int       `json:"skipped"`
}

type schedule struct {
	doc     *dag.Document
	path    string
	id      cron.EntryID
	last    *supervisor.RunHandle
	skipped int
}

// Scheduler is a component that submits documents on their schedules.
type Scheduler struct {
	dir    string
	submit Submitter
	log    *logger.Logger
	parser cron.Parser

	mu        sync.Mutex
	cron      *cron.Cron
	schedules map[string]*schedule
	running   bool
}

var (
	_ component.Component   = (*Scheduler)(nil)
	_ component.Describable = (*Scheduler)(nil)
)

// New creates a scheduler over the documents in dir.
func New(dir string, submit Submitter, log *logger.Logger) *Scheduler {
	s := &Scheduler{
		dir:       dir,
		submit:    submit,
		log:       log.WithComponent("scheduler"),
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		schedules: make(map[string]*schedule),
	}
	s.cron = cron.New(cron.WithParser(s.parser), cron.WithLogger(cronLogger{s.log}))
	return s
}

// ParseSchedule checks a schedule expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(expr)
}

// Name implements component.Component.
func (s *Scheduler) Name() string { return "scheduler" }

// Start loads the schedules directory and starts the cron loop. A
// document that does not compile or carries a bad expression fails Start.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.dir != "" {
		if err := s.LoadDir(s.dir); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Start()
	s.running = true
	s.log.Info("scheduler started", logger.Fields("schedules", len(s.schedules), "dir", s.dir))
	return nil
}

// Stop halts the cron loop and waits for in-flight submissions.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	done := s.cron.Stop()
	s.mu.Unlock()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health implements component.Component.
func (s *Scheduler) Health(_ context.Context) component.Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := component.Health{Name: s.Name(), Status: component.StatusHealthy}
	if !s.running {
		h.Status = component.StatusUnhealthy
		h.Message = "not running"
	}
	return h
}

// Describe implements component.Describable.
func (s *Scheduler) Describe() component.Description {
	s.mu.Lock()
	defer s.mu.Unlock()
	return component.Description{
		Name:    "Scheduler",
		Type:    "scheduler",
		Details: fmt.Sprintf("%s schedules=%d", s.dir, len(s.schedules)),
	}
}

// LoadDir registers every scheduled document found directly in dir.
// Documents without a schedule, such as shared includes, are ignored.
func (s *Scheduler) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read schedules dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := dag.FormatFromPath(path); err != nil {
			continue
		}
		doc, err := dag.LoadDocument(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		if doc.Schedule == "" {
			continue
		}
		if err := s.add(doc, path); err != nil {
			return fmt.Errorf("schedule %s: %w", path, err)
		}
	}
	return nil
}

// Add registers doc under its name. The graph must compile and the
// schedule must parse.
func (s *Scheduler) Add(doc *dag.Document) error {
	return s.add(doc, "")
}

func (s *Scheduler) add(doc *dag.Document, path string) error {
	if doc.Schedule == "" {
		return fmt.Errorf("document %q has no schedule", doc.Name)
	}
	if _, err := doc.Compile(); err != nil {
		return err
	}
	sched, err := s.parser.Parse(doc.Schedule)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", doc.Schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.schedules[doc.Name]; dup {
		return fmt.Errorf("graph %q is scheduled twice", doc.Name)
	}
	name := doc.Name
	sc := &schedule{doc: doc, path: path}
	sc.id = s.cron.Schedule(sched, cron.FuncJob(func() { s.fire(name) }))
	s.schedules[name] = sc
	s.log.Info("graph scheduled", logger.Fields("graph", name, "schedule", doc.Schedule, "path", path))
	return nil
}

// Remove unregisters the schedule of a graph.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schedules[name]
	if !ok {
		return false
	}
	s.cron.Remove(sc.id)
	delete(s.schedules, name)
	return true
}

// Entries lists the registered schedules by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.schedules))
	for name, sc := range s.schedules {
		ce := s.cron.Entry(sc.id)
		e := Entry{
			Name: name, Path: sc.path, Schedule: sc.doc.Schedule,
			Next: ce.Next, Prev: ce.Prev, Skipped: sc.skipped,
		}
		if sc.last != nil {
			e.LastRunID = sc.last.ID()
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// fire submits one occurrence of a schedule.
func (s *Scheduler) fire(name string) {
	s.mu.Lock()
	sc, ok := s.schedules[name]
	if !ok {
		s.mu.Unlock()
		return
	}
	if sc.last != nil && !settled(sc.last) {
		sc.skipped++
		s.mu.Unlock()
		s.log.Warn("previous run still executing, occurrence skipped", logger.Fields(
			"graph", name,
			logger.FieldRunID, sc.last.ID(),
		))
		return
	}
	doc := sc.doc
	s.mu.Unlock()

	h, err := s.submit.SubmitDocument(context.Background(), doc)
	if err != nil {
		s.log.Error("scheduled submission failed", logger.MergeWithError(logger.Fields("graph", name), err))
		return
	}

	s.mu.Lock()
	if cur, ok := s.schedules[name]; ok && cur == sc {
		sc.last = h
	}
	s.mu.Unlock()
	s.log.Info("scheduled run submitted", logger.Fields("graph", name, logger.FieldRunID, h.ID()))
}

func settled(h *supervisor.RunHandle) bool {
	select {
	case <-h.Done():
		return true
	default:
		return false
	}
}

// cronLogger routes cron's own logging through the component logger.
type cronLogger struct{ log *logger.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug("cron: "+msg, logger.Fields(kv...))
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error("cron: "+msg, logger.MergeWithError(logger.Fields(kv...), err))
}
