package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/decision"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/sse"
)

func taskEvent(runID, taskID string) dag.Event {
	return dag.Event{
		Type:       dag.EventTaskStatus,
		RunID:      runID,
		TaskID:     taskID,
		TaskStatus: dag.TaskCompleted,
		At:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMulti(t *testing.T) {
	var got []string
	record := func(name string) dag.Notifier {
		return dag.NotifierFunc(func(_ context.Context, ev dag.Event) {
			got = append(got, name+":"+ev.TaskID)
		})
	}
	m := Multi{record("a"), nil, record("b")}
	m.Notify(context.Background(), taskEvent("r1", "build"))

	if strings.Join(got, ",") != "a:build,b:build" {
		t.Errorf("delivered = %v", got)
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
	n := NewLog(log)

	n.Notify(context.Background(), dag.Event{Type: dag.EventRunStarted, RunID: "r1", Graph: "release"})
	n.Notify(context.Background(), dag.Event{
		Type:     dag.EventDecisionWaiting,
		RunID:    "r1",
		TaskID:   "deploy",
		Decision: &decision.Request{Kind: decision.KindArbitrated},
	})
	n.Notify(context.Background(), dag.Event{
		Type:      dag.EventRunFinished,
		RunID:     "r1",
		RunStatus: dag.RunAborted,
		Failure:   &dag.Failure{Kind: dag.FailureExecutor},
	})

	out := buf.String()
	for _, want := range []string{
		`"message":"run started"`, `"graph":"release"`,
		`"message":"decision waiting"`, `"decision":"arbitrated"`,
		`"message":"run finished"`, `"failure_kind":"executor"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

type broadcast struct {
	pattern string
	ev      sse.Event
}

type fakeBroadcaster struct{ got []broadcast }

func (f *fakeBroadcaster) BroadcastToPattern(pattern string, ev sse.Event) {
	f.got = append(f.got, broadcast{pattern, ev})
}

func TestSSE(t *testing.T) {
	b := &fakeBroadcaster{}
	NewSSE(b, logger.Nop()).Notify(context.Background(), taskEvent("r1", "build"))

	if len(b.got) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(b.got))
	}
	got := b.got[0]
	if got.pattern != "run:r1:*" || got.ev.Type != "task.status" {
		t.Errorf("broadcast = %q %q", got.pattern, got.ev.Type)
	}
	var ev dag.Event
	if err := json.Unmarshal(got.ev.Data, &ev); err != nil {
		t.Fatalf("payload error = %v", err)
	}
	if ev.TaskID != "build" || ev.TaskStatus != dag.TaskCompleted {
		t.Errorf("payload = %+v", ev)
	}
}

type sent struct {
	topic, key string
	ev         dag.Event
	headers    []kafkago.Header
}

type fakeSender struct {
	mu    sync.Mutex
	got   []sent
	err   error
	block chan struct{}
}

func (f *fakeSender) SendJSON(_ context.Context, topic, key string, value any, headers ...kafkago.Header) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, sent{topic, key, value.(dag.Event), headers})
	return f.err
}

func (f *fakeSender) sent() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.got...)
}

func TestKafka_PublishesInOrderAndDrainsOnStop(t *testing.T) {
	s := &fakeSender{err: errors.New("broker down")}
	k := NewKafka(s, "dagflow.events", 0, logger.Nop())
	ctx := context.Background()
	if err := k.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	k.Notify(ctx, taskEvent("r1", "a"))
	k.Notify(ctx, taskEvent("r1", "b"))
	if err := k.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	got := s.sent()
	if len(got) != 2 {
		t.Fatalf("sent %d events, want 2", len(got))
	}
	for i, want := range []string{"a", "b"} {
		if got[i].ev.TaskID != want || got[i].key != "r1" || got[i].topic != "dagflow.events" {
			t.Errorf("event %d = %+v", i, got[i])
		}
		if len(got[i].headers) != 1 || string(got[i].headers[0].Value) != "task.status" {
			t.Errorf("event %d headers = %v", i, got[i].headers)
		}
	}

	// After Stop events are ignored and Stop is idempotent.
	k.Notify(ctx, taskEvent("r1", "c"))
	if err := k.Stop(ctx); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestKafka_DropsWhenQueueFull(t *testing.T) {
	s := &fakeSender{}
	k := NewKafka(s, "events", 2, logger.Nop())
	ctx := context.Background()

	// Not started: the queue fills and the third event is dropped.
	for _, id := range []string{"a", "b", "c"} {
		k.Notify(ctx, taskEvent("r1", id))
	}
	if k.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", k.Dropped())
	}
	if h := k.Health(ctx); h.Status != "degraded" {
		t.Errorf("Health() = %+v, want degraded", h)
	}

	if err := k.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := k.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if n := len(s.sent()); n != 2 {
		t.Errorf("sent %d events, want 2", n)
	}
}

func TestKafka_StopHonorsContext(t *testing.T) {
	s := &fakeSender{block: make(chan struct{})}
	k := NewKafka(s, "events", 4, logger.Nop())
	_ = k.Start(context.Background())
	k.Notify(context.Background(), taskEvent("r1", "a"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := k.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop() error = %v, want deadline exceeded", err)
	}
	close(s.block)
}
