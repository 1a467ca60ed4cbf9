package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/dagflow/kafka"
	"github.com/kbukum/dagflow/logger"
)

// fakeReader serves queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	errs      []error
	committed []int64
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		return kafkago.Message{}, err
	}
	if len(f.msgs) > 0 {
		m := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Stats() kafkago.ReaderStats { return kafkago.ReaderStats{} }

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) commits() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConsumer_HandlesAndCommitsEveryMessage(t *testing.T) {
	r := &fakeReader{msgs: []kafkago.Message{
		{Topic: "signals", Offset: 1, Value: []byte("a")},
		{Topic: "signals", Offset: 2, Value: []byte("bad")},
		{Topic: "signals", Offset: 3, Value: []byte("c")},
	}}
	var mu sync.Mutex
	var seen []string
	c := newConsumer(r, "signals", "g", func(_ context.Context, m kafkago.Message) error {
		mu.Lock()
		seen = append(seen, string(m.Value))
		mu.Unlock()
		if string(m.Value) == "bad" {
			return errors.New("undecodable")
		}
		return nil
	}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, func() bool { return len(r.commits()) == 3 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 || seen[1] != "bad" {
		t.Errorf("handled = %v", seen)
	}
}

func TestConsumer_BacksOffOnReadErrors(t *testing.T) {
	r := &fakeReader{
		errs: []error{errors.New("broker gone")},
		msgs: []kafkago.Message{{Offset: 7}},
	}
	c := newConsumer(r, "signals", "g", func(context.Context, kafkago.Message) error { return nil }, logger.Nop())
	c.maxWait = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()
	waitFor(t, func() bool { return len(r.commits()) == 1 })
}

func TestConsumer_StopsOnClosedGroup(t *testing.T) {
	r := &fakeReader{errs: []error{kafkago.ErrGroupClosed}}
	c := newConsumer(r, "signals", "g", nil, logger.Nop())
	if err := c.Run(context.Background()); !errors.Is(err, kafkago.ErrGroupClosed) {
		t.Errorf("Run() error = %v", err)
	}
	if err := c.Close(); err != nil || !r.closed {
		t.Errorf("Close() = %v, closed = %v", err, r.closed)
	}
}

func TestNewConsumer_Rejects(t *testing.T) {
	log := logger.Nop()
	if _, err := NewConsumer(kafka.Config{}, "signals", nil, log); err == nil {
		t.Error("expected error for disabled kafka")
	}
	if _, err := NewConsumer(kafka.Config{Enabled: true}, "", nil, log); err == nil {
		t.Error("expected error for empty topic")
	}
	c, err := NewConsumer(kafka.Config{Enabled: true}, "signals", nil, log)
	if err != nil {
		t.Fatalf("NewConsumer() error = %v", err)
	}
	if c.Topic() != "signals" {
		t.Errorf("Topic() = %q", c.Topic())
	}
	_ = c.Close()
}
