package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/dagflow/component"
	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/logger"
)

// DefaultQueueSize bounds the events waiting to be published.
const DefaultQueueSize = 1024

// Sender publishes one JSON message. *producer.Producer implements it.
type Sender interface {
	SendJSON(ctx context.Context, topic, key string, value any, headers ...kafkago.Header) error
}

// Kafka publishes events to a topic keyed by run id, so the events of one
// run stay ordered within a partition. Events are queued and published on
// a background goroutine; when the queue is full new events are dropped.
type Kafka struct {
	sender  Sender
	topic   string
	timeout time.Duration
	log     *logger.Logger

	queue   chan dag.Event
	dropped atomic.Int64

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
}

var (
	_ dag.Notifier        = (*Kafka)(nil)
	_ component.Component = (*Kafka)(nil)
)

// NewKafka creates a notifier publishing to topic. Start it before the
// engine runs and stop it before the producer is closed.
func NewKafka(sender Sender, topic string, queueSize int, log *logger.Logger) *Kafka {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Kafka{
		sender:  sender,
		topic:   topic,
		timeout: 10 * time.Second,
		log:     log.WithComponent("events.kafka"),
		queue:   make(chan dag.Event, queueSize),
		done:    make(chan struct{}),
	}
}

// Notify implements dag.Notifier. It never blocks.
func (k *Kafka) Notify(_ context.Context, ev dag.Event) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return
	}
	select {
	case k.queue <- ev:
	default:
		k.dropped.Add(1)
		k.log.Warn("event queue full, event dropped", logger.Fields(
			"event", string(ev.Type),
			logger.FieldRunID, ev.RunID,
		))
	}
}

// Dropped returns the number of events discarded on a full queue.
func (k *Kafka) Dropped() int64 { return k.dropped.Load() }

// Name returns the component name.
func (k *Kafka) Name() string { return "kafka-events" }

// Start begins publishing queued events.
func (k *Kafka) Start(_ context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.started {
		return nil
	}
	k.started = true
	go k.publish()
	return nil
}

func (k *Kafka) publish() {
	defer close(k.done)
	for ev := range k.queue {
		ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
		err := k.sender.SendJSON(ctx, k.topic, ev.RunID, ev,
			kafkago.Header{Key: "event-type", Value: []byte(ev.Type)})
		cancel()
		if err != nil {
			k.log.Error("publish event", logger.MergeWithError(logger.Fields(
				"event", string(ev.Type),
				logger.FieldRunID, ev.RunID,
				"topic", k.topic,
			), err))
		}
	}
}

// Stop stops accepting events and waits until the queue is drained or
// ctx ends.
func (k *Kafka) Stop(ctx context.Context) error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	close(k.queue)
	started := k.started
	k.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-k.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports the queue depth.
func (k *Kafka) Health(_ context.Context) component.Health {
	h := component.Health{Name: k.Name(), Status: component.StatusHealthy}
	if n := len(k.queue); n > cap(k.queue)/2 {
		h.Status = component.StatusDegraded
		h.Message = "event queue more than half full"
	}
	return h
}
