package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/dagflow/component"
	"github.com/kbukum/dagflow/logger"
)

// ProducerCloser is satisfied by any producer that can be closed.
type ProducerCloser interface {
	Close() error
}

// ConsumerRunner is satisfied by any consumer that runs a consume loop.
type ConsumerRunner interface {
	Run(ctx context.Context) error
	Close() error
	Topic() string
}

// Component owns an injected producer and consumers and implements
// component.Component. Consumers run in the background between Start and Stop.
type Component struct {
	cfg       Config
	log       *logger.Logger
	producer  ProducerCloser
	consumers []ConsumerRunner
	cancelFn  context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a Kafka component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("kafka")}
}

// SetProducer injects the producer. Must be called before Start.
func (c *Component) SetProducer(p ProducerCloser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.producer = p
}

// AddConsumer injects a consumer. Must be called before Start.
func (c *Component) AddConsumer(cr ConsumerRunner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = append(c.consumers, cr)
}

// Name returns the component name.
func (c *Component) Name() string { return "kafka" }

// Start runs every consumer in its own goroutine.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	// Consumers outlive the start context; Stop ends them.
	consumeCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancelFn = cancel
	for _, cr := range c.consumers {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := cr.Run(consumeCtx); err != nil && !errors.Is(err, context.Canceled) {
				c.log.Error("consumer stopped", logger.MergeWithError(logger.Fields("topic", cr.Topic()), err))
			}
		}()
	}
	c.running = true
	c.log.Info("Kafka component started", logger.Fields("consumers", len(c.consumers), "brokers", c.cfg.Brokers))
	return nil
}

// Stop ends the consumers, waits for them, then closes everything.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.log.Info("Kafka component stopping")
	c.cancelFn()
	c.wg.Wait()

	var errs []error
	for _, cr := range c.consumers {
		if err := cr.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer %s: %w", cr.Topic(), err))
		}
	}
	c.consumers = nil
	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close producer: %w", err))
		}
		c.producer = nil
	}
	c.running = false
	return errors.Join(errs...)
}

// Health dials the first broker and asks for cluster metadata.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	cfg := c.cfg
	c.mu.Unlock()

	h := component.Health{Name: c.Name(), Status: component.StatusUnhealthy}
	if !running {
		h.Message = "kafka not started"
		return h
	}
	dialer, err := cfg.Dialer()
	if err != nil {
		h.Message = fmt.Sprintf("dialer: %v", err)
		return h
	}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		h.Message = fmt.Sprintf("broker unreachable: %v", err)
		return h
	}
	defer conn.Close()
	if _, err := conn.Brokers(); err != nil {
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("broker metadata: %v", err)
		return h
	}
	h.Status = component.StatusHealthy
	return h
}

// Describe returns a summary for the bootstrap display.
func (c *Component) Describe() component.Description {
	c.mu.Lock()
	defer c.mu.Unlock()
	details := fmt.Sprintf("brokers=%v", c.cfg.Brokers)
	topics := make([]string, 0, len(c.consumers))
	for _, cr := range c.consumers {
		topics = append(topics, cr.Topic())
	}
	if len(topics) > 0 {
		details += fmt.Sprintf(" topics=%v", topics)
	}
	if c.producer != nil {
		details += " producer=yes"
	}
	return component.Description{Name: "Kafka", Type: "kafka", Details: details}
}
