// Package producer publishes messages to Kafka.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/dagflow/kafka"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/resilience"
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.WriterStats
	Close() error
}

// Producer wraps a kafka-go Writer with retries and logging.
type Producer struct {
	w      writer
	cfg    kafka.Config
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// NewProducer creates a producer. The writer connects lazily on the
// first write, so a missing broker does not fail startup.
func NewProducer(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}
	transport, err := cfg.Transport()
	if err != nil {
		return nil, fmt.Errorf("kafka producer transport: %w", err)
	}

	p := &Producer{cfg: cfg, log: log.WithComponent("kafka.producer")}
	p.w = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: kafka.ParseDuration(cfg.BatchTimeout),
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  cfg.CompressionCodec(),
		WriteTimeout: kafka.ParseDuration(cfg.WriteTimeout),
		MaxAttempts:  1,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			p.log.Error("writer: " + fmt.Sprintf(msg, args...))
		}),
	}
	p.log.Info("Kafka producer initialized", logger.Fields(
		"brokers", cfg.Brokers,
		"compression", cfg.Compression,
		"batch_size", cfg.BatchSize,
	))
	return p, nil
}

// WriteMessages sends messages, retrying errors the broker reports as
// temporary. Keyed messages keep their order per key.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("kafka producer is closed")
	}

	retry := resilience.RetryConfig{
		MaxAttempts:    p.cfg.Retries + 1,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2,
		RetryIf:        kafka.IsRetryableError,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			p.log.Warn("kafka write failed, retrying", logger.Fields(
				logger.FieldAttempt, attempt,
				logger.FieldError, err.Error(),
				"backoff_ms", backoff.Milliseconds(),
			))
		},
	}
	err := resilience.RetryFunc(ctx, retry, func() error {
		return p.w.WriteMessages(ctx, msgs...)
	})
	if err != nil {
		topic := ""
		if len(msgs) > 0 {
			topic = msgs[0].Topic
		}
		return kafka.FromKafka(err, topic)
	}
	return nil
}

// SendJSON marshals value and sends it to topic under key.
func (p *Producer) SendJSON(ctx context.Context, topic, key string, value any, headers ...kafkago.Header) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	msg := kafkago.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Time:    time.Now().UTC(),
		Headers: append([]kafkago.Header{{Key: "content-type", Value: []byte("application/json")}}, headers...),
	}
	return p.WriteMessages(ctx, msg)
}

// Stats returns writer statistics.
func (p *Producer) Stats() kafkago.WriterStats {
	return p.w.Stats()
}

// Close flushes pending messages and shuts the producer down.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Info("Kafka producer closing")
	return p.w.Close()
}
