// Package consumer reads a Kafka topic in a consumer group.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/dagflow/kafka"
	"github.com/kbukum/dagflow/logger"
)

// Handler processes one message. An error is logged and the message is
// still committed: a message that cannot be handled now will not be
// handled by redelivery either.
type Handler func(ctx context.Context, msg kafkago.Message) error

type reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.ReaderStats
	Close() error
}

// Consumer reads one topic and hands each message to its handler.
type Consumer struct {
	r        reader
	topic    string
	groupID  string
	handler  Handler
	log      *logger.Logger
	failures int
	maxWait  time.Duration
}

var _ kafka.ConsumerRunner = (*Consumer)(nil)

// NewConsumer creates a consumer of topic in the configured group.
func NewConsumer(cfg kafka.Config, topic string, handler Handler, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka consumer: topic is required")
	}
	dialer, err := cfg.Dialer()
	if err != nil {
		return nil, fmt.Errorf("kafka consumer dialer: %w", err)
	}

	clog := log.WithComponent("kafka.consumer")
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       cfg.StartOffsetValue(),
		MinBytes:          1,
		MaxBytes:          10e6,
		SessionTimeout:    kafka.ParseDuration(cfg.SessionTimeout),
		HeartbeatInterval: kafka.ParseDuration(cfg.HeartbeatInterval),
		RebalanceTimeout:  kafka.ParseDuration(cfg.RebalanceTimeout),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: "+fmt.Sprintf(msg, args...), logger.Fields("topic", topic))
		}),
	})
	clog.Info("Kafka consumer initialized", logger.Fields(
		"topic", topic,
		"group_id", cfg.GroupID,
		"brokers", cfg.Brokers,
	))
	return newConsumer(r, topic, cfg.GroupID, handler, clog), nil
}

func newConsumer(r reader, topic, groupID string, handler Handler, log *logger.Logger) *Consumer {
	return &Consumer{
		r:       r,
		topic:   topic,
		groupID: groupID,
		handler: handler,
		log:     log,
		maxWait: 30 * time.Second,
	}
}

// Run fetches, handles and commits messages until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("consume loop started", logger.Fields("topic", c.topic, "group_id", c.groupID))
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, kafkago.ErrGroupClosed) {
				return err
			}
			if err := c.backoff(ctx, err); err != nil {
				return err
			}
			continue
		}
		c.failures = 0

		if err := c.handler(ctx, msg); err != nil {
			c.log.Warn("message handling failed", logger.MergeWithError(logger.Fields(
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			), err))
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Error("commit failed", logger.MergeWithError(logger.Fields("topic", msg.Topic, "offset", msg.Offset), err))
		}
	}
}

func (c *Consumer) backoff(ctx context.Context, err error) error {
	c.failures++
	if c.failures <= 3 {
		c.log.Error("kafka read error", logger.MergeWithError(logger.Fields(
			"failures", c.failures,
			"topic", c.topic,
		), err))
	}
	wait := min(time.Duration(c.failures)*time.Second, c.maxWait)
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Topic returns the consumed topic.
func (c *Consumer) Topic() string { return c.topic }

// Stats returns reader statistics.
func (c *Consumer) Stats() kafkago.ReaderStats { return c.r.Stats() }

// Close shuts down the reader.
func (c *Consumer) Close() error {
	c.log.Info("Kafka consumer closing", logger.Fields("topic", c.topic))
	return c.r.Close()
}
