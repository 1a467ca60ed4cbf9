package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/dagflow/component"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/redis"
)

// RedisSignals subscribes to a Redis channel and delivers every message to
// a dispatcher.
type RedisSignals struct {
	client  *redis.Client
	channel string
	d       Dispatcher
	log     *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

var (
	_ component.Component   = (*RedisSignals)(nil)
	_ component.Describable = (*RedisSignals)(nil)
)

// NewRedisSignals creates a subscriber of channel. The channel name is
// prefixed with the client's key prefix.
func NewRedisSignals(client *redis.Client, channel string, d Dispatcher, log *logger.Logger) *RedisSignals {
	return &RedisSignals{
		client:  client,
		channel: channel,
		d:       d,
		log:     log.WithComponent("transport.redis"),
	}
}

// Publish sends msg on the signals channel. It is the client side of
// RedisSignals.
func Publish(ctx context.Context, client *redis.Client, channel string, msg SignalMessage) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return client.Publish(ctx, channel, data)
}

// Name returns the component name.
func (r *RedisSignals) Name() string { return "redis-signals" }

// Start subscribes and begins delivering messages. It returns once the
// subscription is confirmed.
func (r *RedisSignals) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	ch := sub.Channel()
	go func() {
		defer close(r.done)
		defer sub.Close()
		for {
			select {
			case <-runCtx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				r.handle(runCtx, []byte(m.Payload))
			}
		}
	}()

	r.log.Info("listening for signals", logger.Fields("channel", r.client.Key(r.channel)))
	return nil
}

func (r *RedisSignals) handle(ctx context.Context, payload []byte) {
	msg, err := Deliver(ctx, r.d, payload)
	if err != nil {
		r.log.Warn("signal dropped", logger.MergeWithError(logger.Fields(
			logger.FieldRunID, msg.RunID,
			logger.FieldTaskID, msg.TaskID,
		), err))
		return
	}
	r.log.Debug("signal received", logger.Fields(
		logger.FieldRunID, msg.RunID,
		logger.FieldTaskID, msg.TaskID,
		"type", msg.Type,
	))
}

// Stop ends the subscription and waits for the delivery loop to exit.
func (r *RedisSignals) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	done := r.done
	r.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports whether the subscription is active.
func (r *RedisSignals) Health(_ context.Context) component.Health {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return component.Health{Name: r.Name(), Status: component.StatusUnhealthy, Message: "not subscribed"}
	}
	return component.Health{Name: r.Name(), Status: component.StatusHealthy}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (r *RedisSignals) Describe() component.Description {
	return component.Description{
		Name:    "Redis Signals",
		Type:    "redis",
		Details: "channel " + r.client.Key(r.channel),
	}
}
