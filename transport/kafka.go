package transport

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/dagflow/kafka"
	"github.com/kbukum/dagflow/kafka/consumer"
	"github.com/kbukum/dagflow/logger"
)

// NewKafkaSignals creates a consumer of topic that delivers every message
// to d. Register it on a kafka.Component with AddConsumer.
func NewKafkaSignals(cfg kafka.Config, topic string, d Dispatcher, log *logger.Logger) (*consumer.Consumer, error) {
	return consumer.NewConsumer(cfg, topic, KafkaHandler(d, log), log)
}

// KafkaHandler returns a consumer handler that delivers signal messages to d.
func KafkaHandler(d Dispatcher, log *logger.Logger) consumer.Handler {
	log = log.WithComponent("transport.kafka")
	return func(ctx context.Context, m kafkago.Message) error {
		msg, err := Deliver(ctx, d, m.Value)
		if err != nil {
			return err
		}
		log.Debug("signal received", logger.Fields(
			logger.FieldRunID, msg.RunID,
			logger.FieldTaskID, msg.TaskID,
			"type", msg.Type,
			"offset", m.Offset,
		))
		return nil
	}
}
