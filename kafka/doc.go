// Package kafka connects dagflow to a Kafka cluster through segmentio/kafka-go.
//
// The root package holds the shared Config, TLS and SASL setup, error
// translation and the lifecycle Component. Publishing lives in
// kafka/producer and topic consumption in kafka/consumer:
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  group_id: "dagflow"
//
// The producer carries run events out of the engine and the consumer
// carries approval and vote signals in.
package kafka
