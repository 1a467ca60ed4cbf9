// Package notify publishes engine events.
//
// Log writes them to the structured log, SSE pushes them to the streams
// following the run, and Kafka publishes them on the events topic keyed by
// run id. Multi fans one event out to several notifiers.
package notify
