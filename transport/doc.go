// Package transport delivers decision signals from outside the process to
// a running supervisor.
//
// Two inbound channels are provided: a Kafka consumer on the signals topic
// and a Redis pub/sub subscriber. Both carry the same JSON message:
//
//	{"run_id":"r1","task_id":"deploy","type":"vote","stakeholder":"alice","approved":true}
//
// type is one of "confirm", "vote" or "cancel". Messages that do not decode
// or that the supervisor rejects are logged and dropped.
package transport
