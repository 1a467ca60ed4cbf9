package notify

import (
	"context"
	"encoding/json"

	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/sse"
)

// Multi delivers every event to each notifier in order.
type Multi []dag.Notifier

// Notify implements dag.Notifier.
func (m Multi) Notify(ctx context.Context, ev dag.Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

// Log writes events to a logger.
type Log struct {
	log *logger.Logger
}

// NewLog creates a log notifier.
func NewLog(log *logger.Logger) *Log {
	return &Log{log: log.WithComponent("events")}
}

// Notify implements dag.Notifier.
func (l *Log) Notify(_ context.Context, ev dag.Event) {
	fields := logger.Fields(
		"event", string(ev.Type),
		logger.FieldRunID, ev.RunID,
	)
	if ev.TaskID != "" {
		fields[logger.FieldTaskID] = ev.TaskID
	}
	if ev.Failure != nil {
		fields[logger.FieldFailureKind] = string(ev.Failure.Kind)
	}

	switch ev.Type {
	case dag.EventRunStarted:
		fields["graph"] = ev.Graph
		l.log.Info("run started", fields)
	case dag.EventRunFinished:
		fields[logger.FieldStatus] = string(ev.RunStatus)
		l.log.Info("run finished", fields)
	case dag.EventDecisionWaiting:
		if ev.Decision != nil {
			fields[logger.FieldDecision] = string(ev.Decision.Kind)
		}
		l.log.Info("decision waiting", fields)
	case dag.EventVoteCounted:
		if ev.Decision != nil {
			fields["votes"] = len(ev.Decision.Votes)
		}
		l.log.Debug("vote counted", fields)
	default:
		fields[logger.FieldStatus] = string(ev.TaskStatus)
		l.log.Debug("task status", fields)
	}
}

// SSE pushes events to the clients following the run.
type SSE struct {
	b   sse.Broadcaster
	log *logger.Logger
}

// NewSSE creates a notifier over b.
func NewSSE(b sse.Broadcaster, log *logger.Logger) *SSE {
	return &SSE{b: b, log: log.WithComponent("events.sse")}
}

// Notify implements dag.Notifier.
func (s *SSE) Notify(_ context.Context, ev dag.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("encode event", logger.ErrorFields("marshal", err))
		return
	}
	s.b.BroadcastToPattern(sse.RunPattern(ev.RunID), sse.Event{Type: string(ev.Type), Data: data})
}
