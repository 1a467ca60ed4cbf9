package dag

import (
	"context"
	"time"

	"github.com/kbukum/dagflow/decision"
)

// EventType identifies what an Event reports.
type EventType string

const (
	EventRunStarted      EventType = "run.started"
	EventTaskStatus      EventType = "task.status"
	EventDecisionWaiting EventType = "decision.waiting"
	EventVoteCounted     EventType = "decision.vote"
	EventRunFinished     EventType = "run.finished"
)

// Event is published on every task transition, decision request and run
// conclusion. Task events are published only after the transition is stored.
type Event struct {
	Type       EventType         `json:"type"`
	RunID      string            `json:"run_id"`
	Graph      string            `json:"graph,omitempty"`
	TaskID     string            `json:"task_id,omitempty"`
	TaskStatus TaskStatus        `json:"task_status,omitempty"`
	RunStatus  RunStatus         `json:"run_status,omitempty"`
	Failure    *Failure          `json:"failure,omitempty"`
	Decision   *decision.Request `json:"decision,omitempty"`
	At         time.Time         `json:"at"`
}

// Notifier publishes events to the outside world. Notify is called from the
// engine loop and from decision waits concurrently, and must not block for
// long. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) {}
