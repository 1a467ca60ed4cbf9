package decision

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMailboxClosed is returned when posting to a task that no longer waits.
var ErrMailboxClosed = errors.New("decision: mailbox closed")

// SignalType identifies an external decision signal.
type SignalType string

const (
	// SignalCancel aborts a Recommended countdown or withdraws a task
	// from any pending decision.
	SignalCancel SignalType = "cancel"
	// SignalConfirm carries an approve or reject for a Confirmed task.
	SignalConfirm SignalType = "confirm"
	// SignalVote carries one stakeholder vote for an Arbitrated task.
	SignalVote SignalType = "vote"
)

// Signal is one message on the approval channel.
type Signal struct {
	Type        SignalType `json:"type"`
	Approved    bool       `json:"approved,omitempty"`
	Stakeholder string     `json:"stakeholder,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	At          time.Time  `json:"at"`
}

// Vote is one stakeholder's decision on an arbitrated task.
type Vote struct {
	Stakeholder string    `json:"stakeholder"`
	Approved    bool      `json:"approved"`
	At          time.Time `json:"at"`
}

// Mailbox buffers signals for one task. It is safe for concurrent use.
type Mailbox struct {
	mu     sync.Mutex
	queue  []Signal
	notify chan struct{}
	closed bool
}

func newMailbox() *Mailbox {
	return &Mailbox{notify: make(chan struct{}, 1)}
}

// Post appends a signal and wakes the waiting reader.
func (m *Mailbox) Post(s Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrMailboxClosed
	}
	if s.At.IsZero() {
		s.At = time.Now()
	}
	m.queue = append(m.queue, s)
	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// Next blocks until a signal is available or ctx is done.
func (m *Mailbox) Next(ctx context.Context) (Signal, error) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			s := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return s, nil
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return Signal{}, ctx.Err()
		case <-m.notify:
		}
	}
}

// Len returns the number of buffered signals.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Mailbox) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.queue = nil
	m.mu.Unlock()
}

type mailboxKey struct {
	runID  string
	taskID string
}

// Hub routes signals to task mailboxes. It is the injection point of the
// approval channel: transports and the API post into it, the engine reads.
type Hub struct {
	mu    sync.Mutex
	boxes map[mailboxKey]*Mailbox
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{boxes: make(map[mailboxKey]*Mailbox)}
}

// Mailbox returns the open mailbox for a task, replacing a released one.
func (h *Hub) Mailbox(runID, taskID string) *Mailbox {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := mailboxKey{runID, taskID}
	mb, ok := h.boxes[k]
	if !ok || mb.isClosed() {
		mb = newMailbox()
		h.boxes[k] = mb
	}
	return mb
}

// Deliver posts a signal to a task's mailbox. Signals for a task that does
// not wait yet are buffered; a task whose decision already resolved gets
// ErrMailboxClosed until its run is released.
func (h *Hub) Deliver(runID, taskID string, s Signal) error {
	h.mu.Lock()
	k := mailboxKey{runID, taskID}
	mb, ok := h.boxes[k]
	if !ok {
		mb = newMailbox()
		h.boxes[k] = mb
	}
	h.mu.Unlock()
	return mb.Post(s)
}

// Release closes a task's mailbox once its decision resolved. The closed
// mailbox stays registered so later signals are refused.
func (h *Hub) Release(runID, taskID string) {
	h.mu.Lock()
	mb, ok := h.boxes[mailboxKey{runID, taskID}]
	h.mu.Unlock()
	if ok {
		mb.close()
	}
}

// ReleaseRun drops every mailbox of a run.
func (h *Hub) ReleaseRun(runID string) {
	h.mu.Lock()
	var boxes []*Mailbox
	for k, mb := range h.boxes {
		if k.runID == runID {
			boxes = append(boxes, mb)
			delete(h.boxes, k)
		}
	}
	h.mu.Unlock()
	for _, mb := range boxes {
		mb.close()
	}
}
