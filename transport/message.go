package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kbukum/dagflow/decision"
	apperrors "github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/validation"
)

// SignalMessage is the wire form of a decision signal.
type SignalMessage struct {
	RunID       string `json:"run_id" validate:"required"`
	TaskID      string `json:"task_id" validate:"required,taskid"`
	Type        string `json:"type" validate:"required,oneof=confirm vote cancel"`
	Approved    bool   `json:"approved,omitempty"`
	Stakeholder string `json:"stakeholder,omitempty" validate:"required_if=Type vote"`
	Reason      string `json:"reason,omitempty"`
}

// Signal converts the message to an engine signal.
func (m SignalMessage) Signal() decision.Signal {
	return decision.Signal{
		Type:        decision.SignalType(m.Type),
		Approved:    m.Approved,
		Stakeholder: m.Stakeholder,
		Reason:      m.Reason,
	}
}

// Encode marshals the message.
func (m SignalMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses and checks a signal message.
func Decode(data []byte) (SignalMessage, error) {
	var msg SignalMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, apperrors.Validation(fmt.Sprintf("malformed signal message: %v", err))
	}
	if err := validation.Validate(msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// Dispatcher accepts signals for a run's tasks. *supervisor.Supervisor
// implements it.
type Dispatcher interface {
	Signal(ctx context.Context, runID, taskID string, sig decision.Signal) error
}

// Deliver decodes data and hands the signal to d.
func Deliver(ctx context.Context, d Dispatcher, data []byte) (SignalMessage, error) {
	msg, err := Decode(data)
	if err != nil {
		return msg, err
	}
	return msg, d.Signal(ctx, msg.RunID, msg.TaskID, msg.Signal())
}
