package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kbukum/dagflow/decision"
	apperrors "github.com/kbukum/dagflow/errors"
	"github.com/kbukum/dagflow/logger"
)

// Approve confirms a Confirmed task.
func (s *Supervisor) Approve(ctx context.Context, runID, taskID, reason string) error {
	return s.Signal(ctx, runID, taskID, decision.Signal{Type: decision.SignalConfirm, Approved: true, Reason: reason})
}

// Reject refuses a Confirmed task, which ends Cancelled.
func (s *Supervisor) Reject(ctx context.Context, runID, taskID, reason string) error {
	return s.Signal(ctx, runID, taskID, decision.Signal{Type: decision.SignalConfirm, Reason: reason})
}

// Vote casts one stakeholder's vote on an Arbitrated task.
func (s *Supervisor) Vote(ctx context.Context, runID, taskID, stakeholder string, approved bool) error {
	return s.Signal(ctx, runID, taskID, decision.Signal{Type: decision.SignalVote, Stakeholder: stakeholder, Approved: approved})
}

// CancelTask withdraws a task from its pending decision. It applies to
// Recommended, Confirmed and Arbitrated tasks.
func (s *Supervisor) CancelTask(ctx context.Context, runID, taskID, reason string) error {
	return s.Signal(ctx, runID, taskID, decision.Signal{Type: decision.SignalCancel, Reason: reason})
}

// Signal checks sig against the run's state and delivers it to the task.
// Signals for a task that has not started waiting yet are buffered, and
// signals for a task whose decision already resolved are rejected. A
// stakeholder's second vote is accepted and ignored.
func (s *Supervisor) Signal(ctx context.Context, runID, taskID string, sig decision.Signal) error {
	if sig.At.IsZero() {
		sig.At = time.Now().UTC()
	}

	// Held across delivery so the run cannot end and release its mailboxes
	// between the check and the post.
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.active[runID]
	if !ok {
		return s.inactive(ctx, runID, taskID)
	}
	snap := h.exec.Snapshot()
	task, ok := snap.Graph.Tasks[taskID]
	if !ok {
		return apperrors.TaskNotFound(runID, taskID)
	}
	if st := snap.Tasks[taskID]; st.Status.IsTerminal() {
		return apperrors.SignalRejected(taskID, fmt.Sprintf("task is already %s", st.Status))
	}

	level := task.Decision
	switch sig.Type {
	case decision.SignalConfirm:
		if level.Kind != decision.KindConfirmed {
			return apperrors.SignalRejected(taskID, fmt.Sprintf("confirm sent to a %s task", level.Kind))
		}
	case decision.SignalVote:
		if level.Kind != decision.KindArbitrated {
			return apperrors.SignalRejected(taskID, fmt.Sprintf("vote sent to a %s task", level.Kind))
		}
		if !level.IsStakeholder(sig.Stakeholder) {
			return apperrors.SignalRejected(taskID, fmt.Sprintf("%q is not a stakeholder", sig.Stakeholder))
		}
		if req, ok := h.exec.PendingFor(taskID); ok && hasVoted(req, sig.Stakeholder) {
			s.log.Debug("duplicate vote ignored", logger.Fields(
				logger.FieldRunID, runID,
				logger.FieldTaskID, taskID,
				logger.FieldStakeholder, sig.Stakeholder,
			))
			return nil
		}
	case decision.SignalCancel:
		if !level.Waits() {
			return apperrors.SignalRejected(taskID, fmt.Sprintf("a %s task has no decision to cancel", level.Kind))
		}
	default:
		return apperrors.SignalRejected(taskID, fmt.Sprintf("unknown signal type %q", sig.Type))
	}

	if err := s.engine.Hub().Deliver(runID, taskID, sig); err != nil {
		if errors.Is(err, decision.ErrMailboxClosed) {
			return apperrors.SignalRejected(taskID, "decision already resolved")
		}
		return apperrors.SignalRejected(taskID, err.Error())
	}
	s.log.Info("signal delivered", logger.Fields(
		logger.FieldRunID, runID,
		logger.FieldTaskID, taskID,
		"signal", string(sig.Type),
		"approved", sig.Approved,
	))
	return nil
}

func (s *Supervisor) inactive(ctx context.Context, runID, taskID string) error {
	run, err := s.store.LoadRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status.IsTerminal() {
		return apperrors.RunTerminal(runID, string(run.Status))
	}
	if _, ok := run.Tasks[taskID]; !ok {
		return apperrors.TaskNotFound(runID, taskID)
	}
	return apperrors.SignalRejected(taskID, "run is not executing in this process")
}

func hasVoted(req decision.Request, stakeholder string) bool {
	for _, v := range req.Votes {
		if v.Stakeholder == stakeholder {
			return true
		}
	}
	return false
}
