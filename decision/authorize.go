package decision

import (
	"context"
	"time"

	apperrors "github.com/kbukum/dagflow/errors"
)

// Observer is told when a task starts waiting and when a vote is counted.
type Observer interface {
	Waiting(req Request)
	VoteCounted(req Request)
}

// TaskContext is what Authorize needs to know about the task it gates.
type TaskContext struct {
	RunID       string
	TaskID      string
	ExecutorTag string
	Mailbox     *Mailbox
	Observer    Observer
}

// Authorize resolves a task's decision level. Mechanical resolves at once;
// the other kinds suspend on the task's mailbox. Cancelling ctx ends any
// wait with a Cancelled outcome marked ByRun.
func Authorize(ctx context.Context, level Level, tc TaskContext) Outcome {
	if ctx.Err() != nil {
		return runCancelled()
	}
	switch level.Kind {
	case KindMechanical:
		return Outcome{Verdict: Proceed}
	case KindRecommended:
		return authorizeRecommended(ctx, level, tc)
	case KindConfirmed:
		return authorizeConfirmed(ctx, tc)
	case KindArbitrated:
		return authorizeArbitrated(ctx, level, tc)
	default:
		return Outcome{
			Verdict: Failed,
			Reason:  "unknown decision kind " + string(level.Kind),
			Err:     apperrors.Validation("unknown decision kind " + string(level.Kind)),
		}
	}
}

func authorizeRecommended(ctx context.Context, level Level, tc TaskContext) Outcome {
	since := time.Now()
	deadline := since.Add(level.Timeout)
	tc.notifyWaiting(Request{Kind: KindRecommended, Since: since, Deadline: &deadline})

	wctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	for {
		sig, err := tc.Mailbox.Next(wctx)
		if err != nil {
			if ctx.Err() != nil {
				return runCancelled()
			}
			out := Outcome{Verdict: Proceed}
			if level.DefaultAction != "" && level.DefaultAction != tc.ExecutorTag {
				out.ExecutorTag = level.DefaultAction
			}
			return out
		}
		if sig.Type == SignalCancel {
			return Outcome{Verdict: Cancelled, Reason: reasonOr(sig.Reason, "recommendation cancelled")}
		}
	}
}

func authorizeConfirmed(ctx context.Context, tc TaskContext) Outcome {
	tc.notifyWaiting(Request{Kind: KindConfirmed, Since: time.Now()})

	for {
		sig, err := tc.Mailbox.Next(ctx)
		if err != nil {
			return runCancelled()
		}
		switch sig.Type {
		case SignalConfirm:
			if sig.Approved {
				return Outcome{Verdict: Proceed}
			}
			return Outcome{Verdict: Cancelled, Reason: reasonOr(sig.Reason, "confirmation rejected")}
		case SignalCancel:
			return Outcome{Verdict: Cancelled, Reason: reasonOr(sig.Reason, "task cancelled")}
		}
	}
}

func authorizeArbitrated(ctx context.Context, level Level, tc TaskContext) Outcome {
	tally := NewTally(level.Stakeholders, level.Quorum)
	req := Request{
		RunID:        tc.RunID,
		TaskID:       tc.TaskID,
		Kind:         KindArbitrated,
		Since:        time.Now(),
		Stakeholders: level.Stakeholders,
		Quorum:       level.Quorum,
	}
	tc.notifyWaiting(req)

	for {
		sig, err := tc.Mailbox.Next(ctx)
		if err != nil {
			return runCancelled()
		}
		switch sig.Type {
		case SignalCancel:
			return Outcome{Verdict: Cancelled, Reason: reasonOr(sig.Reason, "vote cancelled"), Votes: tally.Votes()}
		case SignalVote:
			counted, err := tally.Record(Vote{Stakeholder: sig.Stakeholder, Approved: sig.Approved, At: sig.At})
			if err != nil || !counted {
				continue
			}
			req.Votes = tally.Votes()
			if tc.Observer != nil {
				tc.Observer.VoteCounted(req)
			}
		default:
			continue
		}

		switch tally.Resolution() {
		case QuorumReached:
			return Outcome{Verdict: Proceed, Votes: tally.Votes()}
		case QuorumUnreachable:
			err := apperrors.InsufficientVotes(tally.Approvals(), tally.Rejections(), level.Quorum)
			return Outcome{Verdict: Failed, Reason: err.Message, Err: err, Votes: tally.Votes()}
		}
	}
}

func (tc TaskContext) notifyWaiting(req Request) {
	if tc.Observer == nil {
		return
	}
	req.RunID = tc.RunID
	req.TaskID = tc.TaskID
	tc.Observer.Waiting(req)
}

func runCancelled() Outcome {
	return Outcome{Verdict: Cancelled, Reason: "run cancelled", ByRun: true}
}

func reasonOr(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}
