package decision

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/kbukum/dagflow/errors"
)

type recordingObserver struct {
	mu      sync.Mutex
	waiting []Request
	votes   []Request
	ready   chan struct{}
}

func newObserver() *recordingObserver {
	return &recordingObserver{ready: make(chan struct{}, 8)}
}

func (o *recordingObserver) Waiting(req Request) {
	o.mu.Lock()
	o.waiting = append(o.waiting, req)
	o.mu.Unlock()
	o.ready <- struct{}{}
}

func (o *recordingObserver) VoteCounted(req Request) {
	o.mu.Lock()
	o.votes = append(o.votes, req)
	o.mu.Unlock()
}

func (o *recordingObserver) waitReady(t *testing.T) {
	t.Helper()
	select {
	case <-o.ready:
	case <-time.After(time.Second):
		t.Fatal("task never started waiting")
	}
}

func authorizeAsync(ctx context.Context, level Level, tc TaskContext) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() { ch <- Authorize(ctx, level, tc) }()
	return ch
}

func await(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("authorize did not resolve")
		return Outcome{}
	}
}

func newTaskContext(obs Observer) TaskContext {
	return TaskContext{RunID: "r1", TaskID: "t1", ExecutorTag: "shell", Mailbox: newMailbox(), Observer: obs}
}

func TestAuthorize_MechanicalProceeds(t *testing.T) {
	out := Authorize(context.Background(), Mechanical(2), newTaskContext(nil))
	if out.Verdict != Proceed {
		t.Errorf("verdict = %s, want proceed", out.Verdict)
	}
}

func TestAuthorize_RecommendedTimesOutToDefaultAction(t *testing.T) {
	obs := newObserver()
	tc := newTaskContext(obs)
	out := Authorize(context.Background(), Recommended(20*time.Millisecond, "notify"), tc)
	if out.Verdict != Proceed {
		t.Fatalf("verdict = %s, want proceed", out.Verdict)
	}
	if out.ExecutorTag != "notify" {
		t.Errorf("executor tag = %q, want notify", out.ExecutorTag)
	}
	if len(obs.waiting) != 1 || obs.waiting[0].Deadline == nil {
		t.Errorf("expected one waiting request with a deadline, got %+v", obs.waiting)
	}
	if obs.waiting[0].RunID != "r1" || obs.waiting[0].TaskID != "t1" {
		t.Errorf("waiting request ids = %s/%s", obs.waiting[0].RunID, obs.waiting[0].TaskID)
	}
}

func TestAuthorize_RecommendedSameActionKeepsTag(t *testing.T) {
	out := Authorize(context.Background(), Recommended(5*time.Millisecond, "shell"), newTaskContext(nil))
	if out.Verdict != Proceed || out.ExecutorTag != "" {
		t.Errorf("outcome = %+v, want proceed without override", out)
	}
}

func TestAuthorize_RecommendedCancelled(t *testing.T) {
	obs := newObserver()
	tc := newTaskContext(obs)
	ch := authorizeAsync(context.Background(), Recommended(time.Hour, "notify"), tc)
	obs.waitReady(t)

	if err := tc.Mailbox.Post(Signal{Type: SignalConfirm, Approved: true}); err != nil {
		t.Fatal(err)
	}
	if err := tc.Mailbox.Post(Signal{Type: SignalCancel}); err != nil {
		t.Fatal(err)
	}
	out := await(t, ch)
	if out.Verdict != Cancelled || out.ByRun {
		t.Errorf("outcome = %+v, want task-level cancel", out)
	}
}

func TestAuthorize_ConfirmedApprove(t *testing.T) {
	obs := newObserver()
	tc := newTaskContext(obs)
	ch := authorizeAsync(context.Background(), Confirmed(), tc)
	obs.waitReady(t)

	_ = tc.Mailbox.Post(Signal{Type: SignalConfirm, Approved: true})
	if out := await(t, ch); out.Verdict != Proceed {
		t.Errorf("verdict = %s, want proceed", out.Verdict)
	}
}

func TestAuthorize_ConfirmedReject(t *testing.T) {
	tc := newTaskContext(nil)
	_ = tc.Mailbox.Post(Signal{Type: SignalConfirm, Approved: false, Reason: "not today"})

	out := Authorize(context.Background(), Confirmed(), tc)
	if out.Verdict != Cancelled {
		t.Fatalf("verdict = %s, want cancelled", out.Verdict)
	}
	if out.Reason != "not today" {
		t.Errorf("reason = %q", out.Reason)
	}
}

func TestAuthorize_ConfirmedBufferedBeforeWait(t *testing.T) {
	hub := NewHub()
	if err := hub.Deliver("r1", "t1", Signal{Type: SignalConfirm, Approved: true}); err != nil {
		t.Fatal(err)
	}
	tc := TaskContext{RunID: "r1", TaskID: "t1", Mailbox: hub.Mailbox("r1", "t1")}
	if out := Authorize(context.Background(), Confirmed(), tc); out.Verdict != Proceed {
		t.Errorf("verdict = %s, want proceed from buffered signal", out.Verdict)
	}
}

func TestAuthorize_RunCancellationEndsWait(t *testing.T) {
	for _, level := range []Level{Recommended(time.Hour, ""), Confirmed(), Arbitrated([]string{"a"}, 1)} {
		obs := newObserver()
		ctx, cancel := context.WithCancel(context.Background())
		ch := authorizeAsync(ctx, level, newTaskContext(obs))
		obs.waitReady(t)
		cancel()

		out := await(t, ch)
		if out.Verdict != Cancelled || !out.ByRun {
			t.Errorf("%s: outcome = %+v, want run cancellation", level, out)
		}
	}
}

func TestAuthorize_ArbitratedTwoApprovalsProceed(t *testing.T) {
	obs := newObserver()
	tc := newTaskContext(obs)
	ch := authorizeAsync(context.Background(), Arbitrated([]string{"a", "b", "c"}, 2), tc)
	obs.waitReady(t)

	_ = tc.Mailbox.Post(Signal{Type: SignalVote, Stakeholder: "a", Approved: true})
	_ = tc.Mailbox.Post(Signal{Type: SignalVote, Stakeholder: "b", Approved: true})

	out := await(t, ch)
	if out.Verdict != Proceed {
		t.Fatalf("verdict = %s, want proceed", out.Verdict)
	}
	if len(out.Votes) != 2 {
		t.Errorf("votes = %d, want 2", len(out.Votes))
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.votes) != 2 {
		t.Errorf("observer saw %d vote updates, want 2", len(obs.votes))
	}
}

func TestAuthorize_ArbitratedTwoRejectionsFail(t *testing.T) {
	tc := newTaskContext(nil)
	_ = tc.Mailbox.Post(Signal{Type: SignalVote, Stakeholder: "a", Approved: false})
	_ = tc.Mailbox.Post(Signal{Type: SignalVote, Stakeholder: "b", Approved: false})

	out := Authorize(context.Background(), Arbitrated([]string{"a", "b", "c"}, 2), tc)
	if out.Verdict != Failed {
		t.Fatalf("verdict = %s, want failed", out.Verdict)
	}
	if !apperrors.HasCode(out.Err, apperrors.ErrCodeInsufficientVotes) {
		t.Errorf("err = %v, want INSUFFICIENT_VOTES", out.Err)
	}
}

func TestAuthorize_ArbitratedIgnoresOutsidersAndRepeats(t *testing.T) {
	tc := newTaskContext(nil)
	_ = tc.Mailbox.Post(Signal{Type: SignalVote, Stakeholder: "mallory", Approved: true})
	_ = tc.Mailbox.Post(Signal{Type: SignalVote, Stakeholder: "a", Approved: true})
	_ = tc.Mailbox.Post(Signal{Type: SignalVote, Stakeholder: "a", Approved: true})
	_ = tc.Mailbox.Post(Signal{Type: SignalVote, Stakeholder: "b", Approved: true})

	out := Authorize(context.Background(), Arbitrated([]string{"a", "b", "c"}, 2), tc)
	if out.Verdict != Proceed {
		t.Fatalf("verdict = %s, want proceed", out.Verdict)
	}
	for _, v := range out.Votes {
		if v.Stakeholder == "mallory" {
			t.Error("outsider vote was counted")
		}
	}
	if len(out.Votes) != 2 {
		t.Errorf("votes = %d, want 2", len(out.Votes))
	}
}

func TestAuthorize_UnknownKind(t *testing.T) {
	out := Authorize(context.Background(), Level{Kind: "weird"}, newTaskContext(nil))
	if out.Verdict != Failed || out.Err == nil {
		t.Errorf("outcome = %+v, want failed with error", out)
	}
}
