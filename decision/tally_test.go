package decision

import "testing"

func vote(who string, ok bool) Vote { return Vote{Stakeholder: who, Approved: ok} }

func TestTally_QuorumReached(t *testing.T) {
	for _, third := range []*bool{nil, ptr(true), ptr(false)} {
		tally := NewTally([]string{"a", "b", "c"}, 2)
		mustRecord(t, tally, vote("a", true))
		if tally.Resolution() != Undecided {
			t.Fatalf("one approval should be undecided, got %s", tally.Resolution())
		}
		if third != nil {
			mustRecord(t, tally, vote("c", *third))
		}
		mustRecord(t, tally, vote("b", true))
		if tally.Resolution() != QuorumReached {
			t.Errorf("third=%v: resolution = %s, want reached", third, tally.Resolution())
		}
	}
}

func TestTally_QuorumUnreachableBeforeLastVote(t *testing.T) {
	tally := NewTally([]string{"a", "b", "c"}, 2)
	mustRecord(t, tally, vote("a", false))
	if tally.Resolution() != Undecided {
		t.Fatalf("one rejection should be undecided, got %s", tally.Resolution())
	}
	mustRecord(t, tally, vote("b", false))
	if tally.Resolution() != QuorumUnreachable {
		t.Errorf("resolution = %s, want unreachable", tally.Resolution())
	}
	if tally.Outstanding() != 1 {
		t.Errorf("outstanding = %d, want 1", tally.Outstanding())
	}
}

func TestTally_FirstVoteCounts(t *testing.T) {
	tally := NewTally([]string{"a", "b"}, 1)
	mustRecord(t, tally, vote("a", false))
	counted, err := tally.Record(vote("a", true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counted {
		t.Error("second vote from the same stakeholder must not count")
	}
	if tally.Approvals() != 0 || tally.Rejections() != 1 {
		t.Errorf("approvals=%d rejections=%d, want 0/1", tally.Approvals(), tally.Rejections())
	}
}

func TestTally_RejectsOutsider(t *testing.T) {
	tally := NewTally([]string{"a"}, 1)
	if _, err := tally.Record(vote("mallory", true)); err == nil {
		t.Error("expected error for non-stakeholder")
	}
	if len(tally.Votes()) != 0 {
		t.Error("outsider vote must not be stored")
	}
}

func TestTally_UnanimousQuorum(t *testing.T) {
	tally := NewTally([]string{"a", "b", "c"}, 3)
	mustRecord(t, tally, vote("a", true))
	mustRecord(t, tally, vote("b", false))
	if tally.Resolution() != QuorumUnreachable {
		t.Errorf("one rejection under unanimous quorum should be unreachable, got %s", tally.Resolution())
	}
}

func mustRecord(t *testing.T, tally *Tally, v Vote) {
	t.Helper()
	counted, err := tally.Record(v)
	if err != nil || !counted {
		t.Fatalf("Record(%+v) = %v, %v", v, counted, err)
	}
}

func ptr(b bool) *bool { return &b }
