package decision

import (
	"fmt"
	"slices"
)

// Resolution is the state of a vote count.
type Resolution int

const (
	Undecided Resolution = iota
	QuorumReached
	QuorumUnreachable
)

func (r Resolution) String() string {
	switch r {
	case QuorumReached:
		return "reached"
	case QuorumUnreachable:
		return "unreachable"
	default:
		return "undecided"
	}
}

// Tally counts stakeholder votes against a quorum. The first vote of each
// stakeholder counts; later ones are ignored.
type Tally struct {
	stakeholders []string
	quorum       int
	votes        []Vote
	voted        map[string]bool
}

// NewTally creates a tally for the given stakeholders and quorum.
func NewTally(stakeholders []string, quorum int) *Tally {
	return &Tally{
		stakeholders: slices.Clone(stakeholders),
		quorum:       quorum,
		voted:        make(map[string]bool, len(stakeholders)),
	}
}

// Record counts v. It returns false when the stakeholder already voted and
// an error when v comes from outside the stakeholder set.
func (t *Tally) Record(v Vote) (bool, error) {
	if !slices.Contains(t.stakeholders, v.Stakeholder) {
		return false, fmt.Errorf("%q is not a stakeholder", v.Stakeholder)
	}
	if t.voted[v.Stakeholder] {
		return false, nil
	}
	t.voted[v.Stakeholder] = true
	t.votes = append(t.votes, v)
	return true, nil
}

// Approvals returns the number of approving votes.
func (t *Tally) Approvals() int {
	n := 0
	for _, v := range t.votes {
		if v.Approved {
			n++
		}
	}
	return n
}

// Rejections returns the number of rejecting votes.
func (t *Tally) Rejections() int {
	return len(t.votes) - t.Approvals()
}

// Outstanding returns how many stakeholders have not voted.
func (t *Tally) Outstanding() int {
	return len(t.stakeholders) - len(t.votes)
}

// Resolution reports whether the quorum is reached, unreachable, or open.
func (t *Tally) Resolution() Resolution {
	approvals := t.Approvals()
	switch {
	case approvals >= t.quorum:
		return QuorumReached
	case approvals+t.Outstanding() < t.quorum:
		return QuorumUnreachable
	default:
		return Undecided
	}
}

// Votes returns the counted votes in arrival order.
func (t *Tally) Votes() []Vote {
	return slices.Clone(t.votes)
}
