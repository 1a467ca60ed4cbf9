package decision

import (
	"fmt"
	"slices"
	"time"
)

// Kind identifies a decision level variant.
type Kind string

const (
	KindMechanical  Kind = "mechanical"
	KindRecommended Kind = "recommended"
	KindConfirmed   Kind = "confirmed"
	KindArbitrated  Kind = "arbitrated"
)

// Kinds lists every decision kind.
var Kinds = []Kind{KindMechanical, KindRecommended, KindConfirmed, KindArbitrated}

// Level is the authorization strategy attached to a task. Only the fields
// of its Kind are meaningful.
type Level struct {
	Kind Kind `json:"kind"`

	// Mechanical
	MaxRetries int `json:"max_retries,omitempty"`

	// Recommended
	Timeout       time.Duration `json:"timeout,omitempty"`
	DefaultAction string        `json:"default_action,omitempty"`

	// Arbitrated
	Stakeholders []string `json:"stakeholders,omitempty"`
	Quorum       int      `json:"quorum,omitempty"`
}

// Mechanical returns a level that runs at once and retries failures.
func Mechanical(maxRetries int) Level {
	return Level{Kind: KindMechanical, MaxRetries: maxRetries}
}

// Recommended returns a level that proceeds with defaultAction unless
// cancelled within timeout.
func Recommended(timeout time.Duration, defaultAction string) Level {
	return Level{Kind: KindRecommended, Timeout: timeout, DefaultAction: defaultAction}
}

// Confirmed returns a level that waits for a single approval.
func Confirmed() Level {
	return Level{Kind: KindConfirmed}
}

// Arbitrated returns a level that waits for quorum approvals among stakeholders.
func Arbitrated(stakeholders []string, quorum int) Level {
	return Level{Kind: KindArbitrated, Stakeholders: slices.Clone(stakeholders), Quorum: quorum}
}

// Attempts is the number of executor invocations a task may make.
func (l Level) Attempts() int {
	if l.Kind == KindMechanical {
		return l.MaxRetries + 1
	}
	return 1
}

// Waits reports whether the level suspends for an external signal.
func (l Level) Waits() bool {
	return l.Kind != KindMechanical
}

// IsStakeholder reports whether id may vote on an arbitrated task.
func (l Level) IsStakeholder(id string) bool {
	return slices.Contains(l.Stakeholders, id)
}

// Validate checks the fields of the level's kind.
func (l Level) Validate() error {
	switch l.Kind {
	case KindMechanical:
		if l.MaxRetries < 0 {
			return fmt.Errorf("mechanical: max_retries must be >= 0 (got %d)", l.MaxRetries)
		}
	case KindRecommended:
		if l.Timeout <= 0 {
			return fmt.Errorf("recommended: timeout must be positive (got %s)", l.Timeout)
		}
	case KindConfirmed:
	case KindArbitrated:
		if len(l.Stakeholders) == 0 {
			return fmt.Errorf("arbitrated: at least one stakeholder is required")
		}
		seen := make(map[string]bool, len(l.Stakeholders))
		for _, s := range l.Stakeholders {
			if s == "" {
				return fmt.Errorf("arbitrated: empty stakeholder id")
			}
			if seen[s] {
				return fmt.Errorf("arbitrated: duplicate stakeholder %q", s)
			}
			seen[s] = true
		}
		if l.Quorum < 1 || l.Quorum > len(l.Stakeholders) {
			return fmt.Errorf("arbitrated: quorum must be within [1,%d] (got %d)", len(l.Stakeholders), l.Quorum)
		}
	default:
		return fmt.Errorf("unknown decision kind %q", l.Kind)
	}
	return nil
}

func (l Level) String() string {
	switch l.Kind {
	case KindMechanical:
		return fmt.Sprintf("mechanical(retries=%d)", l.MaxRetries)
	case KindRecommended:
		return fmt.Sprintf("recommended(timeout=%s, default=%s)", l.Timeout, l.DefaultAction)
	case KindArbitrated:
		return fmt.Sprintf("arbitrated(%d of %d)", l.Quorum, len(l.Stakeholders))
	default:
		return string(l.Kind)
	}
}
