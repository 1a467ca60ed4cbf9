package dag

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// PolicyKind selects how a failed task affects the rest of the run.
type PolicyKind string

const (
	// PolicyAllSuccess aborts the run on any failure.
	PolicyAllSuccess PolicyKind = "all_success"
	// PolicyBestEffort tolerates failures and cancels the dependents of a failed task.
	PolicyBestEffort PolicyKind = "best_effort"
	// PolicyContinueOn behaves like BestEffort for the listed failure kinds
	// and like AllSuccess for every other kind.
	PolicyContinueOn PolicyKind = "continue_on"
)

// ExecutionPolicy is the graph-wide partial failure rule.
type ExecutionPolicy struct {
	Kind  PolicyKind    `json:"kind"`
	Kinds []FailureKind `json:"kinds,omitempty"`
}

// AllSuccess returns the policy that aborts on any failure.
func AllSuccess() ExecutionPolicy { return ExecutionPolicy{Kind: PolicyAllSuccess} }

// BestEffort returns the policy that tolerates every failure.
func BestEffort() ExecutionPolicy { return ExecutionPolicy{Kind: PolicyBestEffort} }

// ContinueOn returns the policy that tolerates only the given failure kinds.
func ContinueOn(kinds ...FailureKind) ExecutionPolicy {
	return ExecutionPolicy{Kind: PolicyContinueOn, Kinds: slices.Clone(kinds)}
}

// Tolerates reports whether a failure of the given kind lets the run go on.
func (p ExecutionPolicy) Tolerates(kind FailureKind) bool {
	switch p.Kind {
	case PolicyBestEffort:
		return true
	case PolicyContinueOn:
		return slices.Contains(p.Kinds, kind)
	default:
		return false
	}
}

func (p ExecutionPolicy) String() string {
	if p.Kind == PolicyContinueOn {
		kinds := make([]string, len(p.Kinds))
		for i, k := range p.Kinds {
			kinds[i] = string(k)
		}
		return fmt.Sprintf("continue_on(%s)", strings.Join(kinds, ","))
	}
	if p.Kind == "" {
		return string(PolicyAllSuccess)
	}
	return string(p.Kind)
}

func (p ExecutionPolicy) validate() error {
	switch p.Kind {
	case "", PolicyAllSuccess, PolicyBestEffort:
		return nil
	case PolicyContinueOn:
		for _, k := range p.Kinds {
			if !slices.Contains(FailureKinds, k) {
				return fmt.Errorf("unknown failure kind %q", k)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown policy %q", p.Kind)
	}
}

// Graph is a set of tasks keyed by id plus the policy that governs them.
// Dependencies are declared on the dependent task.
type Graph struct {
	Name   string          `json:"name"`
	Tasks  map[string]Task `json:"tasks"`
	Policy ExecutionPolicy `json:"policy"`
}

// Edge is a dependency: To depends on From.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Edges returns every dependency edge, sorted.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for id, t := range g.Tasks {
		for _, dep := range t.DependsOn {
			edges = append(edges, Edge{From: dep, To: id})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].From < edges[j].From
	})
	return edges
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{Name: g.Name, Tasks: make(map[string]Task, len(g.Tasks)), Policy: g.Policy}
	c.Policy.Kinds = slices.Clone(g.Policy.Kinds)
	for id, t := range g.Tasks {
		c.Tasks[id] = t.clone()
	}
	return c
}

// BuildLevels uses Kahn's algorithm to group tasks by dependency level.
// Tasks within the same level can execute in parallel. Each level is sorted
// by id. It returns an error if an edge is dangling or a cycle exists.
func BuildLevels(g *Graph) ([][]string, error) {
	inDegree := make(map[string]int, len(g.Tasks))
	dependents := make(map[string][]string)

	for id := range g.Tasks {
		inDegree[id] = 0
	}

	for _, e := range g.Edges() {
		if _, ok := g.Tasks[e.From]; !ok {
			return nil, fmt.Errorf("dag: edge references unknown task %q", e.From)
		}
		inDegree[e.To]++
		dependents[e.From] = append(dependents[e.From], e.To)
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	var levels [][]string
	visited := 0

	for len(queue) > 0 {
		sort.Strings(queue)
		levels = append(levels, queue)
		visited += len(queue)

		var next []string
		for _, id := range queue {
			for _, dep := range dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		queue = next
	}

	if visited != len(g.Tasks) {
		return nil, fmt.Errorf("dag: cycle detected, processed %d of %d tasks", visited, len(g.Tasks))
	}

	return levels, nil
}
