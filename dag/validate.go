package dag

import (
	"slices"
	"sort"
)

// ValidatedGraph is a graph that passed Validate together with its
// topological layers. It is immutable.
type ValidatedGraph struct {
	graph      *Graph
	layers     [][]string
	layerOf    map[string]int
	dependents map[string][]string
}

// Validate checks a graph and computes its layers. Layer 0 holds the tasks
// without dependencies; every task sits one layer above its deepest
// dependency. The input is not modified.
func Validate(g *Graph) (*ValidatedGraph, error) {
	if g == nil {
		return nil, invalidf("", "graph is nil")
	}
	if err := g.Policy.validate(); err != nil {
		return nil, invalidf("", "policy: %v", err)
	}

	ids := sortedIDs(g.Tasks)
	for _, id := range ids {
		t := g.Tasks[id]
		if id == "" {
			return nil, invalidf("", "task with empty id")
		}
		if t.ID != id {
			return nil, invalidf(id, "task keyed %q declares id %q", id, t.ID)
		}
		if t.Executor.Type == "" {
			return nil, invalidf(id, "task %q has no executor", id)
		}
		if err := t.Decision.Validate(); err != nil {
			return nil, invalidf(id, "task %q decision: %v", id, err)
		}
		seen := make(map[string]bool, len(t.DependsOn))
		for _, dep := range t.DependsOn {
			if seen[dep] {
				return nil, invalidf(id, "task %q lists dependency %q twice", id, dep)
			}
			seen[dep] = true
			if dep == id {
				return nil, cycleError([]string{id, id})
			}
			if _, ok := g.Tasks[dep]; !ok {
				return nil, unknownDependency(id, dep)
			}
		}
	}

	if err := detectCycle(g, ids); err != nil {
		return nil, err
	}

	snapshot := g.Clone()
	layers, err := BuildLevels(snapshot)
	if err != nil {
		return nil, invalidf("", "%v", err)
	}

	vg := &ValidatedGraph{
		graph:      snapshot,
		layers:     layers,
		layerOf:    make(map[string]int, len(ids)),
		dependents: make(map[string][]string),
	}
	for i, layer := range layers {
		for _, id := range layer {
			vg.layerOf[id] = i
		}
	}
	for _, e := range snapshot.Edges() {
		vg.dependents[e.From] = append(vg.dependents[e.From], e.To)
	}
	return vg, nil
}

// detectCycle walks dependencies depth first with recursion-stack marking.
// Colors: 0 unvisited, 1 on the stack, 2 done.
func detectCycle(g *Graph, ids []string) error {
	colors := make(map[string]int, len(ids))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		colors[id] = 1
		stack = append(stack, id)

		deps := slices.Clone(g.Tasks[id].DependsOn)
		sort.Strings(deps)
		for _, dep := range deps {
			switch colors[dep] {
			case 1:
				start := slices.Index(stack, dep)
				path := append(slices.Clone(stack[start:]), dep)
				return cycleError(path)
			case 0:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[id] = 2
		return nil
	}

	for _, id := range ids {
		if colors[id] == 0 {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Graph returns the validated snapshot. Callers must not modify it.
func (v *ValidatedGraph) Graph() *Graph { return v.graph }

// Task returns a task by id.
func (v *ValidatedGraph) Task(id string) (Task, bool) {
	t, ok := v.graph.Tasks[id]
	return t, ok
}

// Len returns the number of tasks.
func (v *ValidatedGraph) Len() int { return len(v.graph.Tasks) }

// Layers returns a copy of the topological layers.
func (v *ValidatedGraph) Layers() [][]string {
	out := make([][]string, len(v.layers))
	for i, l := range v.layers {
		out[i] = slices.Clone(l)
	}
	return out
}

// Layer returns the layer index of a task, or -1 when it is unknown.
func (v *ValidatedGraph) Layer(id string) int {
	if l, ok := v.layerOf[id]; ok {
		return l
	}
	return -1
}

// Dependents returns the tasks that directly depend on id, sorted.
func (v *ValidatedGraph) Dependents(id string) []string {
	return slices.Clone(v.dependents[id])
}

// IDs returns every task id ordered by layer, then id.
func (v *ValidatedGraph) IDs() []string {
	out := make([]string, 0, len(v.graph.Tasks))
	for _, l := range v.layers {
		out = append(out, l...)
	}
	return out
}

func sortedIDs(tasks map[string]Task) []string {
	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
