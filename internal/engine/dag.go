package engine

import (
	"fmt"
	"slices"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	dserrors "github.com/alexisbeaulieu97/dirstate/pkg/errors"
)

// Node is one step in the execution graph. DependsOn holds both declared
// and implied predecessors.
type Node struct {
	ID         string
	Step       *config.Step
	DependsOn  []*Node
	Dependents []*Node
}

// Graph holds the step DAG and, once sorted, its topological levels. Steps
// in one level have no edges between them.
type Graph struct {
	Nodes  map[string]*Node
	Levels [][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode inserts step as a vertex.
func (g *Graph) AddNode(step *config.Step) (*Node, error) {
	if step == nil {
		return nil, dserrors.NewExecutionError("", fmt.Errorf("step cannot be nil"))
	}
	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}
	if _, exists := g.Nodes[step.ID]; exists {
		return nil, dserrors.NewValidationError("steps", fmt.Sprintf("duplicate step id %q", step.ID), nil)
	}

	node := &Node{ID: step.ID, Step: step}
	g.Nodes[step.ID] = node
	return node, nil
}

// AddEdge records that from must finish before to starts. Adding an
// existing edge is a no-op.
func (g *Graph) AddEdge(from, to string) error {
	source, ok := g.Nodes[from]
	if !ok {
		return dserrors.NewValidationError("steps", fmt.Sprintf("unknown dependency %q", from), nil)
	}
	target, ok := g.Nodes[to]
	if !ok {
		return dserrors.NewValidationError("steps", fmt.Sprintf("unknown dependency target %q", to), nil)
	}
	if from == to {
		return dserrors.NewValidationError("steps", fmt.Sprintf("step %q cannot depend on itself", from), nil)
	}
	if g.HasEdge(from, to) {
		return nil
	}

	source.Dependents = append(source.Dependents, target)
	target.DependsOn = append(target.DependsOn, source)
	return nil
}

// HasEdge reports whether to directly depends on from.
func (g *Graph) HasEdge(from, to string) bool {
	target, ok := g.Nodes[to]
	if !ok {
		return false
	}
	return slices.ContainsFunc(target.DependsOn, func(n *Node) bool { return n.ID == from })
}

// TopologicalSort fills Levels using Kahn's algorithm. Each level is sorted
// so plans are reproducible.
func (g *Graph) TopologicalSort() error {
	remaining := make(map[string]int, len(g.Nodes))
	var ready []string
	for id, node := range g.Nodes {
		remaining[id] = len(node.DependsOn)
		if len(node.DependsOn) == 0 {
			ready = append(ready, id)
		}
	}

	var levels [][]string
	placed := 0
	for len(ready) > 0 {
		slices.Sort(ready)
		levels = append(levels, ready)
		placed += len(ready)

		var next []string
		for _, id := range ready {
			for _, dependent := range g.Nodes[id].Dependents {
				remaining[dependent.ID]--
				if remaining[dependent.ID] == 0 {
					next = append(next, dependent.ID)
				}
			}
		}
		ready = next
	}

	if placed != len(g.Nodes) {
		return dserrors.NewValidationError("steps", "cycle detected while sorting graph", nil)
	}

	g.Levels = levels
	return nil
}
