package engine

import (
	"fmt"
	"slices"
	"strings"
)

// ExecutionPlan lists the levels Execute walks, in order.
type ExecutionPlan struct {
	Levels []ExecutionLevel
	// DependsOn lists every predecessor of a step, declared or implied.
	DependsOn map[string][]string
}

// ExecutionLevel is a set of steps with no ordering between them.
type ExecutionLevel struct {
	StepIDs []string
}

// GeneratePlan converts a sorted graph into an execution plan.
func GeneratePlan(graph *Graph) (*ExecutionPlan, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}

	plan := &ExecutionPlan{
		Levels:    make([]ExecutionLevel, 0, len(graph.Levels)),
		DependsOn: make(map[string][]string, len(graph.Nodes)),
	}
	for _, ids := range graph.Levels {
		plan.Levels = append(plan.Levels, ExecutionLevel{StepIDs: append([]string(nil), ids...)})
	}
	for id, node := range graph.Nodes {
		for _, dep := range node.DependsOn {
			plan.DependsOn[id] = append(plan.DependsOn[id], dep.ID)
		}
		slices.Sort(plan.DependsOn[id])
	}
	return plan, nil
}

// StepCount returns the number of steps across all levels.
func (p *ExecutionPlan) StepCount() int {
	if p == nil {
		return 0
	}
	total := 0
	for _, level := range p.Levels {
		total += len(level.StepIDs)
	}
	return total
}

// String renders one line per level.
func (p *ExecutionPlan) String() string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	for i, level := range p.Levels {
		fmt.Fprintf(&b, "Level %d (%d steps): %s\n", i, len(level.StepIDs), strings.Join(level.StepIDs, ", "))
	}
	return b.String()
}
