package engine

import (
	"fmt"
	"path/filepath"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/directory"
	dserrors "github.com/alexisbeaulieu97/dirstate/pkg/errors"
)

// BuildDAG constructs the execution graph for the enabled steps.
//
// Besides depends_on, directory steps are ordered by path: a create of an
// ancestor runs before a create beneath it, and a delete beneath a path runs
// before the delete of that path.
func BuildDAG(steps []config.Step) (*Graph, error) {
	graph := NewGraph()

	for i := range steps {
		step := &steps[i]
		if !step.Enabled {
			continue
		}
		if _, err := graph.AddNode(step); err != nil {
			return nil, err
		}
	}

	for _, step := range steps {
		if !step.Enabled {
			continue
		}
		for _, dependency := range step.DependsOn {
			if _, ok := graph.Nodes[dependency]; !ok {
				return nil, dserrors.NewValidationError("steps", fmt.Sprintf("step %q depends on unknown step %q", step.ID, dependency), nil)
			}
			if err := graph.AddEdge(dependency, step.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := addPathEdges(graph, steps); err != nil {
		return nil, err
	}

	if err := graph.TopologicalSort(); err != nil {
		return nil, err
	}
	return graph, nil
}

type locatedStep struct {
	id     string
	path   string
	action directory.Action
}

func addPathEdges(graph *Graph, steps []config.Step) error {
	byPath := make(map[string][]locatedStep)
	var located []locatedStep

	for _, step := range steps {
		if !step.Enabled || step.Directory == nil {
			continue
		}
		path, action, ok := stepTarget(step.Directory)
		if !ok {
			continue
		}
		entry := locatedStep{id: step.ID, path: path, action: action}
		byPath[path] = append(byPath[path], entry)
		located = append(located, entry)
	}

	for _, child := range located {
		if child.path == filepath.Dir(child.path) {
			continue
		}
		for ancestor := filepath.Dir(child.path); ; ancestor = filepath.Dir(ancestor) {
			for _, parent := range byPath[ancestor] {
				if parent.action != child.action {
					continue
				}
				from, to := parent.id, child.id
				if child.action == directory.ActionDelete {
					from, to = child.id, parent.id
				}
				if err := graph.AddEdge(from, to); err != nil {
					return err
				}
			}
			if ancestor == filepath.Dir(ancestor) {
				break
			}
		}
	}
	return nil
}

// stepTarget returns the absolute path and action of a directory step.
// Steps that do not parse are left to validation and get no implied edges.
func stepTarget(dir *config.DirectoryStep) (string, directory.Action, bool) {
	action, err := directory.ParseAction(dir.Action)
	if err != nil || dir.Path == "" {
		return "", "", false
	}
	path, err := filepath.Abs(dir.Path)
	if err != nil {
		return "", "", false
	}
	return path, action, true
}
