package config

import (
	"slices"
	"sort"
)

const (
	unvisited = iota
	inProgress
	done
)

// detectCycle returns the ids along a dependency cycle among enabled steps,
// first id repeated at the end, or nil when the graph is acyclic. Ids are
// visited in sorted order so the reported cycle is deterministic.
func detectCycle(steps []Step) []string {
	deps := make(map[string][]string, len(steps))
	for _, step := range steps {
		if step.Enabled {
			deps[step.ID] = nil
		}
	}
	for _, step := range steps {
		if !step.Enabled {
			continue
		}
		for _, dep := range step.DependsOn {
			if _, ok := deps[dep]; ok {
				deps[step.ID] = append(deps[step.ID], dep)
			}
		}
	}

	ids := make([]string, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	state := make(map[string]int, len(deps))
	var path []string

	var visit func(string) []string
	visit = func(id string) []string {
		state[id] = inProgress
		path = append(path, id)

		for _, dep := range deps[id] {
			switch state[dep] {
			case inProgress:
				start := slices.Index(path, dep)
				return append(slices.Clone(path[start:]), dep)
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		state[id] = done
		path = path[:len(path)-1]
		return nil
	}

	for _, id := range ids {
		if state[id] != unvisited {
			continue
		}
		if cycle := visit(id); cycle != nil {
			return cycle
		}
	}
	return nil
}
