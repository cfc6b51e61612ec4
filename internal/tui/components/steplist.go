package components

import (
	"github.com/alexisbeaulieu97/dirstate/internal/model"
)

// StepEntry pairs a step id with its latest result.
type StepEntry struct {
	ID     string
	Result model.StepResult
}

// StepList holds steps in plan order.
type StepList struct {
	entries []StepEntry
}

// NewStepList builds a list in order, looking results up in steps.
func NewStepList(order []string, steps map[string]model.StepResult) StepList {
	entries := make([]StepEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, StepEntry{ID: id, Result: steps[id]})
	}
	return StepList{entries: entries}
}

// Entries returns a copy of the entries.
func (s StepList) Entries() []StepEntry {
	return append([]StepEntry(nil), s.entries...)
}
