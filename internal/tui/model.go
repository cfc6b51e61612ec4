// Package tui renders apply progress with bubbletea.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/engine"
	"github.com/alexisbeaulieu97/dirstate/internal/model"
)

// StepCompleteMsg reports that a step has finished.
type StepCompleteMsg struct {
	Result model.StepResult
}

// RunFinishedMsg is sent once the executor returns.
type RunFinishedMsg struct {
	Err error
}

// Options configure a Model.
type Options struct {
	DryRun bool
	RunID  string
	// OnCancel is invoked when the user interrupts the run.
	OnCancel func()
}

// Model is the bubbletea state of the apply view.
type Model struct {
	cfg   *config.Config
	opts  Options
	steps map[string]model.StepResult
	order []string

	total     int
	completed int
	changed   int
	failed    int
	finished  bool
	cancelled bool
	err       error
}

// NewModel creates a model listing every step of plan as pending.
func NewModel(cfg *config.Config, plan *engine.ExecutionPlan, opts Options) Model {
	m := Model{
		cfg:   cfg,
		opts:  opts,
		steps: make(map[string]model.StepResult),
	}
	if plan != nil {
		for _, level := range plan.Levels {
			for _, id := range level.StepIDs {
				m.ensureStep(id)
			}
		}
	}
	return m
}

// WithResults records every result as if it had been streamed, then marks
// the run finished with err. It backs the non-interactive output.
func (m Model) WithResults(results []model.StepResult, err error) Model {
	for _, res := range results {
		m.record(res)
	}
	m.finished = true
	m.err = err
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// TotalSteps returns the number of steps tracked.
func (m Model) TotalSteps() int {
	return m.total
}

// CompletedSteps returns the number of steps with a final result.
func (m Model) CompletedSteps() int {
	return m.completed
}

// IsFinished reports whether the run has ended.
func (m Model) IsFinished() bool {
	return m.finished
}

// Cancelled reports whether the user interrupted the run.
func (m Model) Cancelled() bool {
	return m.cancelled
}

func (m *Model) ensureStep(id string) {
	if id == "" {
		return
	}
	if _, exists := m.steps[id]; exists {
		return
	}
	m.steps[id] = model.StepResult{StepID: id, Status: model.StatusPending}
	m.order = append(m.order, id)
	m.total++
}

func (m *Model) record(res model.StepResult) {
	if res.StepID == "" {
		return
	}
	m.ensureStep(res.StepID)
	if previous := m.steps[res.StepID]; previous.Status == model.StatusPending || previous.Status == model.StatusRunning {
		m.completed++
		if res.Changed {
			m.changed++
		}
		if res.Failed() {
			m.failed++
		}
	}
	m.steps[res.StepID] = res
}
