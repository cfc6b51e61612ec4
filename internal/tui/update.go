package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles bubbletea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StepCompleteMsg:
		m.record(msg.Result)
		return m, nil
	case RunFinishedMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.finished {
				return m, tea.Quit
			}
			if !m.cancelled && m.opts.OnCancel != nil {
				m.opts.OnCancel()
			}
			m.cancelled = true
			return m, nil
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}
	return m, nil
}
