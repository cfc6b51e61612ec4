package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/dirstate/internal/model"
	"github.com/alexisbeaulieu97/dirstate/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	sections := []string{titleStyle.Render(fmt.Sprintf("dirstate • %s", m.title()))}
	if m.opts.RunID != "" {
		sections = append(sections, dimStyle.Render("run "+m.opts.RunID))
	}

	sections = append(sections, sectionStyle.Render("Progress"), components.NewProgress(m.total).View(m.completed))

	entries := components.NewStepList(m.order, m.steps).Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Steps"), renderStepEntries(entries))
	}

	summary := components.NewSummary(components.SummaryData{
		Total:     m.total,
		Completed: m.completed,
		Changed:   m.changed,
		Failed:    m.failed,
		DryRun:    m.opts.DryRun,
		Finished:  m.finished,
		Cancelled: m.cancelled,
		Err:       m.err,
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func renderStepEntries(entries []components.StepEntry) string {
	var lines []string
	for _, entry := range entries {
		res := entry.Result
		line := fmt.Sprintf(" %s %s", StatusIcon(res.Status), entry.ID)
		if msg := strings.TrimSpace(res.Message); msg != "" && !res.Changed {
			line += " - " + msg
		}
		if res.Duration > 0 {
			line += dimStyle.Render(fmt.Sprintf(" (%s)", res.Duration.Truncate(time.Millisecond)))
		}
		lines = append(lines, line)

		if res.Changed || res.Status == model.StatusWouldCreate || res.Status == model.StatusWouldUpdate {
			for _, action := range res.Actions {
				lines = append(lines, actionStyle.Render("     "+action))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) title() string {
	if m.cfg != nil && strings.TrimSpace(m.cfg.Name) != "" {
		return m.cfg.Name
	}
	return "apply"
}

// StatusIcon returns the glyph for a step status.
func StatusIcon(status string) string {
	switch status {
	case model.StatusSuccess:
		return successStyle.Render("✓")
	case model.StatusRunning:
		return runningStyle.Render("⏳")
	case model.StatusFailed:
		return failureStyle.Render("✗")
	case model.StatusSkipped:
		return skippedStyle.Render("⊘")
	case model.StatusWouldCreate:
		return pendingStyle.Render("✱")
	case model.StatusWouldUpdate:
		return pendingStyle.Render("↻")
	default:
		return pendingStyle.Render("…")
	}
}
