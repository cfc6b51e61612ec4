package components

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/dirstate/internal/model"
)

func TestProgress_Ratio(t *testing.T) {
	t.Parallel()

	require.Zero(t, NewProgress(0).Ratio(3))
	require.InDelta(t, 0.5, NewProgress(4).Ratio(2), 1e-9)
	require.InDelta(t, 1.0, NewProgress(2).Ratio(5), 1e-9)
	require.Contains(t, NewProgress(4).View(1), "1/4")
}

func TestStepList_EntriesAreCopies(t *testing.T) {
	t.Parallel()

	list := NewStepList([]string{"b", "a"}, map[string]model.StepResult{
		"a": {StepID: "a", Status: model.StatusSuccess},
	})
	entries := list.Entries()
	require.Equal(t, "b", entries[0].ID)
	require.Equal(t, model.StatusSuccess, entries[1].Result.Status)

	entries[0].ID = "changed"
	require.Equal(t, "b", list.Entries()[0].ID)
}

func TestSummary_View(t *testing.T) {
	t.Parallel()

	require.Empty(t, NewSummary(SummaryData{Total: 3}).View())

	running := NewSummary(SummaryData{Total: 3, Completed: 1, Changed: 1}).View()
	require.Contains(t, running, "Steps: 1/3 completed")
	require.NotContains(t, running, "Run")

	require.Contains(t, NewSummary(SummaryData{Total: 3, Completed: 1, Finished: true}).View(), "pending steps")
	require.Contains(t, NewSummary(SummaryData{Total: 1, Completed: 1, Finished: true}).View(), "successfully")
	require.Contains(t, NewSummary(SummaryData{Cancelled: true}).View(), "Run cancelled")
	require.Contains(t, NewSummary(SummaryData{Finished: true, Err: errors.New("x")}).View(), "Run failed: x")
}
