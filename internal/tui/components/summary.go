package components

import (
	"fmt"
	"strings"
)

// SummaryData aggregates the counters shown under the step list.
type SummaryData struct {
	Total     int
	Completed int
	Changed   int
	Failed    int
	DryRun    bool
	Finished  bool
	Cancelled bool
	Err       error
}

// Summary renders a textual run summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a Summary.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary. It is empty until something has completed.
func (s Summary) View() string {
	d := s.data
	if d.Completed == 0 && !d.Finished && !d.Cancelled {
		return ""
	}

	var lines []string
	if d.Total > 0 {
		lines = append(lines, fmt.Sprintf("Steps: %d/%d completed", d.Completed, d.Total))
	}
	if d.DryRun {
		lines = append(lines, fmt.Sprintf("Dry run: %d failed, nothing changed", d.Failed))
	} else {
		lines = append(lines, fmt.Sprintf("Changed: %d, failed: %d", d.Changed, d.Failed))
	}

	switch {
	case d.Cancelled:
		lines = append(lines, "Run cancelled")
	case !d.Finished:
	case d.Err != nil:
		lines = append(lines, "Run failed: "+d.Err.Error())
	case d.Completed < d.Total:
		lines = append(lines, "Run finished with pending steps")
	default:
		lines = append(lines, "Run finished successfully")
	}

	return strings.Join(lines, "\n")
}
