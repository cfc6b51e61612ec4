// Package diff renders line-oriented differences between a desired and an
// observed description of a resource.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Lines compares two sets of lines and returns a unified-style listing.
// Unchanged lines are prefixed with a space, lines only in desired with "-"
// and lines only in observed with "+". Returns "" when both sides match.
func Lines(desired, observed []string, desiredLabel, observedLabel string) string {
	left := joinLines(desired)
	right := joinLines(observed)
	if left == right {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, table := dmp.DiffLinesToChars(left, right)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), table)

	var buf strings.Builder
	fmt.Fprintf(&buf, "--- %s\n", desiredLabel)
	fmt.Fprintf(&buf, "+++ %s\n", observedLabel)

	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			buf.WriteString(prefix)
			buf.WriteString(line)
		}
	}

	return buf.String()
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
