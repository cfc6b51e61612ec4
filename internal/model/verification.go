package model

import "time"

// VerificationStatus classifies a step during a read-only check.
type VerificationStatus string

const (
	StatusSatisfied VerificationStatus = "satisfied"
	StatusMissing   VerificationStatus = "missing"
	StatusDrifted   VerificationStatus = "drifted"
	StatusBlocked   VerificationStatus = "blocked"
	StatusUnknown   VerificationStatus = "unknown"
)

// IsValid reports whether s is one of the known statuses.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusSatisfied, StatusMissing, StatusDrifted, StatusBlocked, StatusUnknown:
		return true
	default:
		return false
	}
}

// VerificationResult is the verify outcome for one step.
type VerificationResult struct {
	StepID    string
	Status    VerificationStatus
	Message   string
	Details   string
	Error     error
	Duration  time.Duration
	Timestamp time.Time
}

// VerificationSummary aggregates verify results across a document.
type VerificationSummary struct {
	TotalSteps int
	Satisfied  int
	Missing    int
	Drifted    int
	Blocked    int
	Unknown    int
	Duration   time.Duration
	Results    []*VerificationResult
}

// Add appends result and bumps the matching counter.
func (s *VerificationSummary) Add(result *VerificationResult) {
	s.Results = append(s.Results, result)
	switch result.Status {
	case StatusSatisfied:
		s.Satisfied++
	case StatusMissing:
		s.Missing++
	case StatusDrifted:
		s.Drifted++
	case StatusBlocked:
		s.Blocked++
	default:
		s.Unknown++
	}
}

// AllSatisfied reports whether every step is already converged.
func (s *VerificationSummary) AllSatisfied() bool {
	return s.Missing == 0 && s.Drifted == 0 && s.Blocked == 0 && s.Unknown == 0
}

// NeedsApply reports whether any step is not satisfied.
func (s *VerificationSummary) NeedsApply() bool {
	return !s.AllSatisfied()
}

// ExitCode maps the summary to the verify command's exit status: 0 when
// everything is satisfied, 1 otherwise.
func (s *VerificationSummary) ExitCode() int {
	if s.AllSatisfied() {
		return 0
	}
	return 1
}
