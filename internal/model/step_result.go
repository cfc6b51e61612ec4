package model

import (
	"time"
)

const (
	// StatusPending indicates a step has not started yet.
	StatusPending = "pending"
	// StatusRunning indicates a step is converging.
	StatusRunning = "running"
	// StatusSuccess marks a step whose directory was changed successfully.
	StatusSuccess = "success"
	// StatusSkipped marks a step that needed no change, or was not run.
	StatusSkipped = "skipped"
	// StatusFailed marks a failure while converging.
	StatusFailed = "failed"
	// StatusWouldCreate: dry-run found the directory missing.
	StatusWouldCreate = "would_create"
	// StatusWouldUpdate: dry-run found attribute drift or a directory to delete.
	StatusWouldUpdate = "would_update"
)

// StepResult captures the outcome of converging a single step.
type StepResult struct {
	StepID    string
	Status    string
	Message   string
	Changed   bool
	Actions   []string
	Error     error
	Duration  time.Duration
	Timestamp time.Time
}

// Failed reports whether the step ended in StatusFailed.
func (r StepResult) Failed() bool {
	return r.Status == StatusFailed
}
