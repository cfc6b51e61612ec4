package plugin

import (
	"errors"
	"fmt"
)

// ErrPluginNotFound is returned when no plugin serves a step type.
type ErrPluginNotFound struct {
	Name string
}

func (e ErrPluginNotFound) Error() string {
	return fmt.Sprintf("no plugin registered for step type '%s'", e.Name)
}

// PluginError is implemented by every structured plugin failure.
type PluginError interface {
	error
	StepID() string
	Unwrap() error
}

type stepError struct {
	kind string
	ID   string
	Err  error
}

func (e *stepError) Error() string {
	if e.Err == nil {
		return e.kind + " error in step " + e.ID
	}
	return e.kind + " error in step " + e.ID + ": " + e.Err.Error()
}

// StepID returns the identifier of the failing step.
func (e *stepError) StepID() string { return e.ID }

// Unwrap returns the underlying cause.
func (e *stepError) Unwrap() error { return e.Err }

// ValidationError: the step configuration cannot be turned into a
// declaration (bad mode, unknown action, missing block).
type ValidationError struct{ stepError }

// NewValidationError creates a ValidationError.
func NewValidationError(stepID string, err error) *ValidationError {
	return &ValidationError{stepError{kind: "validation", ID: stepID, Err: err}}
}

// Is matches any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// ExecutionError: the step could not be converged, either because a
// precondition refused it or because a filesystem change failed.
type ExecutionError struct{ stepError }

// NewExecutionError creates an ExecutionError.
func NewExecutionError(stepID string, err error) *ExecutionError {
	return &ExecutionError{stepError{kind: "execution", ID: stepID, Err: err}}
}

// Is matches any *ExecutionError.
func (e *ExecutionError) Is(target error) bool {
	_, ok := target.(*ExecutionError)
	return ok
}

// StateError: the current state could not be read.
type StateError struct{ stepError }

// NewStateError creates a StateError.
func NewStateError(stepID string, err error) *StateError {
	return &StateError{stepError{kind: "state", ID: stepID, Err: err}}
}

// Is matches any *StateError.
func (e *StateError) Is(target error) bool {
	_, ok := target.(*StateError)
	return ok
}

// AsPluginError extracts the first PluginError in err's chain.
func AsPluginError(err error) (PluginError, bool) {
	var pluginErr PluginError
	if errors.As(err, &pluginErr) {
		return pluginErr, true
	}
	return nil, false
}
