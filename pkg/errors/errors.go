// Package errors defines the run-level error types surfaced by dirstate
// outside the convergence engine: declaration parsing, declaration
// validation, step execution and plugin lookup.
package errors

import (
	"fmt"
)

// ParseError reports a declaration document that could not be decoded.
type ParseError struct {
	Path    string
	Line    int
	Format  string
	Message string
	Err     error
}

// NewParseError constructs a ParseError for the document at path.
func NewParseError(path string, line int, err error) error {
	return NewFormatParseError(path, "", line, err)
}

// NewFormatParseError constructs a ParseError that records the document format.
func NewFormatParseError(path, format string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Format: format, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	location := e.Path
	if e.Line > 0 {
		location = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if e.Format != "" {
		return fmt.Sprintf("parse error (%s): %s: %s", e.Format, location, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", location, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError reports a declaration that decoded but is not acceptable.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError wraps a failure raised while a step was converging.
type ExecutionError struct {
	StepID string
	Path   string
	Err    error
}

// NewExecutionError constructs an ExecutionError for a step.
func NewExecutionError(stepID string, err error) error {
	return &ExecutionError{StepID: stepID, Err: err}
}

// NewPathExecutionError constructs an ExecutionError that also names the
// directory the step manages.
func NewPathExecutionError(stepID, path string, err error) error {
	return &ExecutionError{StepID: stepID, Path: path, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.StepID != "" && e.Path != "":
		return fmt.Sprintf("execution error on step %s (%s): %v", e.StepID, e.Path, e.Err)
	case e.StepID != "":
		return fmt.Sprintf("execution error on step %s: %v", e.StepID, e.Err)
	default:
		return fmt.Sprintf("execution error: %v", e.Err)
	}
}

func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PluginError reports a registry problem for a step type.
type PluginError struct {
	Plugin  string
	Message string
	Err     error
}

// NewPluginError constructs a PluginError for the given step type.
func NewPluginError(plugin string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &PluginError{Plugin: plugin, Message: message, Err: err}
}

func (e *PluginError) Error() string {
	if e == nil {
		return ""
	}
	if e.Plugin != "" {
		return fmt.Sprintf("plugin error [%s]: %s", e.Plugin, e.Message)
	}
	return fmt.Sprintf("plugin error: %s", e.Message)
}

func (e *PluginError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
