// Package directoryplugin exposes the directory convergence engine as the
// plugin behind "directory" steps.
package directoryplugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/directory"
	"github.com/alexisbeaulieu97/dirstate/internal/fsys"
	"github.com/alexisbeaulieu97/dirstate/internal/model"
	"github.com/alexisbeaulieu97/dirstate/internal/plugin"
	"github.com/alexisbeaulieu97/dirstate/pkg/diff"
)

type directoryPlugin struct {
	engine *directory.Engine
}

// New creates a directory plugin operating on the host filesystem.
func New(opts ...directory.Option) plugin.Plugin {
	return NewWithFS(fsys.NewOS(), opts...)
}

// NewWithFS creates a directory plugin operating on filesystem.
func NewWithFS(filesystem fsys.FS, opts ...directory.Option) plugin.Plugin {
	return &directoryPlugin{engine: directory.NewEngine(filesystem, opts...)}
}

func (p *directoryPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "directory",
		Version:     "1.0.0",
		StepType:    config.StepTypeDirectory,
		Description: "Creates, deletes and reconciles owner, group and mode of directories.",
	}
}

func (p *directoryPlugin) Schema() any {
	return config.DirectoryStep{}
}

func (p *directoryPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	desired, action, err := declaration(step)
	if err != nil {
		return nil, err
	}

	assessment, err := p.engine.InspectPlanned(desired, action, plugin.PlannedFrom(ctx))
	if err != nil {
		return nil, classify(step.ID, err)
	}

	result := &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   verificationStatus(assessment.Status),
		RequiresAction: assessment.RequiresAction(),
		Message:        assessment.Message,
		Pending:        assessment.Pending,
		Provides:       assessment.Creates,
		InternalData:   assessment,
	}
	if assessment.Status != directory.StatusSatisfied {
		result.Diff = diff.Lines(assessment.DesiredLines, assessment.ObservedLines, "desired", "observed")
	}
	return result, nil
}

// Apply converges the step. It re-runs every precondition rather than
// trusting evalResult, since the filesystem may have changed in between.
func (p *directoryPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	desired, action, err := declaration(step)
	if err != nil {
		return nil, err
	}

	res, err := p.engine.Converge(desired, action)
	if err != nil {
		return &model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusFailed,
			Message: err.Error(),
			Changed: res.Changed,
			Actions: res.Actions,
			Error:   err,
		}, classify(step.ID, err)
	}

	result := &model.StepResult{
		StepID:  step.ID,
		Status:  model.StatusSkipped,
		Changed: res.Changed,
		Actions: res.Actions,
		Message: fmt.Sprintf("directory %s already converged", desired.Path),
	}
	if res.Changed {
		result.Status = model.StatusSuccess
		result.Message = strings.Join(res.Actions, "; ")
	}
	return result, nil
}

func declaration(step *config.Step) (directory.DesiredState, directory.Action, error) {
	if step == nil {
		return directory.DesiredState{}, "", plugin.NewValidationError("", fmt.Errorf("step is nil"))
	}
	if step.Directory == nil {
		return directory.DesiredState{}, "", plugin.NewValidationError(step.ID, fmt.Errorf("directory configuration missing"))
	}

	desired, action, err := step.Directory.DesiredState()
	if err != nil {
		return directory.DesiredState{}, "", plugin.NewValidationError(step.ID, err)
	}
	return desired, action, nil
}

// classify maps engine failures onto plugin error types: probe failures
// mean the state is unreadable, errors without a kind come from the
// declaration itself, and everything else failed to converge.
func classify(stepID string, err error) error {
	switch directory.KindOf(err) {
	case nil:
		return plugin.NewValidationError(stepID, err)
	case directory.ErrProbeFailure:
		return plugin.NewStateError(stepID, err)
	default:
		return plugin.NewExecutionError(stepID, err)
	}
}

func verificationStatus(status directory.Status) model.VerificationStatus {
	switch status {
	case directory.StatusSatisfied:
		return model.StatusSatisfied
	case directory.StatusMissing:
		return model.StatusMissing
	case directory.StatusDrifted:
		return model.StatusDrifted
	case directory.StatusBlocked:
		return model.StatusBlocked
	default:
		return model.StatusUnknown
	}
}
