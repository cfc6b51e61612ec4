package plugin

import (
	"context"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/model"
)

// Plugin converges the steps of one type.
//
// Evaluate must not mutate anything: it observes the current state, compares
// it with the step and reports what Apply would do. Apply is only called when
// Evaluate returned RequiresAction, receives that evaluation back, and must
// be idempotent.
//
// Both return PluginError values (ValidationError, ExecutionError,
// StateError) so the executor can tell configuration mistakes, failed
// changes and unreadable state apart.
type Plugin interface {
	// PluginMetadata identifies the plugin and the step type it serves.
	PluginMetadata() PluginMetadata

	// Schema returns the zero value of the step-specific configuration struct.
	Schema() any

	Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error)

	Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error)
}
