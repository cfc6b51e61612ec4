package engine

import (
	"context"
	"time"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/logger"
	"github.com/alexisbeaulieu97/dirstate/internal/model"
	"github.com/alexisbeaulieu97/dirstate/internal/plugin"
)

// ApplyOptions tunes a single ApplyConfig run. Zero values fall back to the
// document's settings.
type ApplyOptions struct {
	DryRun          bool
	ContinueOnError bool
	Parallel        int
	StepTimeout     time.Duration
	Logger          *logger.Logger
	OnStepComplete  func(model.StepResult)
}

// ApplyReport summarises an apply run.
type ApplyReport struct {
	Plan        *ExecutionPlan
	Results     []model.StepResult
	Changed     int
	FailedSteps []string
	Duration    time.Duration
}

// Succeeded reports whether no step failed.
func (r *ApplyReport) Succeeded() bool {
	return len(r.FailedSteps) == 0
}

// ApplyConfig plans and executes cfg. The error is non-nil when planning
// failed, in which case the report is nil, or when a step failed, in which
// case the report covers every step that ran.
func ApplyConfig(ctx context.Context, cfg *config.Config, registry *plugin.Registry, opts ApplyOptions) (*ApplyReport, error) {
	start := time.Now()

	graph, err := BuildDAG(cfg.Steps)
	if err != nil {
		return nil, err
	}
	plan, err := GeneratePlan(graph)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	log.WithFields(map[string]any{
		"steps":   plan.StepCount(),
		"levels":  len(plan.Levels),
		"dry_run": opts.DryRun || cfg.Settings.DryRun,
	}).Info("starting apply")

	execCtx := &ExecutionContext{
		Config:          cfg,
		Registry:        registry,
		DryRun:          opts.DryRun || cfg.Settings.DryRun,
		ContinueOnError: opts.ContinueOnError || cfg.Settings.ContinueOnError,
		Parallel:        opts.Parallel,
		StepTimeout:     opts.StepTimeout,
		Results:         make(map[string]*model.StepResult),
		Logger:          log,
		Context:         ctx,
		OnStepComplete:  opts.OnStepComplete,
	}

	results, execErr := Execute(execCtx, plan)

	report := &ApplyReport{Plan: plan, Results: results}
	for _, res := range results {
		if res.Changed {
			report.Changed++
		}
		if res.Failed() {
			report.FailedSteps = append(report.FailedSteps, res.StepID)
		}
	}
	report.Duration = time.Since(start)

	fields := log.WithFields(map[string]any{
		"changed":     report.Changed,
		"failed":      len(report.FailedSteps),
		"duration_ms": report.Duration.Milliseconds(),
	})
	if execErr != nil {
		fields.Error(execErr, "apply failed")
	} else {
		fields.Info("apply complete")
	}

	return report, execErr
}
