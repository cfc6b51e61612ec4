package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/logger"
	"github.com/alexisbeaulieu97/dirstate/internal/model"
	"github.com/alexisbeaulieu97/dirstate/internal/plugin"
	dserrors "github.com/alexisbeaulieu97/dirstate/pkg/errors"
)

// Execute runs the plan level by level and returns step results in plan
// order. Steps inside a level run concurrently, at most parallel at a time.
// The first failure cancels everything still running unless
// ContinueOnError is set, in which case steps depending on a failed step
// are skipped and the first error is returned at the end.
func Execute(execCtx *ExecutionContext, plan *ExecutionPlan) ([]model.StepResult, error) {
	if execCtx == nil {
		return nil, dserrors.NewExecutionError("", fmt.Errorf("execution context is nil"))
	}
	if execCtx.Config == nil {
		return nil, dserrors.NewExecutionError("", fmt.Errorf("execution context config is nil"))
	}
	if execCtx.Registry == nil {
		return nil, dserrors.NewExecutionError("", fmt.Errorf("execution context registry is nil"))
	}
	if plan == nil {
		return nil, dserrors.NewExecutionError("", fmt.Errorf("execution plan is nil"))
	}

	ctx, cancel := context.WithCancel(execCtx.base())
	defer cancel()

	stepLookup := make(map[string]*config.Step, len(execCtx.Config.Steps))
	for i := range execCtx.Config.Steps {
		step := &execCtx.Config.Steps[i]
		stepLookup[step.ID] = step
	}

	if execCtx.Results == nil {
		execCtx.Results = make(map[string]*model.StepResult)
	}

	var (
		resultsMu    sync.Mutex
		allResults   []model.StepResult
		firstErr     error
		notConverged = make(map[string]bool)
		planned      = newPlannedSet()
	)

	for _, level := range plan.Levels {
		levelResults := make([]*model.StepResult, len(level.StepIDs))

		var group errgroup.Group
		group.SetLimit(execCtx.parallel())

		for idx, stepID := range level.StepIDs {
			step, ok := stepLookup[stepID]
			if !ok {
				return allResults, dserrors.NewExecutionError(stepID, fmt.Errorf("step not found"))
			}

			resultsMu.Lock()
			failedDeps := failedDependencies(notConverged, plan.DependsOn[stepID])
			resultsMu.Unlock()

			group.Go(func() error {
				var (
					res *model.StepResult
					err error
				)
				if len(failedDeps) > 0 {
					res = skippedResult(step.ID, failedDeps)
				} else {
					res, err = executeStep(ctx, execCtx, step, planned)
				}

				resultsMu.Lock()
				if err != nil || len(failedDeps) > 0 {
					notConverged[step.ID] = true
				}
				if res != nil {
					execCtx.Results[step.ID] = res
				}
				resultsMu.Unlock()

				if res != nil {
					levelResults[idx] = res
					if execCtx.OnStepComplete != nil {
						execCtx.OnStepComplete(*res)
					}
				}

				if err != nil && !execCtx.ContinueOnError {
					cancel()
				}
				return err
			})
		}

		levelErr := group.Wait()
		planned.commit()
		for _, res := range levelResults {
			if res != nil {
				allResults = append(allResults, *res)
			}
		}

		if levelErr != nil {
			if firstErr == nil {
				firstErr = levelErr
			}
			if !execCtx.ContinueOnError {
				return allResults, levelErr
			}
		}
	}

	return allResults, firstErr
}

// failedDependencies returns the deps that failed or were themselves
// skipped.
func failedDependencies(notConverged map[string]bool, deps []string) []string {
	var failed []string
	for _, dep := range deps {
		if notConverged[dep] {
			failed = append(failed, dep)
		}
	}
	return failed
}

func skippedResult(stepID string, failedDeps []string) *model.StepResult {
	return &model.StepResult{
		StepID:    stepID,
		Status:    model.StatusSkipped,
		Message:   fmt.Sprintf("skipped: dependency not converged: %s", strings.Join(failedDeps, ", ")),
		Timestamp: time.Now(),
	}
}

// plannedSet collects what dry-run steps would have created. Steps only see
// what earlier levels staged, so a level's outcome does not depend on
// scheduling order inside it.
type plannedSet struct {
	mu        sync.Mutex
	committed map[string]bool
	staged    []string
}

func newPlannedSet() *plannedSet {
	return &plannedSet{committed: make(map[string]bool)}
}

func (p *plannedSet) has(resource string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.committed[resource]
}

func (p *plannedSet) stage(resources []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.staged = append(p.staged, resources...)
}

func (p *plannedSet) commit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, resource := range p.staged {
		p.committed[resource] = true
	}
	p.staged = nil
}

func executeStep(ctx context.Context, execCtx *ExecutionContext, step *config.Step, planned *plannedSet) (*model.StepResult, error) {
	if ctx.Err() != nil {
		return nil, dserrors.NewExecutionError(step.ID, ctx.Err())
	}

	stepCtx := ctx
	if timeout := execCtx.stepTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	log := stepLogger(execCtx.Logger, step)

	impl, err := execCtx.Registry.Get(step.Type)
	if err != nil {
		result := &model.StepResult{StepID: step.ID, Status: model.StatusFailed}
		return finalizeFailure(log, result, stepCtx, step, start, dserrors.NewPluginError(step.Type, err))
	}

	evalCtx := stepCtx
	if execCtx.DryRun {
		evalCtx = plugin.WithPlanned(stepCtx, planned.has)
	}

	evalResult, err := impl.Evaluate(evalCtx, step)
	if err != nil {
		result := &model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusFailed,
			Message: fmt.Sprintf("evaluation failed: %v", err),
		}
		return finalizeFailure(log, result, stepCtx, step, start, err)
	}

	var result *model.StepResult
	switch {
	case execCtx.DryRun:
		result, err = dryRunResult(evalResult)
		if err == nil && result.Status != model.StatusSkipped {
			planned.stage(evalResult.Provides)
		}
	case evalResult.RequiresAction || evalResult.CurrentState == model.StatusBlocked:
		// Blocked steps go through Apply so the failure carries the
		// engine's own error rather than a restated message.
		result, err = impl.Apply(stepCtx, evalResult, step)
	default:
		result = &model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusSkipped,
			Message: evalResult.Message,
		}
	}

	if result == nil {
		result = &model.StepResult{}
	}
	if result.StepID == "" {
		result.StepID = step.ID
	}

	if err != nil {
		return finalizeFailure(log, result, stepCtx, step, start, err)
	}

	result.Duration = time.Since(start)
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}
	if result.Status == "" {
		result.Status = model.StatusSuccess
	}
	if result.Message == "" {
		result.Message = "completed"
	}

	logStep(log, result)
	return result, nil
}

func dryRunResult(eval *model.EvaluationResult) (*model.StepResult, error) {
	result := &model.StepResult{
		StepID:  eval.StepID,
		Message: eval.Message,
		Actions: eval.Pending,
	}

	switch {
	case eval.CurrentState == model.StatusBlocked:
		result.Status = model.StatusFailed
		return result, errors.New(eval.Message)
	case eval.CurrentState == model.StatusMissing:
		result.Status = model.StatusWouldCreate
	case eval.RequiresAction:
		result.Status = model.StatusWouldUpdate
	default:
		result.Status = model.StatusSkipped
		result.Actions = nil
	}
	return result, nil
}

func finalizeFailure(log *logger.Logger, result *model.StepResult, stepCtx context.Context, step *config.Step, start time.Time, err error) (*model.StepResult, error) {
	result.Status = model.StatusFailed
	result.Duration = time.Since(start)
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}
	if result.Error == nil {
		result.Error = err
	}
	if result.Message == "" {
		result.Message = err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		result.Message = "timeout exceeded"
	}

	log.WithFields(map[string]any{
		"status":      result.Status,
		"changed":     result.Changed,
		"duration_ms": result.Duration.Milliseconds(),
	}).Error(err, "step failed")

	return result, dserrors.NewPathExecutionError(step.ID, stepPath(step), err)
}

func stepLogger(log *logger.Logger, step *config.Step) *logger.Logger {
	if log == nil {
		return logger.Nop()
	}
	fields := map[string]any{"step": step.ID}
	if step.Directory != nil {
		fields["path"] = step.Directory.Path
		action := step.Directory.Action
		if action == "" {
			action = "create"
		}
		fields["action"] = action
	}
	return log.WithFields(fields)
}

func logStep(log *logger.Logger, result *model.StepResult) {
	entry := log.WithFields(map[string]any{
		"status":      result.Status,
		"changed":     result.Changed,
		"duration_ms": result.Duration.Milliseconds(),
	})
	if result.Changed {
		for _, action := range result.Actions {
			log.WithFields(map[string]any{"change": action}).Debug("applied change")
		}
		entry.Info("step converged")
		return
	}
	entry.Debug("step finished")
}

func stepPath(step *config.Step) string {
	if step.Directory == nil {
		return ""
	}
	return step.Directory.Path
}

// Executor runs read-only verification.
type Executor struct {
	logger *logger.Logger
}

// NewExecutor creates an executor. log may be nil.
func NewExecutor(log *logger.Logger) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{logger: log}
}

// VerifySteps evaluates every enabled step in dependency order without
// changing anything. A step whose declared dependencies are not satisfied is
// reported as blocked without being evaluated. StateError from a plugin
// becomes an unknown result; validation and execution errors abort the run.
func (e *Executor) VerifySteps(execCtx *ExecutionContext, steps []config.Step, defaultTimeout time.Duration) (*model.VerificationSummary, error) {
	start := time.Now()
	ctx := execCtx.base()

	if execCtx.Registry == nil {
		return nil, dserrors.NewExecutionError("", fmt.Errorf("execution context registry is nil"))
	}

	graph, err := BuildDAG(steps)
	if err != nil {
		return nil, err
	}

	summary := &model.VerificationSummary{
		TotalSteps: len(graph.Nodes),
		Results:    make([]*model.VerificationResult, 0, len(graph.Nodes)),
	}

	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}

	resultsByID := make(map[string]*model.VerificationResult, len(graph.Nodes))
	record := func(result *model.VerificationResult) {
		summary.Add(result)
		resultsByID[result.StepID] = result
		e.logger.WithFields(map[string]any{
			"step":   result.StepID,
			"status": string(result.Status),
		}).Debug("verified step")
	}

	for _, level := range graph.Levels {
		for _, stepID := range level {
			step := graph.Nodes[stepID].Step

			if err := ctx.Err(); err != nil {
				summary.Duration = time.Since(start)
				return summary, err
			}

			if unsatisfied := unsatisfiedDependencies(resultsByID, step.DependsOn); len(unsatisfied) > 0 {
				reason := fmt.Sprintf("dependencies not satisfied: %s", strings.Join(unsatisfied, ", "))
				record(&model.VerificationResult{
					StepID:    step.ID,
					Status:    model.StatusBlocked,
					Message:   "blocked: " + reason,
					Error:     errors.New(reason),
					Timestamp: time.Now(),
				})
				continue
			}

			p, err := execCtx.Registry.Get(step.Type)
			if err != nil {
				record(&model.VerificationResult{
					StepID:    step.ID,
					Status:    model.StatusBlocked,
					Message:   fmt.Sprintf("plugin not found for type %s", step.Type),
					Error:     err,
					Timestamp: time.Now(),
				})
				continue
			}

			stepStart := time.Now()
			stepCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
			evalResult, verifyErr := p.Evaluate(stepCtx, step)
			cancel()

			if verifyErr != nil {
				var stateErr *plugin.StateError
				if errors.As(verifyErr, &stateErr) {
					record(&model.VerificationResult{
						StepID:    step.ID,
						Status:    model.StatusUnknown,
						Message:   stateErr.Error(),
						Error:     stateErr.Unwrap(),
						Duration:  time.Since(stepStart),
						Timestamp: time.Now(),
					})
					continue
				}

				summary.Duration = time.Since(start)
				if _, ok := plugin.AsPluginError(verifyErr); ok {
					return summary, verifyErr
				}
				return summary, dserrors.NewExecutionError(step.ID, verifyErr)
			}

			record(&model.VerificationResult{
				StepID:    step.ID,
				Status:    evalResult.CurrentState,
				Message:   evalResult.Message,
				Details:   evalResult.Diff,
				Duration:  time.Since(stepStart),
				Timestamp: time.Now(),
			})
		}
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

func unsatisfiedDependencies(results map[string]*model.VerificationResult, deps []string) []string {
	var unsatisfied []string
	for _, dep := range deps {
		res, ok := results[dep]
		if !ok {
			continue
		}
		if res.Status != model.StatusSatisfied {
			unsatisfied = append(unsatisfied, fmt.Sprintf("%s (%s)", dep, res.Status))
		}
	}
	return unsatisfied
}
