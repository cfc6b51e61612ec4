package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/model"
	"github.com/alexisbeaulieu97/dirstate/internal/plugin"
)

func dirStep(id, path, action string, deps ...string) config.Step {
	return config.Step{
		ID:        id,
		Type:      config.StepTypeDirectory,
		Enabled:   true,
		DependsOn: deps,
		Directory: &config.DirectoryStep{Path: path, Action: action},
	}
}

// fakePlugin reports a configurable state per step and records Apply calls.
type fakePlugin struct {
	mu       sync.Mutex
	applied  []string
	states   map[string]model.VerificationStatus
	evalErrs map[string]error
	failStep string
	delay    time.Duration

	running    atomic.Int32
	maxRunning atomic.Int32
}

func (p *fakePlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{Name: "fake", Version: "1.0.0", StepType: config.StepTypeDirectory}
}

func (p *fakePlugin) Schema() any { return nil }

func (p *fakePlugin) Evaluate(_ context.Context, step *config.Step) (*model.EvaluationResult, error) {
	if err, ok := p.evalErrs[step.ID]; ok {
		return nil, err
	}
	state := model.StatusMissing
	if s, ok := p.states[step.ID]; ok {
		state = s
	}
	return &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   state,
		RequiresAction: state == model.StatusMissing || state == model.StatusDrifted,
		Message:        string(state),
		Pending:        []string{"create directory " + step.ID},
	}, nil
}

func (p *fakePlugin) Apply(ctx context.Context, _ *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	now := p.running.Add(1)
	defer p.running.Add(-1)
	for {
		prev := p.maxRunning.Load()
		if now <= prev || p.maxRunning.CompareAndSwap(prev, now) {
			break
		}
	}

	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return &model.StepResult{StepID: step.ID, Status: model.StatusFailed, Error: ctx.Err()}, ctx.Err()
		case <-time.After(p.delay):
		}
	}

	p.mu.Lock()
	p.applied = append(p.applied, step.ID)
	p.mu.Unlock()

	if p.failStep == step.ID || p.states[step.ID] == model.StatusBlocked {
		err := errors.New("boom")
		return &model.StepResult{StepID: step.ID, Status: model.StatusFailed, Error: err}, err
	}
	return &model.StepResult{
		StepID:  step.ID,
		Status:  model.StatusSuccess,
		Changed: true,
		Actions: []string{"create directory " + step.ID},
		Message: "ok",
	}, nil
}

func (p *fakePlugin) applyOrder() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.applied...)
}

func newFakeRegistry(t testing.TB, p plugin.Plugin) *plugin.Registry {
	t.Helper()
	reg := plugin.NewRegistry(nil)
	require.NoError(t, reg.Register(p))
	return reg
}

func newExecContext(t *testing.T, p plugin.Plugin, steps ...config.Step) (*ExecutionContext, *ExecutionPlan) {
	t.Helper()
	cfg := &config.Config{Version: "1.0", Name: t.Name(), Steps: steps}

	graph, err := BuildDAG(cfg.Steps)
	require.NoError(t, err)
	plan, err := GeneratePlan(graph)
	require.NoError(t, err)

	return &ExecutionContext{
		Config:   cfg,
		Registry: newFakeRegistry(t, p),
		Context:  context.Background(),
	}, plan
}
