package engine

import (
	"context"
	"time"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/logger"
	"github.com/alexisbeaulieu97/dirstate/internal/model"
	"github.com/alexisbeaulieu97/dirstate/internal/plugin"
)

// DefaultParallel bounds concurrent steps when neither the document nor the
// caller sets a limit.
const DefaultParallel = 4

// ExecutionContext contains runtime state shared across executor workers.
type ExecutionContext struct {
	Config          *config.Config
	Registry        *plugin.Registry
	DryRun          bool
	ContinueOnError bool
	// Parallel overrides Config.Settings.Parallel when positive.
	Parallel int
	// StepTimeout overrides Config.Settings.Timeout when positive.
	StepTimeout time.Duration
	Results     map[string]*model.StepResult
	Logger      *logger.Logger
	Context     context.Context

	// OnStepComplete, when set, is called once per finished step. It may be
	// called from several goroutines at once.
	OnStepComplete func(model.StepResult)
}

func (c *ExecutionContext) parallel() int {
	switch {
	case c.Parallel > 0:
		return c.Parallel
	case c.Config != nil && c.Config.Settings.Parallel > 0:
		return c.Config.Settings.Parallel
	default:
		return DefaultParallel
	}
}

func (c *ExecutionContext) stepTimeout() time.Duration {
	if c.StepTimeout > 0 {
		return c.StepTimeout
	}
	if c.Config != nil && c.Config.Settings.Timeout > 0 {
		return time.Duration(c.Config.Settings.Timeout) * time.Second
	}
	return 0
}

func (c *ExecutionContext) base() context.Context {
	if c.Context == nil {
		return context.Background()
	}
	return c.Context
}
