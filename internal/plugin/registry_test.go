package plugin

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/logger"
	"github.com/alexisbeaulieu97/dirstate/internal/model"
)

type stubPlugin struct {
	meta PluginMetadata
}

func (s stubPlugin) PluginMetadata() PluginMetadata { return s.meta }

func (s stubPlugin) Schema() any { return nil }

func (s stubPlugin) Evaluate(context.Context, *config.Step) (*model.EvaluationResult, error) {
	return &model.EvaluationResult{}, nil
}

func (s stubPlugin) Apply(context.Context, *model.EvaluationResult, *config.Step) (*model.StepResult, error) {
	return &model.StepResult{}, nil
}

func newStub(name, stepType string) stubPlugin {
	return stubPlugin{meta: PluginMetadata{Name: name, Version: "1.0.0", StepType: stepType}}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := logger.New(logger.Options{Level: "debug", Writer: buf})
	require.NoError(t, err)

	reg := NewRegistry(log)
	require.NoError(t, reg.Register(newStub("directory", "directory")))

	got, err := reg.Get("directory")
	require.NoError(t, err)
	require.Equal(t, "directory", got.PluginMetadata().Name)
	require.Contains(t, buf.String(), "registered plugin")
}

func TestRegistry_GetUnknown(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(nil).Get("symlink")

	var notFound ErrPluginNotFound
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "symlink", notFound.Name)
	require.EqualError(t, err, "no plugin registered for step type 'symlink'")
}

func TestRegistry_RejectsDuplicatesAndBadMetadata(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(newStub("directory", "directory")))
	require.ErrorContains(t, reg.Register(newStub("other", "directory")), "already registered")

	require.Error(t, reg.Register(nil))
	require.ErrorContains(t, reg.Register(stubPlugin{meta: PluginMetadata{Name: "x", Version: "1.0", StepType: "x"}}), "invalid Version")
	require.ErrorContains(t, reg.Register(stubPlugin{meta: PluginMetadata{Version: "1.0.0", StepType: "x"}}), "Name")
	require.ErrorContains(t, reg.Register(stubPlugin{meta: PluginMetadata{Name: "x", Version: "1.0.0"}}), "StepType")
}

func TestRegistry_ListSortedAndConcurrent(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(nil)
	var wg sync.WaitGroup
	for _, stepType := range []string{"gamma", "alpha", "beta"} {
		wg.Add(1)
		go func(stepType string) {
			defer wg.Done()
			require.NoError(t, reg.Register(newStub(stepType, stepType)))
		}(stepType)
	}
	wg.Wait()

	require.Equal(t, []string{"alpha", "beta", "gamma"}, reg.List())
}
