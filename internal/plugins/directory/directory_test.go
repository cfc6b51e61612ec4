package directoryplugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/directory"
	"github.com/alexisbeaulieu97/dirstate/internal/fsys"
	"github.com/alexisbeaulieu97/dirstate/internal/model"
	"github.com/alexisbeaulieu97/dirstate/internal/plugin"
)

type staticIdentities map[string]int

func (s staticIdentities) LookupUser(name string) (int, error) {
	if id, ok := s[name]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("unknown user %s", name)
}

func (s staticIdentities) LookupGroup(name string) (int, error) {
	if id, ok := s[name]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("unknown group %s", name)
}

func newMemPlugin(t *testing.T, dirs ...string) (plugin.Plugin, afero.Fs) {
	t.Helper()
	base := afero.NewMemMapFs()
	for _, dir := range dirs {
		require.NoError(t, base.MkdirAll(dir, 0o755))
	}
	p := NewWithFS(fsys.New(base), directory.WithIdentityResolver(staticIdentities{"deploy": 1000}))
	return p, base
}

func dirStep(id string, dir config.DirectoryStep) *config.Step {
	return &config.Step{ID: id, Type: config.StepTypeDirectory, Enabled: true, Directory: &dir}
}

func TestDirectoryPlugin_Metadata(t *testing.T) {
	t.Parallel()

	p := New()
	meta := p.PluginMetadata()
	require.NoError(t, meta.Validate())
	require.Equal(t, "directory", meta.StepType)

	_, ok := p.Schema().(config.DirectoryStep)
	require.True(t, ok, "schema should be a DirectoryStep")
}

func TestDirectoryPlugin_EvaluateThenApplyCreates(t *testing.T) {
	t.Parallel()

	p, base := newMemPlugin(t, "/srv")
	step := dirStep("app", config.DirectoryStep{Path: "/srv/app", Mode: "0700"})

	eval, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.Equal(t, model.StatusMissing, eval.CurrentState)
	require.True(t, eval.RequiresAction)
	require.Equal(t, []string{"create directory /srv/app", "set mode of /srv/app to 0700"}, eval.Pending)
	require.Contains(t, eval.Diff, "-directory /srv/app")

	_, err = base.Stat("/srv/app")
	require.True(t, os.IsNotExist(err), "evaluate must not create the directory")

	result, err := p.Apply(context.Background(), eval, step)
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, result.Status)
	require.True(t, result.Changed)
	require.Equal(t, "create directory /srv/app", result.Actions[0])

	again, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.Equal(t, model.StatusSatisfied, again.CurrentState)
	require.False(t, again.RequiresAction)
	require.Empty(t, again.Diff)
}

func TestDirectoryPlugin_EvaluateDriftDiff(t *testing.T) {
	t.Parallel()

	p, _ := newMemPlugin(t, "/srv/app")
	step := dirStep("app", config.DirectoryStep{Path: "/srv/app", Mode: "0700"})

	eval, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.Equal(t, model.StatusDrifted, eval.CurrentState)
	require.Equal(t, []string{"change mode of /srv/app from 0755 to 0700"}, eval.Pending)
	require.Contains(t, eval.Diff, "-mode 0700")
	require.Contains(t, eval.Diff, "+mode 0755")
	require.Contains(t, eval.Diff, " directory /srv/app")
}

func TestDirectoryPlugin_ApplyAlreadyConverged(t *testing.T) {
	t.Parallel()

	p, _ := newMemPlugin(t, "/srv/app")
	step := dirStep("app", config.DirectoryStep{Path: "/srv/app"})

	result, err := p.Apply(context.Background(), nil, step)
	require.NoError(t, err)
	require.Equal(t, model.StatusSkipped, result.Status)
	require.False(t, result.Changed)
	require.Equal(t, "directory /srv/app already converged", result.Message)
}

func TestDirectoryPlugin_BlockedEvaluationFailsApply(t *testing.T) {
	t.Parallel()

	p, _ := newMemPlugin(t, "/srv")
	step := dirStep("deep", config.DirectoryStep{Path: "/srv/a/b"})

	eval, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.Equal(t, model.StatusBlocked, eval.CurrentState)
	require.False(t, eval.RequiresAction)
	require.Contains(t, eval.Message, "enclosing directory does not exist")

	result, err := p.Apply(context.Background(), eval, step)
	require.Error(t, err)
	require.ErrorIs(t, err, &plugin.ExecutionError{})
	require.ErrorIs(t, err, directory.ErrEnclosingDirectoryDoesNotExist)
	require.Equal(t, model.StatusFailed, result.Status)
	require.False(t, result.Changed)
}

func TestDirectoryPlugin_UnknownOwnerIsBlocked(t *testing.T) {
	t.Parallel()

	p, _ := newMemPlugin(t, "/srv/app")
	step := dirStep("app", config.DirectoryStep{Path: "/srv/app", Owner: "ghost"})

	eval, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.Equal(t, model.StatusBlocked, eval.CurrentState)
	require.Contains(t, eval.Message, "ghost")
}

func TestDirectoryPlugin_Delete(t *testing.T) {
	t.Parallel()

	p, base := newMemPlugin(t, "/srv/old")
	step := dirStep("old", config.DirectoryStep{Path: "/srv/old", Action: "delete"})

	eval, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.Equal(t, model.StatusDrifted, eval.CurrentState)
	require.Equal(t, []string{"delete directory /srv/old"}, eval.Pending)

	result, err := p.Apply(context.Background(), eval, step)
	require.NoError(t, err)
	require.True(t, result.Changed)

	exists, err := afero.DirExists(base, "/srv/old")
	require.NoError(t, err)
	require.False(t, exists)

	eval, err = p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.Equal(t, model.StatusSatisfied, eval.CurrentState)
}

func TestDirectoryPlugin_ValidationErrors(t *testing.T) {
	t.Parallel()

	p, _ := newMemPlugin(t)

	cases := map[string]*config.Step{
		"missing block": {ID: "a", Type: config.StepTypeDirectory},
		"bad mode":      dirStep("a", config.DirectoryStep{Path: "/a", Mode: "rwx"}),
		"bad action":    dirStep("a", config.DirectoryStep{Path: "/a", Action: "purge"}),
		"empty path":    dirStep("a", config.DirectoryStep{Path: "  "}),
	}

	for name, step := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Evaluate(context.Background(), step)
			require.ErrorIs(t, err, &plugin.ValidationError{})

			_, err = p.Apply(context.Background(), nil, step)
			require.ErrorIs(t, err, &plugin.ValidationError{})
		})
	}
}

func TestDirectoryPlugin_CancelledContext(t *testing.T) {
	t.Parallel()

	p, base := newMemPlugin(t, "/srv")
	step := dirStep("app", config.DirectoryStep{Path: "/srv/app"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Evaluate(ctx, step)
	require.ErrorIs(t, err, context.Canceled)

	_, err = p.Apply(ctx, nil, step)
	require.ErrorIs(t, err, context.Canceled)

	exists, err := afero.DirExists(base, "/srv/app")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestDirectoryPlugin_HostFilesystem(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := filepath.Join(root, "a", "b")
	step := dirStep("nested", config.DirectoryStep{Path: target, Mode: "0750", Recursive: true})

	p := New()
	eval, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	require.Equal(t, model.StatusMissing, eval.CurrentState)
	require.Len(t, eval.Pending, 3)

	_, err = p.Apply(context.Background(), eval, step)
	require.NoError(t, err)

	info, err := os.Stat(target)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, os.FileMode(0o750), info.Mode().Perm())
}
