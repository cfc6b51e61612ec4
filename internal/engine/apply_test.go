package engine

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/dirstate/internal/config"
	"github.com/alexisbeaulieu97/dirstate/internal/fsys"
	"github.com/alexisbeaulieu97/dirstate/internal/model"
	"github.com/alexisbeaulieu97/dirstate/internal/plugin"
	directoryplugin "github.com/alexisbeaulieu97/dirstate/internal/plugins/directory"
)

func newDirectoryRegistry(t *testing.T, base afero.Fs) *plugin.Registry {
	t.Helper()
	reg := plugin.NewRegistry(nil)
	require.NoError(t, reg.Register(directoryplugin.NewWithFS(fsys.New(base))))
	return reg
}

func TestApplyConfig_ConvergesDirectoryTree(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/srv/old/cache", 0o755))

	app := dirStep("app", "/srv/app", "")
	app.Directory.Mode = "0750"
	cfg := &config.Config{
		Version:  "1.0",
		Name:     "tree",
		Settings: config.Settings{Parallel: 4},
		Steps: []config.Step{
			dirStep("logs", "/srv/app/logs", ""),
			app,
			dirStep("old", "/srv/old", "delete"),
			dirStep("cache", "/srv/old/cache", "delete"),
		},
	}
	reg := newDirectoryRegistry(t, base)

	var (
		mu    sync.Mutex
		count int
	)
	report, err := ApplyConfig(context.Background(), cfg, reg, ApplyOptions{
		OnStepComplete: func(model.StepResult) {
			mu.Lock()
			count++
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	require.True(t, report.Succeeded())
	require.Equal(t, 4, report.Changed)
	require.Equal(t, 4, count)
	require.Equal(t, []string{"app", "cache"}, report.Plan.Levels[0].StepIDs)
	require.Equal(t, []string{"logs", "old"}, report.Plan.Levels[1].StepIDs)

	info, err := base.Stat("/srv/app")
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o750), info.Mode().Perm())

	exists, err := afero.DirExists(base, "/srv/app/logs")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = afero.DirExists(base, "/srv/old")
	require.NoError(t, err)
	require.False(t, exists)

	summary, err := NewExecutor(nil).VerifySteps(&ExecutionContext{Registry: reg}, cfg.Steps, 0)
	require.NoError(t, err)
	require.True(t, summary.AllSatisfied())
	require.Zero(t, summary.ExitCode())

	again, err := ApplyConfig(context.Background(), cfg, reg, ApplyOptions{})
	require.NoError(t, err)
	require.Zero(t, again.Changed)
}

func TestApplyConfig_DryRunLeavesFilesystemAlone(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/srv", 0o755))

	cfg := &config.Config{
		Version: "1.0",
		Name:    "dry",
		Steps:   []config.Step{dirStep("app", "/srv/app", "")},
	}

	report, err := ApplyConfig(context.Background(), cfg, newDirectoryRegistry(t, base), ApplyOptions{DryRun: true})
	require.NoError(t, err)
	require.Equal(t, model.StatusWouldCreate, report.Results[0].Status)
	require.Equal(t, []string{"create directory /srv/app"}, report.Results[0].Actions)

	exists, err := afero.DirExists(base, "/srv/app")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestApplyConfig_ReportsFailedSteps(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/srv", 0o755))

	cfg := &config.Config{
		Version:  "1.0",
		Name:     "fail",
		Settings: config.Settings{ContinueOnError: true},
		Steps: []config.Step{
			dirStep("orphan", "/missing/parent/child", ""),
			dirStep("fine", "/srv/fine", ""),
		},
	}

	report, err := ApplyConfig(context.Background(), cfg, newDirectoryRegistry(t, base), ApplyOptions{})
	require.Error(t, err)
	require.False(t, report.Succeeded())
	require.Equal(t, []string{"orphan"}, report.FailedSteps)
	require.Equal(t, 1, report.Changed)
}

func TestApplyConfig_PlanningError(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Steps: []config.Step{dirStep("a", "/a", "", "ghost")}}
	report, err := ApplyConfig(context.Background(), cfg, plugin.NewRegistry(nil), ApplyOptions{})
	require.Error(t, err)
	require.Nil(t, report)
}

func TestApplyConfig_DryRunPlansChildrenOfCreatedParents(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/srv", 0o755))

	leaf := dirStep("leaf", "/srv/a/b/c", "")
	leaf.Directory.Mode = "0700"
	cfg := &config.Config{
		Version: "1.0",
		Name:    "nested",
		Steps: []config.Step{
			dirStep("parent", "/srv/a", ""),
			dirStep("child", "/srv/a/b", ""),
			leaf,
		},
	}
	reg := newDirectoryRegistry(t, base)

	report, err := ApplyConfig(context.Background(), cfg, reg, ApplyOptions{DryRun: true})
	require.NoError(t, err)
	require.True(t, report.Succeeded())

	byID := make(map[string]model.StepResult, len(report.Results))
	for _, res := range report.Results {
		byID[res.StepID] = res
	}
	require.Equal(t, model.StatusWouldCreate, byID["parent"].Status)
	require.Equal(t, model.StatusWouldCreate, byID["child"].Status)
	require.Equal(t, []string{"create directory /srv/a/b"}, byID["child"].Actions)
	require.Equal(t, []string{
		"create directory /srv/a/b/c",
		"set mode of /srv/a/b/c to 0700",
	}, byID["leaf"].Actions)

	exists, err := afero.DirExists(base, "/srv/a")
	require.NoError(t, err)
	require.False(t, exists)

	applied, err := ApplyConfig(context.Background(), cfg, reg, ApplyOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, applied.Changed)
}

func TestApplyConfig_DryRunStillFailsWithoutPlannedParent(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/srv", 0o755))

	cfg := &config.Config{
		Version: "1.0",
		Name:    "orphan",
		Steps: []config.Step{
			dirStep("sibling", "/srv/a", ""),
			dirStep("orphan", "/srv/missing/b", ""),
		},
	}

	report, err := ApplyConfig(context.Background(), cfg, newDirectoryRegistry(t, base),
		ApplyOptions{DryRun: true, ContinueOnError: true})
	require.Error(t, err)
	require.Equal(t, []string{"orphan"}, report.FailedSteps)
}
