package directory

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/dirstate/internal/fsys"
)

func newMemEngine(t *testing.T, dirs ...string) (*Engine, afero.Fs) {
	t.Helper()
	base := afero.NewMemMapFs()
	for _, dir := range dirs {
		require.NoError(t, base.MkdirAll(dir, 0o755))
	}
	return NewEngine(fsys.New(base), WithIdentityResolver(testIdentities())), base
}

func TestEnsurePresent_RecursiveIsIdempotent(t *testing.T) {
	t.Parallel()

	engine, base := newMemEngine(t, "/srv")
	desired := DesiredState{Path: "/srv/a/b", Recursive: true}.WithMode(0o700)

	first, err := engine.EnsurePresent(desired)
	require.NoError(t, err)
	require.True(t, first.Changed)
	require.Equal(t, []string{
		"create directory /srv/a",
		"create directory /srv/a/b",
		"change mode of /srv/a/b from 0755 to 0700",
	}, first.Actions)

	info, err := base.Stat("/srv/a/b")
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	parent, err := base.Stat("/srv/a")
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), parent.Mode().Perm())

	second, err := engine.EnsurePresent(desired)
	require.NoError(t, err)
	require.False(t, second.Changed)
	require.Empty(t, second.Actions)
}

func TestEnsurePresent_ReconcilesExistingMode(t *testing.T) {
	t.Parallel()

	engine, base := newMemEngine(t, "/srv/app")

	changed, err := engine.ReconcileAttributes(DesiredState{Path: "/srv/app"}.WithMode(os.ModeSetgid | 0o750))
	require.NoError(t, err)
	require.True(t, changed)

	info, err := base.Stat("/srv/app")
	require.NoError(t, err)
	require.Equal(t, "2750", FormatMode(info.Mode()&modeMask))

	changed, err = engine.ReconcileAttributes(DesiredState{Path: "/srv/app"}.WithMode(os.ModeSetgid | 0o750))
	require.NoError(t, err)
	require.False(t, changed)
}

func TestReconcileAttributes_MissingDirectory(t *testing.T) {
	t.Parallel()

	engine, _ := newMemEngine(t)

	_, err := engine.ReconcileAttributes(DesiredState{Path: "/nope"}.WithMode(0o700))
	require.ErrorIs(t, err, ErrProbeFailure)
	require.ErrorIs(t, err, os.ErrNotExist)

	changed, err := engine.ReconcileAttributes(DesiredState{Path: "/nope"})
	require.NoError(t, err)
	require.False(t, changed)
}

func TestEnsurePresent_UnwritableParentLeavesTreeUntouched(t *testing.T) {
	t.Parallel()

	engine, base := newMemEngine(t)
	require.NoError(t, base.MkdirAll("/ro", 0o555))

	_, err := engine.EnsurePresent(DesiredState{Path: "/ro/a/b", Recursive: true})
	require.ErrorIs(t, err, ErrEnclosingDirectoryNotWritable)

	exists, err := afero.DirExists(base, "/ro/a")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestEnsureAbsent_RemovesThenNoops(t *testing.T) {
	t.Parallel()

	engine, base := newMemEngine(t, "/srv/app")
	desired := DesiredState{Path: "/srv/app"}

	first, err := engine.EnsureAbsent(desired)
	require.NoError(t, err)
	require.True(t, first.Changed)

	exists, err := afero.DirExists(base, "/srv/app")
	require.NoError(t, err)
	require.False(t, exists)

	second, err := engine.EnsureAbsent(desired)
	require.NoError(t, err)
	require.False(t, second.Changed)
}

func TestEnsureAbsent_FileIsLeftInPlace(t *testing.T) {
	t.Parallel()

	engine, base := newMemEngine(t, "/srv")
	require.NoError(t, afero.WriteFile(base, "/srv/app", []byte("data"), 0o644))

	_, err := engine.EnsureAbsent(DesiredState{Path: "/srv/app"})
	require.ErrorIs(t, err, ErrTargetIsNotADirectory)

	exists, err := afero.Exists(base, "/srv/app")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestInspect_MissingRecursiveListsPendingCreates(t *testing.T) {
	t.Parallel()

	engine, base := newMemEngine(t, "/srv")
	desired := DesiredState{Path: "/srv/a/b", Owner: "deploy", Recursive: true}.WithMode(0o750)

	a, err := engine.Inspect(desired, ActionCreate)
	require.NoError(t, err)
	require.Equal(t, StatusMissing, a.Status)
	require.True(t, a.RequiresAction())
	require.Equal(t, []string{
		"create directory /srv/a",
		"create directory /srv/a/b",
		"set owner of /srv/a/b to deploy (1000)",
		"set mode of /srv/a/b to 0750",
	}, a.Pending)
	require.Equal(t, []string{"directory /srv/a/b", "owner 1000", "mode 0750"}, a.DesiredLines)
	require.Empty(t, a.ObservedLines)

	exists, err := afero.DirExists(base, "/srv/a")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestInspect_DriftDoesNotMutate(t *testing.T) {
	t.Parallel()

	engine, base := newMemEngine(t, "/srv/app")

	a, err := engine.Inspect(DesiredState{Path: "/srv/app"}.WithMode(0o700), ActionCreate)
	require.NoError(t, err)
	require.Equal(t, StatusDrifted, a.Status)
	require.Equal(t, []string{"change mode of /srv/app from 0755 to 0700"}, a.Pending)
	require.Contains(t, a.Message, "mode")
	require.Equal(t, []string{"directory /srv/app", "mode 0755"}, a.ObservedLines)

	info, err := base.Stat("/srv/app")
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestInspect_Satisfied(t *testing.T) {
	t.Parallel()

	engine, _ := newMemEngine(t, "/srv/app")

	a, err := engine.Inspect(DesiredState{Path: "/srv/app"}.WithMode(0o755), ActionCreate)
	require.NoError(t, err)
	require.Equal(t, StatusSatisfied, a.Status)
	require.False(t, a.RequiresAction())
	require.Equal(t, a.DesiredLines, a.ObservedLines)
}

func TestInspect_BlockedPrecondition(t *testing.T) {
	t.Parallel()

	engine, _ := newMemEngine(t)

	a, err := engine.Inspect(DesiredState{Path: "/srv/app"}, ActionCreate)
	require.NoError(t, err)
	require.Equal(t, StatusBlocked, a.Status)
	require.False(t, a.RequiresAction())
	require.ErrorIs(t, a.Err, ErrEnclosingDirectoryDoesNotExist)
	require.Empty(t, a.Pending)
}

func TestInspect_BlockedUnknownGroup(t *testing.T) {
	t.Parallel()

	engine, _ := newMemEngine(t, "/srv/app")

	a, err := engine.Inspect(DesiredState{Path: "/srv/app", Group: "nobody-here"}, ActionCreate)
	require.NoError(t, err)
	require.Equal(t, StatusBlocked, a.Status)
	require.ErrorIs(t, a.Err, ErrUnknownIdentity)
}

func TestInspect_Delete(t *testing.T) {
	t.Parallel()

	engine, base := newMemEngine(t, "/srv/app")

	a, err := engine.Inspect(DesiredState{Path: "/srv/app"}, ActionDelete)
	require.NoError(t, err)
	require.Equal(t, StatusDrifted, a.Status)
	require.Equal(t, []string{"delete directory /srv/app"}, a.Pending)
	require.Equal(t, []string{"absent /srv/app"}, a.DesiredLines)
	require.Equal(t, []string{"directory /srv/app"}, a.ObservedLines)

	require.NoError(t, base.Remove("/srv/app"))

	a, err = engine.Inspect(DesiredState{Path: "/srv/app"}, ActionDelete)
	require.NoError(t, err)
	require.Equal(t, StatusSatisfied, a.Status)
}

// halfwayFs creates only the first missing level in MkdirAll, then fails.
type halfwayFs struct {
	afero.Fs
}

func (f halfwayFs) MkdirAll(path string, perm os.FileMode) error {
	current := "/"
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		current = filepath.Join(current, part)
		if _, err := f.Fs.Stat(current); errors.Is(err, os.ErrNotExist) {
			if err := f.Fs.Mkdir(current, perm); err != nil {
				return err
			}
			return &os.PathError{Op: "mkdir", Path: path, Err: syscall.ENOSPC}
		}
	}
	return nil
}

func TestEnsurePresent_PartialRecursiveCreateIsRecorded(t *testing.T) {
	t.Parallel()

	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("/srv", 0o755))
	engine := NewEngine(fsys.New(halfwayFs{Fs: base}), WithIdentityResolver(testIdentities()))

	res, err := engine.EnsurePresent(DesiredState{Path: "/srv/a/b/c", Recursive: true})

	require.ErrorIs(t, err, ErrMutationFailure)
	require.ErrorIs(t, err, syscall.ENOSPC)
	require.True(t, res.Changed)
	require.Equal(t, []string{"create directory /srv/a"}, res.Actions)

	exists, err := afero.DirExists(base, "/srv/a/b")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestEnsureAbsent_UnwritableTargetStays(t *testing.T) {
	t.Parallel()

	engine, base := newMemEngine(t, "/srv")
	require.NoError(t, base.Mkdir("/srv/app", 0o555))

	res, err := engine.EnsureAbsent(DesiredState{Path: "/srv/app"})

	require.ErrorIs(t, err, ErrInsufficientPermissions)
	require.False(t, res.Changed)

	exists, err := afero.DirExists(base, "/srv/app")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestInspectPlanned_ParentCreatedEarlier(t *testing.T) {
	t.Parallel()

	engine, base := newMemEngine(t, "/srv")
	planned := func(path string) bool { return path == "/srv/a" }

	a, err := engine.Inspect(DesiredState{Path: "/srv/a/b"}, ActionCreate)
	require.NoError(t, err)
	require.Equal(t, StatusBlocked, a.Status)
	require.ErrorIs(t, a.Err, ErrEnclosingDirectoryDoesNotExist)
	require.Empty(t, a.Creates)

	a, err = engine.InspectPlanned(DesiredState{Path: "/srv/a/b"}.WithMode(0o700), ActionCreate, planned)
	require.NoError(t, err)
	require.Equal(t, StatusMissing, a.Status)
	require.Equal(t, []string{"/srv/a/b"}, a.Creates)
	require.Equal(t, []string{
		"create directory /srv/a/b",
		"set mode of /srv/a/b to 0700",
	}, a.Pending)

	a, err = engine.InspectPlanned(DesiredState{Path: "/srv/a/b/c/d", Recursive: true}, ActionCreate, planned)
	require.NoError(t, err)
	require.Equal(t, StatusMissing, a.Status)
	require.Equal(t, []string{"/srv/a/b", "/srv/a/b/c", "/srv/a/b/c/d"}, a.Creates)

	exists, err := afero.DirExists(base, "/srv/a")
	require.NoError(t, err)
	require.False(t, exists)
}
