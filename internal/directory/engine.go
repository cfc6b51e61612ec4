package directory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexisbeaulieu97/dirstate/internal/fsys"
)

// DefaultCreateMode is the permission set requested when creating
// directories whose mode is unmanaged, and for intermediate directories of
// a recursive create. The process umask still applies.
const DefaultCreateMode os.FileMode = 0o755

// Engine converges directory declarations. The zero value is not usable;
// construct one with NewEngine.
type Engine struct {
	fs         fsys.FS
	prober     *Prober
	identities IdentityResolver
}

// Option customises an Engine.
type Option func(*Engine)

// WithIdentityResolver replaces the host user database used to resolve
// symbolic owners and groups.
func WithIdentityResolver(resolver IdentityResolver) Option {
	return func(e *Engine) {
		if resolver != nil {
			e.identities = resolver
		}
	}
}

// NewEngine returns an Engine operating on filesystem.
func NewEngine(filesystem fsys.FS, opts ...Option) *Engine {
	e := &Engine{
		fs:         filesystem,
		prober:     NewProber(filesystem),
		identities: SystemIdentities{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Converge drives path to the state action asks for.
func (e *Engine) Converge(desired DesiredState, action Action) (Result, error) {
	switch action {
	case ActionCreate:
		return e.EnsurePresent(desired)
	case ActionDelete:
		return e.EnsureAbsent(desired)
	default:
		return Result{}, fmt.Errorf("unknown directory action %q", action)
	}
}

// EnsurePresent makes sure desired.Path is a directory with the declared
// attributes. When the directory is missing every check on its ancestors
// runs before anything is created; a failed check leaves the filesystem
// untouched.
func (e *Engine) EnsurePresent(desired DesiredState) (Result, error) {
	var res Result

	desired, err := desired.normalize()
	if err != nil {
		return res, err
	}

	current, err := e.prober.Probe(desired.Path)
	if err != nil {
		return res, err
	}

	if current.Exists && !current.IsDirectory {
		return res, newPathError("create", desired.Path, ErrEnclosingPathIsFile, nil)
	}

	if !current.Exists {
		plan, err := e.checkEnclosing(desired, nil)
		if err != nil {
			return res, err
		}
		if err := e.create(desired, plan, &res); err != nil {
			return res, err
		}
	}

	err = e.reconcile(desired, &res)
	return res, err
}

func (e *Engine) create(desired DesiredState, plan enclosingPlan, res *Result) error {
	if desired.Recursive {
		if err := e.fs.MkdirAll(desired.Path, DefaultCreateMode); err != nil {
			e.recordCreated(append(plan.missing, desired.Path), res)
			return newPathError("mkdir", desired.Path, ErrMutationFailure, err)
		}
		for _, ancestor := range plan.missing {
			res.record("create directory %s", ancestor)
		}
		res.record("create directory %s", desired.Path)
		return nil
	}

	perm := DefaultCreateMode
	if desired.Mode != nil {
		perm = desired.Mode.Perm()
	}
	if err := e.fs.Mkdir(desired.Path, perm); err != nil {
		return newPathError("mkdir", desired.Path, ErrMutationFailure, err)
	}
	res.record("create directory %s", desired.Path)
	return nil
}

// recordCreated records the directories in dirs that exist now. A failed
// MkdirAll may have created part of the chain before giving up.
func (e *Engine) recordCreated(dirs []string, res *Result) {
	for _, dir := range dirs {
		observed, err := e.prober.Probe(dir)
		if err != nil || !observed.Exists {
			return
		}
		res.record("create directory %s", dir)
	}
}

// EnsureAbsent removes desired.Path if it is an (empty) directory. An absent
// path is a no-op. A path occupied by anything other than a directory is
// refused without calling remove.
func (e *Engine) EnsureAbsent(desired DesiredState) (Result, error) {
	var res Result

	desired, err := desired.normalize()
	if err != nil {
		return res, err
	}

	current, err := e.prober.Probe(desired.Path)
	if err != nil {
		return res, err
	}
	if !current.Exists {
		return res, nil
	}
	if !current.IsDirectory {
		return res, newPathError("delete", desired.Path, ErrTargetIsNotADirectory, nil)
	}

	if err := e.checkRemovable(desired.Path); err != nil {
		return res, err
	}

	if err := e.fs.Remove(desired.Path); err != nil {
		return res, newPathError("remove", desired.Path, ErrMutationFailure, err)
	}
	res.record("delete directory %s", desired.Path)
	return res, nil
}

// checkRemovable requires write access to the directory itself and to the
// directory containing it, which is where the entry is unlinked.
func (e *Engine) checkRemovable(path string) error {
	candidates := []string{path}
	if parent := filepath.Dir(path); parent != path {
		candidates = append(candidates, parent)
	}

	for _, candidate := range candidates {
		writable, err := e.prober.writable("delete", candidate)
		if err != nil {
			return err
		}
		if !writable {
			return newPathError("delete", path, ErrInsufficientPermissions, &parentError{parent: candidate})
		}
	}
	return nil
}
