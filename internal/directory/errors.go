package directory

import (
	"errors"
	"fmt"
)

// Failure kinds. Every filesystem or precondition error returned by the
// prober and the engine matches exactly one of these with errors.Is; the
// underlying OS error, when there is one, matches as well. Declaration
// errors (empty or unresolvable path, unknown action) carry no kind, so
// KindOf returns nil for them.
var (
	// ErrEnclosingDirectoryDoesNotExist: the parent is missing and the
	// declaration is not recursive.
	ErrEnclosingDirectoryDoesNotExist = errors.New("enclosing directory does not exist")
	// ErrEnclosingDirectoryNotWritable: the nearest existing ancestor cannot
	// be written, so nothing below it can be created.
	ErrEnclosingDirectoryNotWritable = errors.New("enclosing directory is not writable")
	// ErrEnclosingPathIsFile: the target or an ancestor that must be a
	// directory is something else.
	ErrEnclosingPathIsFile = errors.New("path component is not a directory")
	// ErrTargetIsNotADirectory: delete was requested on a non-directory.
	ErrTargetIsNotADirectory = errors.New("target is not a directory")
	// ErrInsufficientPermissions: delete is blocked by missing write access.
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	// ErrProbeFailure: reading metadata failed for a reason other than the
	// path not existing.
	ErrProbeFailure = errors.New("probe failed")
	// ErrMutationFailure: a create, remove, chown or chmod call failed.
	ErrMutationFailure = errors.New("filesystem mutation failed")
	// ErrUnknownIdentity: a symbolic owner or group could not be resolved.
	ErrUnknownIdentity = errors.New("unknown owner or group")
)

var kinds = []error{
	ErrEnclosingDirectoryDoesNotExist,
	ErrEnclosingDirectoryNotWritable,
	ErrEnclosingPathIsFile,
	ErrTargetIsNotADirectory,
	ErrInsufficientPermissions,
	ErrProbeFailure,
	ErrMutationFailure,
	ErrUnknownIdentity,
}

// PathError records the operation, the path it concerned, the failure kind
// and the underlying cause.
type PathError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func newPathError(op, path string, kind, err error) *PathError {
	return &PathError{Op: op, Path: path, Kind: kind, Err: err}
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *PathError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the failure kind carried by err, or nil when err did not
// come from this package.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsPrecondition reports whether err is one of the checks that run before
// any mutation: an unsafe or impossible starting state rather than an I/O
// failure.
func IsPrecondition(err error) bool {
	switch KindOf(err) {
	case ErrEnclosingDirectoryDoesNotExist,
		ErrEnclosingDirectoryNotWritable,
		ErrEnclosingPathIsFile,
		ErrTargetIsNotADirectory,
		ErrInsufficientPermissions,
		ErrUnknownIdentity:
		return true
	default:
		return false
	}
}
