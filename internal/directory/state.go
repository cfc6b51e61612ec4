// Package directory converges a single directory declaration against the
// filesystem.
//
// A [Prober] reads the current state of a path into an [ObservedState]. An
// [Engine] compares that snapshot with a [DesiredState] and performs the
// smallest set of filesystem operations that makes them match: creating
// the directory (and, when asked, its missing ancestors), removing it, and
// correcting owner, group and mode. Every operation reports whether
// anything changed, so running the same declaration twice is a no-op the
// second time.
//
// All filesystem access goes through [fsys.FS]. The engine keeps no state
// between calls and takes no locks; concurrent calls for different paths
// are independent. The probe-then-act sequence is not atomic with respect
// to other processes touching the same path.
package directory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Action selects which end state a declaration asks for.
type Action string

const (
	// ActionCreate ensures the directory is present.
	ActionCreate Action = "create"
	// ActionDelete ensures the directory is absent.
	ActionDelete Action = "delete"
)

// ParseAction converts a declaration value into an Action. The empty
// string selects ActionCreate.
func ParseAction(value string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(value))) {
	case "", ActionCreate:
		return ActionCreate, nil
	case ActionDelete:
		return ActionDelete, nil
	default:
		return "", fmt.Errorf("unknown directory action %q (expected create or delete)", value)
	}
}

// DesiredState is the declared configuration of one directory. Only Path is
// required; an empty Owner or Group and a nil Mode leave that attribute
// unmanaged.
type DesiredState struct {
	Path      string
	Owner     string
	Group     string
	Mode      *os.FileMode
	Recursive bool
}

// WithMode returns a copy of d managing the given mode.
func (d DesiredState) WithMode(mode os.FileMode) DesiredState {
	m := mode & modeMask
	d.Mode = &m
	return d
}

func (d DesiredState) normalize() (DesiredState, error) {
	if strings.TrimSpace(d.Path) == "" {
		return d, fmt.Errorf("directory path is required")
	}

	abs, err := filepath.Abs(d.Path)
	if err != nil {
		return d, fmt.Errorf("resolve directory path %q: %w", d.Path, err)
	}

	out := d
	out.Path = abs
	out.Owner = strings.TrimSpace(d.Owner)
	out.Group = strings.TrimSpace(d.Group)
	if d.Mode != nil {
		m := *d.Mode & modeMask
		out.Mode = &m
	}
	return out, nil
}

// ObservedState is a point-in-time snapshot of a path. UID and GID are only
// meaningful when OwnershipKnown is true; Mode holds permission bits plus
// setuid, setgid and sticky, never file type bits.
type ObservedState struct {
	Path           string
	Exists         bool
	IsDirectory    bool
	UID            int
	GID            int
	OwnershipKnown bool
	Mode           os.FileMode
}

// Result reports the outcome of a convergence call. Actions lists each
// mutation performed, in order. When a call returns an error, Changed and
// Actions cover only what completed before the failure.
type Result struct {
	Changed bool
	Actions []string
}

func (r *Result) record(format string, args ...any) {
	r.Changed = true
	r.Actions = append(r.Actions, fmt.Sprintf(format, args...))
}
