package directory

import (
	"errors"
	"io/fs"
	"syscall"

	"github.com/alexisbeaulieu97/dirstate/internal/fsys"
)

// Prober reads the current state of paths. It never mutates anything.
type Prober struct {
	fs fsys.FS
}

// NewProber returns a Prober reading through filesystem.
func NewProber(filesystem fsys.FS) *Prober {
	return &Prober{fs: filesystem}
}

// Probe returns a fresh snapshot of path. A path that does not exist, or
// whose ancestor is not a directory, yields Exists=false and no error.
// Other metadata failures are reported as ErrProbeFailure.
func (p *Prober) Probe(path string) (ObservedState, error) {
	observed := ObservedState{Path: path}

	info, err := p.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return observed, nil
		}
		return observed, newPathError("stat", path, ErrProbeFailure, err)
	}

	observed.Exists = true
	observed.IsDirectory = info.IsDir()
	observed.Mode = info.Mode() & modeMask
	observed.UID, observed.GID, observed.OwnershipKnown = p.fs.Ownership(info)
	return observed, nil
}

func (p *Prober) writable(op, path string) (bool, error) {
	ok, err := p.fs.Writable(path)
	if err != nil {
		return false, newPathError(op, path, ErrProbeFailure, err)
	}
	return ok, nil
}
