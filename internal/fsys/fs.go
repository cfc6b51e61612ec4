// Package fsys defines the filesystem call surface the convergence engine
// depends on.
//
// Production code uses [NewOS], which delegates to the host filesystem
// through afero. Tests use [New] with an in-memory afero filesystem, or the
// generated mock in the mocks subpackage when they need to assert which
// calls were (or were not) made.
package fsys

import (
	"os"

	"github.com/spf13/afero"
)

//go:generate mockgen -source=fs.go -destination=mocks/mock_fs.go -package=mock_fsys

// FS is the set of filesystem operations used to probe and converge a
// directory.
type FS interface {
	// Stat returns metadata for path, following symlinks.
	Stat(path string) (os.FileInfo, error)

	// Ownership extracts the numeric owner and group from info. ok is false
	// when the backing filesystem does not expose ownership.
	Ownership(info os.FileInfo) (uid, gid int, ok bool)

	// Writable reports whether the current process may write to path.
	Writable(path string) (bool, error)

	// Mkdir creates a single directory. The parent must exist.
	Mkdir(path string, perm os.FileMode) error

	// MkdirAll creates path and every missing ancestor.
	MkdirAll(path string, perm os.FileMode) error

	// Remove deletes an empty directory or a file.
	Remove(path string) error

	// Chown sets numeric ownership. A value of -1 leaves that id unchanged.
	Chown(path string, uid, gid int) error

	// Chmod sets the permission bits of path.
	Chmod(path string, mode os.FileMode) error
}

// NewOS returns an FS backed by the host operating system.
func NewOS() FS {
	return New(afero.NewOsFs())
}

// New returns an FS backed by the given afero filesystem.
func New(base afero.Fs) FS {
	_, native := base.(*afero.OsFs)
	return &aferoFS{base: base, native: native}
}
