package fsys

import (
	"os"

	"github.com/spf13/afero"
)

type aferoFS struct {
	base   afero.Fs
	native bool
}

var _ FS = (*aferoFS)(nil)

func (f *aferoFS) Stat(path string) (os.FileInfo, error) {
	return f.base.Stat(path)
}

func (f *aferoFS) Ownership(info os.FileInfo) (int, int, bool) {
	if info == nil {
		return 0, 0, false
	}
	return statOwnership(info)
}

// Writable asks the kernel when running against the host filesystem so that
// ownership, supplementary groups and read-only mounts are all honoured.
// Other backends only know the mode, so the owner write bit decides.
func (f *aferoFS) Writable(path string) (bool, error) {
	if f.native {
		return accessWritable(path)
	}

	info, err := f.base.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Mode().Perm()&0o200 != 0, nil
}

func (f *aferoFS) Mkdir(path string, perm os.FileMode) error {
	return f.base.Mkdir(path, perm)
}

func (f *aferoFS) MkdirAll(path string, perm os.FileMode) error {
	return f.base.MkdirAll(path, perm)
}

func (f *aferoFS) Remove(path string) error {
	return f.base.Remove(path)
}

func (f *aferoFS) Chown(path string, uid, gid int) error {
	return f.base.Chown(path, uid, gid)
}

func (f *aferoFS) Chmod(path string, mode os.FileMode) error {
	return f.base.Chmod(path, mode)
}
