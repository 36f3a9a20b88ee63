// Package vfs implements the mount/dispatch layer: a process-wide registry
// mapping absolute canonical host paths to mounted driver instances, path
// resolution that splits a user path into (driver, residual), cross-driver
// copy/rename, and the position-carrying Stream handle every driver hands
// back from Fopen.
package vfs

import (
	"time"

	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// Dentry is a directory-entry view returned by List: name, size, type and
// modification time. Drivers that don't track timestamps (nothing in this
// module's Non-goals requires access-time updates) leave ModTime zero.
type Dentry struct {
	Name    string
	Size    uint64
	IsDir   bool
	ModTime time.Time
}

// Driver is the trait every mounted file system implements: the EMU3 driver,
// the host driver, and (out of scope here) the S7XX/S5XX drivers. The
// dispatch layer acquires Lock/Unlock around every call except the I/O done
// through a Stream returned by Fopen, which locks internally so long
// transfers don't starve other mounts' latency.
type Driver interface {
	List(path string, getDir bool) ([]Dentry, vfserrors.Code)
	Mkdir(path string) vfserrors.Code
	Ftruncate(path string, newSize uint64) vfserrors.Code
	Rename(curPath, newPath string) vfserrors.Code
	Remove(path string) vfserrors.Code
	Fopen(path string) (*Stream, vfserrors.Code)

	// Fsck validates and repairs on-disk metadata, returning a bitmask of
	// repairs performed (0 = clean). Drivers without a meaningful fsck (the
	// host driver) may always return 0.
	Fsck() (uint32, error)

	// OpenFileCount reports how many handles are currently outstanding, so
	// the dispatch layer can refuse Umount with FS_BUSY.
	OpenFileCount() int

	Lock()
	Unlock()
}
