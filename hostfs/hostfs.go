// Package hostfs implements the host driver: a thin wrapper over the host
// file system that exposes the same vfs.Driver trait as a managed image
// driver, so the dispatch layer can treat "no mount matched" and "mounted
// EMU3 image" identically.
package hostfs

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/FireNX70/sampler-file-manager-sub000/vfs"
	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// MountOptions configures a Driver. There's no on-disk format to probe, so
// unlike emu3.MountOptions this only carries ambient-stack knobs.
type MountOptions struct {
	ReadOnly bool
	Logger   *slog.Logger
}

// Driver is the host driver. Its open-file table maps absolute host paths to
// a refcount; each handle records its back-pointer so Close can shrink both,
// mirroring spec §4.E.
type Driver struct {
	mu        sync.Mutex
	readOnly  bool
	log       *slog.Logger
	openFiles map[string]int
}

// New builds a host driver. Since the host file system always exists, there
// is no probe step analogous to emu3.Mount.
func New(opts MountOptions) *Driver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		readOnly:  opts.ReadOnly,
		log:       logger,
		openFiles: make(map[string]int),
	}
}

func translateOSError(err error) vfserrors.Code {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, fs.ErrNotExist):
		return vfserrors.NotFound
	case errors.Is(err, fs.ErrPermission):
		return vfserrors.NoPerm
	case errors.Is(err, fs.ErrExist):
		return vfserrors.AlreadyExists
	default:
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return vfserrors.IOError
		}
		return vfserrors.UnknownError
	}
}

func (d *Driver) Lock()   { d.mu.Lock() }
func (d *Driver) Unlock() { d.mu.Unlock() }

func (d *Driver) OpenFileCount() int {
	total := 0
	for _, refs := range d.openFiles {
		total += refs
	}
	return total
}

func (d *Driver) List(path string, getDir bool) ([]vfs.Dentry, vfserrors.Code) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, translateOSError(err)
	}

	if getDir || !info.IsDir() {
		return []vfs.Dentry{dentryFromInfo(info)}, 0
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, translateOSError(err)
	}

	out := make([]vfs.Dentry, 0, len(entries))
	for _, entry := range entries {
		childInfo, err := entry.Info()
		if err != nil {
			d.log.Error("host list: stat failed", "path", filepath.Join(path, entry.Name()), "err", err)
			continue
		}
		out = append(out, dentryFromInfo(childInfo))
	}
	return out, 0
}

func dentryFromInfo(info fs.FileInfo) vfs.Dentry {
	return vfs.Dentry{
		Name:    info.Name(),
		Size:    uint64(info.Size()),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
	}
}

func (d *Driver) Mkdir(path string) vfserrors.Code {
	if d.readOnly {
		return vfserrors.UnsupportedOperation
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		return translateOSError(err)
	}
	return 0
}

func (d *Driver) Ftruncate(path string, newSize uint64) vfserrors.Code {
	if d.readOnly {
		return vfserrors.UnsupportedOperation
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return translateOSError(err)
	}
	defer f.Close()
	if err := f.Truncate(int64(newSize)); err != nil {
		return translateOSError(err)
	}
	return 0
}

func (d *Driver) Rename(curPath, newPath string) vfserrors.Code {
	if d.readOnly {
		return vfserrors.UnsupportedOperation
	}
	if err := os.Rename(curPath, newPath); err != nil {
		return translateOSError(err)
	}
	return 0
}

func (d *Driver) Remove(path string) vfserrors.Code {
	if d.readOnly {
		return vfserrors.UnsupportedOperation
	}
	info, err := os.Stat(path)
	if err != nil {
		return translateOSError(err)
	}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return translateOSError(err)
		}
		if len(entries) > 0 {
			return vfserrors.NotEmpty
		}
	}
	if err := os.Remove(path); err != nil {
		return translateOSError(err)
	}
	return 0
}

func (d *Driver) Fopen(path string) (*vfs.Stream, vfserrors.Code) {
	flags := os.O_RDWR | os.O_CREATE
	if d.readOnly {
		flags = os.O_RDONLY
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, translateOSError(err)
	}

	d.openFiles[path]++
	handle := &fileHandle{driver: d, path: path, file: f}
	return vfs.NewStream(handle), 0
}

// Fsck is a no-op for the host driver: there's no custom on-disk metadata
// for this driver to validate beyond what the host OS already guarantees.
func (d *Driver) Fsck() (uint32, error) {
	return 0, nil
}

// fileHandle implements vfs.FileHandle over an *os.File, recording its
// back-pointer into the driver's open-file table so Close can shrink both.
type fileHandle struct {
	driver *Driver
	path   string
	file   *os.File
}

func (h *fileHandle) ReadAt(pos int64, p []byte) (int, vfserrors.Code) {
	n, err := h.file.ReadAt(p, pos)
	if err != nil {
		if errors.Is(err, io.EOF) {
			if n > 0 {
				return n, 0
			}
			return n, vfserrors.EndOfFile
		}
		return n, translateOSError(err)
	}
	return n, 0
}

func (h *fileHandle) WriteAt(pos int64, p []byte) (int, vfserrors.Code) {
	n, err := h.file.WriteAt(p, pos)
	if err != nil {
		return n, translateOSError(err)
	}
	return n, 0
}

func (h *fileHandle) Flush() vfserrors.Code {
	if err := h.file.Sync(); err != nil {
		return translateOSError(err)
	}
	return 0
}

func (h *fileHandle) Close() vfserrors.Code {
	err := h.file.Close()

	h.driver.mu.Lock()
	h.driver.openFiles[h.path]--
	if h.driver.openFiles[h.path] <= 0 {
		delete(h.driver.openFiles, h.path)
	}
	h.driver.mu.Unlock()

	if err != nil {
		return translateOSError(err)
	}
	return 0
}

