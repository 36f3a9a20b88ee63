package vfs_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FireNX70/sampler-file-manager-sub000/vfs"
	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// fakeDriver is a minimal in-memory vfs.Driver double, just enough to drive
// Dispatch's mount/resolve/copy/rename logic without a real on-disk format.
type fakeDriver struct {
	mu    sync.Mutex
	name  string
	dirs  map[string]bool
	files map[string][]byte
	open  int
}

func newFakeDriver(name string) *fakeDriver {
	return &fakeDriver{name: name, dirs: map[string]bool{"/": true}, files: map[string][]byte{}}
}

func (f *fakeDriver) Lock()   { f.mu.Lock() }
func (f *fakeDriver) Unlock() { f.mu.Unlock() }

func clean(p string) string {
	p = "/" + strings.Trim(p, "/")
	return p
}

func (f *fakeDriver) List(path string, getDir bool) ([]vfs.Dentry, vfserrors.Code) {
	path = clean(path)
	if f.dirs[path] && !getDir {
		var out []vfs.Dentry
		prefix := path
		if prefix != "/" {
			prefix += "/"
		} else {
			prefix = "/"
		}
		for name := range f.dirs {
			if name != path && strings.HasPrefix(name, prefix) && !strings.Contains(strings.TrimPrefix(name, prefix), "/") {
				out = append(out, vfs.Dentry{Name: strings.TrimPrefix(name, prefix), IsDir: true})
			}
		}
		for name, data := range f.files {
			if strings.HasPrefix(name, prefix) && !strings.Contains(strings.TrimPrefix(name, prefix), "/") {
				out = append(out, vfs.Dentry{Name: strings.TrimPrefix(name, prefix), Size: uint64(len(data))})
			}
		}
		return out, 0
	}
	if f.dirs[path] && getDir {
		return []vfs.Dentry{{Name: path, IsDir: true}}, 0
	}
	if data, ok := f.files[path]; ok {
		return []vfs.Dentry{{Name: path, Size: uint64(len(data))}}, 0
	}
	return nil, vfserrors.NotFound
}

func (f *fakeDriver) Mkdir(path string) vfserrors.Code {
	path = clean(path)
	if f.dirs[path] {
		return vfserrors.AlreadyExists
	}
	f.dirs[path] = true
	return 0
}

func (f *fakeDriver) Ftruncate(path string, newSize uint64) vfserrors.Code {
	path = clean(path)
	data := f.files[path]
	if uint64(len(data)) > newSize {
		data = data[:newSize]
	} else {
		data = append(data, make([]byte, newSize-uint64(len(data)))...)
	}
	f.files[path] = data
	return 0
}

func (f *fakeDriver) Rename(curPath, newPath string) vfserrors.Code {
	curPath, newPath = clean(curPath), clean(newPath)
	if data, ok := f.files[curPath]; ok {
		f.files[newPath] = data
		delete(f.files, curPath)
		return 0
	}
	return vfserrors.NotFound
}

func (f *fakeDriver) Remove(path string) vfserrors.Code {
	path = clean(path)
	if _, ok := f.files[path]; ok {
		delete(f.files, path)
		return 0
	}
	if f.dirs[path] {
		delete(f.dirs, path)
		return 0
	}
	return vfserrors.NotFound
}

func (f *fakeDriver) Fopen(path string) (*vfs.Stream, vfserrors.Code) {
	path = clean(path)
	if _, ok := f.files[path]; !ok {
		f.files[path] = nil
	}
	f.open++
	return vfs.NewStream(&fakeHandle{driver: f, path: path}), 0
}

func (f *fakeDriver) Fsck() (uint32, error) { return 0, nil }
func (f *fakeDriver) OpenFileCount() int    { return f.open }

type fakeHandle struct {
	driver *fakeDriver
	path   string
}

func (h *fakeHandle) ReadAt(pos int64, p []byte) (int, vfserrors.Code) {
	data := h.driver.files[h.path]
	if pos >= int64(len(data)) {
		return 0, vfserrors.EndOfFile
	}
	n := copy(p, data[pos:])
	return n, 0
}

func (h *fakeHandle) WriteAt(pos int64, p []byte) (int, vfserrors.Code) {
	data := h.driver.files[h.path]
	end := pos + int64(len(p))
	if int64(len(data)) < end {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	copy(data[pos:], p)
	h.driver.files[h.path] = data
	return len(p), 0
}

func (h *fakeHandle) Flush() vfserrors.Code { return 0 }
func (h *fakeHandle) Close() vfserrors.Code {
	h.driver.open--
	return 0
}

func TestMountAndLsmount(t *testing.T) {
	host := newFakeDriver("host")
	d := vfs.New(host, nil)

	img := newFakeDriver("image")
	code := d.Mount("/mnt/image", func() (vfs.Driver, vfserrors.Code) { return img, 0 })
	require.True(t, code.Ok())

	assert.Equal(t, []string{"/mnt/image"}, d.Lsmount())

	// Mounting the same path again fails.
	code = d.Mount("/mnt/image", func() (vfs.Driver, vfserrors.Code) { return img, 0 })
	assert.Equal(t, vfserrors.AlreadyOpen, code)
}

func TestMountTriesOpenersInOrder(t *testing.T) {
	host := newFakeDriver("host")
	d := vfs.New(host, nil)

	img := newFakeDriver("image")
	code := d.Mount("/mnt/a",
		func() (vfs.Driver, vfserrors.Code) { return nil, vfserrors.WrongFS },
		func() (vfs.Driver, vfserrors.Code) { return nil, vfserrors.DiskTooSmall },
		func() (vfs.Driver, vfserrors.Code) { return img, 0 },
	)
	require.True(t, code.Ok())
	assert.Contains(t, d.Lsmount(), "/mnt/a")
}

func TestMountStopsOnNonRetryableError(t *testing.T) {
	host := newFakeDriver("host")
	d := vfs.New(host, nil)

	code := d.Mount("/mnt/a",
		func() (vfs.Driver, vfserrors.Code) { return nil, vfserrors.IOError },
		func() (vfs.Driver, vfserrors.Code) { return newFakeDriver("never"), 0 },
	)
	assert.Equal(t, vfserrors.IOError, code)
	assert.Empty(t, d.Lsmount())
}

func TestListDispatchesToMountedDriver(t *testing.T) {
	host := newFakeDriver("host")
	d := vfs.New(host, nil)

	img := newFakeDriver("image")
	img.dirs["/SOUNDS"] = true
	require.True(t, d.Mount("/mnt/image", func() (vfs.Driver, vfserrors.Code) { return img, 0 }).Ok())

	entries, code := d.List("/mnt/image", false)
	require.True(t, code.Ok())
	require.Len(t, entries, 1)
	assert.Equal(t, "SOUNDS", entries[0].Name)
}

func TestUmountFailsWhileBusy(t *testing.T) {
	host := newFakeDriver("host")
	d := vfs.New(host, nil)

	img := newFakeDriver("image")
	require.True(t, d.Mount("/mnt/image", func() (vfs.Driver, vfserrors.Code) { return img, 0 }).Ok())

	stream, code := d.Fopen("/mnt/image/song")
	require.True(t, code.Ok())

	assert.Equal(t, vfserrors.FSBusy, d.Umount("/mnt/image"))

	assert.Zero(t, stream.Close())
	assert.True(t, d.Umount("/mnt/image").Ok())
}

func TestCrossDriverRenameCopiesAndRemoves(t *testing.T) {
	host := newFakeDriver("host")
	d := vfs.New(host, nil)

	a := newFakeDriver("a")
	b := newFakeDriver("b")
	require.True(t, d.Mount("/mnt/a", func() (vfs.Driver, vfserrors.Code) { return a, 0 }).Ok())
	require.True(t, d.Mount("/mnt/b", func() (vfs.Driver, vfserrors.Code) { return b, 0 }).Ok())

	a.files["/song"] = []byte("hello world")

	code := d.Rename("/mnt/a/song", "/mnt/b/song")
	require.True(t, code.Ok())

	_, code = d.List("/mnt/a/song", false)
	assert.Equal(t, vfserrors.NotFound, code)

	entries, code := d.List("/mnt/b/song", false)
	require.True(t, code.Ok())
	assert.Equal(t, uint64(len("hello world")), entries[0].Size)
}

func TestSameDriverRenameDispatchesDirectly(t *testing.T) {
	host := newFakeDriver("host")
	d := vfs.New(host, nil)

	img := newFakeDriver("image")
	img.files["/song"] = []byte("data")
	require.True(t, d.Mount("/mnt/image", func() (vfs.Driver, vfserrors.Code) { return img, 0 }).Ok())

	require.True(t, d.Rename("/mnt/image/song", "/mnt/image/song2").Ok())
	_, code := d.List("/mnt/image/song", false)
	assert.Equal(t, vfserrors.NotFound, code)
}

func TestCopyDirectoryTree(t *testing.T) {
	host := newFakeDriver("host")
	d := vfs.New(host, nil)

	a := newFakeDriver("a")
	b := newFakeDriver("b")
	require.True(t, d.Mount("/mnt/a", func() (vfs.Driver, vfserrors.Code) { return a, 0 }).Ok())
	require.True(t, d.Mount("/mnt/b", func() (vfs.Driver, vfserrors.Code) { return b, 0 }).Ok())

	a.dirs["/SOUNDS"] = true
	a.files["/SOUNDS/one"] = []byte("1")
	a.files["/SOUNDS/two"] = []byte("22")

	code := d.Copy("/mnt/a/SOUNDS", "/mnt/b/SOUNDS")
	require.True(t, code.Ok())

	entries, code := d.List("/mnt/b/SOUNDS", false)
	require.True(t, code.Ok())
	assert.Len(t, entries, 2)
}

func TestNoMountFallsBackToHost(t *testing.T) {
	host := newFakeDriver("host")
	host.dirs["/tmp"] = true
	d := vfs.New(host, nil)

	entries, code := d.List("/tmp", true)
	require.True(t, code.Ok())
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsDir)
}
