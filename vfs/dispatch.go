package vfs

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
	"github.com/hashicorp/go-multierror"
)

// Opener attempts to mount a single candidate driver and returns it on
// success. Dispatch.Mount tries a list of these in order, exactly as spec
// §4.F describes: "Mount attempts each installed driver in order until one
// returns success or something other than WRONG_FS/DISK_TOO_SMALL."
type Opener func() (Driver, vfserrors.Code)

// Dispatch is the process-wide mount table: a mapping from absolute
// canonical host paths to mounted driver instances, plus the host driver
// that handles any path with no matching mount prefix.
type Dispatch struct {
	mu     sync.RWMutex
	mounts map[string]Driver
	order  []string
	host   Driver
	log    *slog.Logger
}

// New builds a Dispatch whose unmatched paths fall through to host.
func New(host Driver, logger *slog.Logger) *Dispatch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatch{
		mounts: make(map[string]Driver),
		host:   host,
		log:    logger,
	}
}

func canonicalize(p string) string {
	p = filepath.ToSlash(p)
	if !path.IsAbs(p) {
		if abs, err := filepath.Abs(p); err == nil {
			p = filepath.ToSlash(abs)
		}
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = filepath.ToSlash(resolved)
	}
	p = path.Clean(p)
	if p == "." {
		p = "/"
	}
	return p
}

// Mount tries each opener in turn, installing the first that mounts
// successfully at mountPoint. Mounting an already-mounted path is rejected.
func (d *Dispatch) Mount(mountPoint string, openers ...Opener) vfserrors.Code {
	mountPoint = canonicalize(mountPoint)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.mounts[mountPoint]; exists {
		return vfserrors.AlreadyOpen
	}

	var last vfserrors.Code
	for _, open := range openers {
		driver, err := open()
		if err.Ok() {
			d.mounts[mountPoint] = driver
			d.order = append(d.order, mountPoint)
			d.log.Info("mounted filesystem", "path", mountPoint)
			return 0
		}
		last = err
		if err != vfserrors.WrongFS && err != vfserrors.DiskTooSmall {
			return err
		}
	}
	if last == 0 {
		last = vfserrors.WrongFS
	}
	return last
}

// Umount removes mountPoint from the table, failing FSBusy while the driver
// reports open files.
func (d *Dispatch) Umount(mountPoint string) vfserrors.Code {
	mountPoint = canonicalize(mountPoint)

	d.mu.Lock()
	defer d.mu.Unlock()

	driver, ok := d.mounts[mountPoint]
	if !ok {
		return vfserrors.NotFound
	}

	driver.Lock()
	busy := driver.OpenFileCount() > 0
	driver.Unlock()
	if busy {
		return vfserrors.FSBusy
	}

	delete(d.mounts, mountPoint)
	for i, p := range d.order {
		if p == mountPoint {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.log.Info("unmounted filesystem", "path", mountPoint)
	return 0
}

// Lsmount returns the mount points in mount order.
func (d *Dispatch) Lsmount() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// findFS walks path from root toward leaf, returning the first prefix that
// matches a mount-table entry and the residual path below it. A nil Driver
// means no mount matched and the caller should fall back to the host driver.
func (d *Dispatch) findFS(canonPath string) (Driver, string) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	trimmed := strings.Trim(canonPath, "/")
	var comps []string
	if trimmed != "" {
		comps = strings.Split(trimmed, "/")
	}

	for i := 0; i <= len(comps); i++ {
		prefix := "/" + strings.Join(comps[:i], "/")
		if driver, ok := d.mounts[prefix]; ok {
			residual := "/" + strings.Join(comps[i:], "/")
			return driver, residual
		}
	}
	return nil, canonPath
}

// resolve canonicalizes path and maps it to (driver, residual), substituting
// the host driver when no mount prefix matches.
func (d *Dispatch) resolve(userPath string) (Driver, string) {
	canon := canonicalize(userPath)
	driver, residual := d.findFS(canon)
	if driver == nil {
		return d.host, residual
	}
	return driver, residual
}

func (d *Dispatch) List(userPath string, getDir bool) ([]Dentry, vfserrors.Code) {
	driver, residual := d.resolve(userPath)
	driver.Lock()
	defer driver.Unlock()
	return driver.List(residual, getDir)
}

func (d *Dispatch) Mkdir(userPath string) vfserrors.Code {
	driver, residual := d.resolve(userPath)
	driver.Lock()
	defer driver.Unlock()
	return driver.Mkdir(residual)
}

func (d *Dispatch) Ftruncate(userPath string, newSize uint64) vfserrors.Code {
	driver, residual := d.resolve(userPath)
	driver.Lock()
	defer driver.Unlock()
	return driver.Ftruncate(residual, newSize)
}

func (d *Dispatch) Remove(userPath string) vfserrors.Code {
	driver, residual := d.resolve(userPath)
	driver.Lock()
	defer driver.Unlock()
	return driver.Remove(residual)
}

func (d *Dispatch) Fopen(userPath string) (*Stream, vfserrors.Code) {
	driver, residual := d.resolve(userPath)
	driver.Lock()
	defer driver.Unlock()
	return driver.Fopen(residual)
}

func (d *Dispatch) Fsck(mountPoint string) (uint32, error) {
	mountPoint = canonicalize(mountPoint)
	d.mu.RLock()
	driver, ok := d.mounts[mountPoint]
	d.mu.RUnlock()
	if !ok {
		return 0, vfserrors.NotFound
	}
	driver.Lock()
	defer driver.Unlock()
	repairs, err := driver.Fsck()
	if repairs != 0 {
		d.log.Warn("fsck performed repairs", "path", mountPoint, "repairs", repairs)
	}
	return repairs, err
}

// Rename dispatches directly to a single driver when both paths land on the
// same one; otherwise it's implemented as Copy followed by Remove on the
// source, skipping the remove if the copy failed (per spec §9's Design
// Notes on cross-driver rename).
func (d *Dispatch) Rename(curPath, newPath string) vfserrors.Code {
	srcDriver, srcResidual := d.resolve(curPath)
	dstDriver, dstResidual := d.resolve(newPath)

	if srcDriver == dstDriver {
		srcDriver.Lock()
		defer srcDriver.Unlock()
		return srcDriver.Rename(srcResidual, dstResidual)
	}

	if err := d.copyTree(srcDriver, srcResidual, dstDriver, dstResidual); err != 0 {
		return err
	}

	srcDriver.Lock()
	removeErr := srcDriver.Remove(srcResidual)
	srcDriver.Unlock()
	return removeErr
}

// Copy copies srcPath to dstPath, recursing into directories with a bounded
// explicit stack rather than the call stack.
func (d *Dispatch) Copy(srcPath, dstPath string) vfserrors.Code {
	srcDriver, srcResidual := d.resolve(srcPath)
	dstDriver, dstResidual := d.resolve(dstPath)
	return d.copyTree(srcDriver, srcResidual, dstDriver, dstResidual)
}

type copyTask struct {
	srcPath, dstPath string
	isDir            bool
}

func (d *Dispatch) copyTree(srcDriver Driver, srcPath string, dstDriver Driver, dstPath string) vfserrors.Code {
	srcDriver.Lock()
	rootEntries, listErr := srcDriver.List(srcPath, true)
	srcDriver.Unlock()
	if listErr != 0 {
		return listErr
	}
	if len(rootEntries) != 1 {
		return vfserrors.InvalidState
	}

	stack := []copyTask{{srcPath: srcPath, dstPath: dstPath, isDir: rootEntries[0].IsDir}}
	var errs *multierror.Error

	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if task.isDir {
			dstDriver.Lock()
			mkErr := dstDriver.Mkdir(task.dstPath)
			dstDriver.Unlock()
			if mkErr != 0 && mkErr != vfserrors.AlreadyExists {
				errs = multierror.Append(errs, fmt.Errorf("mkdir %s: %w", task.dstPath, mkErr))
				continue
			}

			srcDriver.Lock()
			children, listErr := srcDriver.List(task.srcPath, false)
			srcDriver.Unlock()
			if listErr != 0 {
				errs = multierror.Append(errs, fmt.Errorf("list %s: %w", task.srcPath, listErr))
				continue
			}
			for _, child := range children {
				stack = append(stack, copyTask{
					srcPath: path.Join(task.srcPath, child.Name),
					dstPath: path.Join(task.dstPath, child.Name),
					isDir:   child.IsDir,
				})
			}
			continue
		}

		if err := d.copyFile(srcDriver, task.srcPath, dstDriver, task.dstPath); err != 0 {
			errs = multierror.Append(errs, fmt.Errorf("copy %s: %w", task.srcPath, err))
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		d.log.Error("copy tree encountered errors", "src", srcPath, "dst", dstPath, "err", err)
		return vfserrors.IOError
	}
	return 0
}

func (d *Dispatch) copyFile(srcDriver Driver, srcPath string, dstDriver Driver, dstPath string) vfserrors.Code {
	srcDriver.Lock()
	srcStream, err := srcDriver.Fopen(srcPath)
	srcDriver.Unlock()
	if err != 0 {
		return err
	}
	defer srcStream.Close()

	dstDriver.Lock()
	dstStream, err := dstDriver.Fopen(dstPath)
	dstDriver.Unlock()
	if err != 0 {
		return err
	}
	defer dstStream.Close()

	buf := make([]byte, 64*1024)
	for {
		n, readErr := srcStream.Read(buf)
		if n > 0 {
			if _, writeErr := dstStream.Write(buf[:n]); writeErr != 0 {
				return writeErr
			}
		}
		if readErr == vfserrors.EndOfFile || n == 0 {
			return 0
		}
		if readErr != 0 {
			return readErr
		}
	}
}
