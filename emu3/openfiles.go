package emu3

import (
	"github.com/FireNX70/sampler-file-manager-sub000/vfs"
	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// Fopen implements spec §4.C's fopen(path): the create path is identical to
// ftruncate(path, 0), then the directory and file entries are inserted into
// (or have their refcount bumped in) the open-file table.
func (d *Driver) Fopen(path string) (*vfs.Stream, vfserrors.Code) {
	comps := splitPath(path)
	if len(comps) != 2 {
		return nil, vfserrors.InvalidPath
	}
	dirName, component := comps[0], comps[1]

	dirIndex, dirEntry, code := d.findDirByName(dirName)
	if code != 0 {
		return nil, code
	}
	if dirIndex == -1 {
		return nil, vfserrors.NotFound
	}

	loc, found, code := d.findFileInDirByComponent(dirEntry, component)
	if code != 0 {
		return nil, code
	}
	if !found {
		if code := d.createFileAtSize(dirIndex, dirEntry, component, 0); code != 0 {
			return nil, code
		}
		loc, found, code = d.findFileInDirByComponent(dirEntry, component)
		if code != 0 {
			return nil, code
		}
		if !found {
			return nil, vfserrors.IOError
		}
	}

	dir := d.openDirs[dirName]
	if dir == nil {
		dir = &dirHandle{name: dirName}
		d.openDirs[dirName] = dir
	}
	dir.refcount++

	key := fileKey(dirName, loc.entry.BankNum)
	f := d.openFiles[key]
	if f == nil {
		f = &fileHandle{
			dirKey:  dirName,
			dir:     dir,
			dirName: dirName,
			bankNum: loc.entry.BankNum,
			name:    loc.entry.Name,
		}
		d.openFiles[key] = f
	}
	f.refcount++

	return vfs.NewStream(&openFile{driver: d, handle: f}), 0
}

// fclose decrements f's refcount, erasing the file entry (and, if that drops
// the directory entry to zero too, the directory entry) once unreferenced.
func (d *Driver) fclose(f *fileHandle) {
	f.refcount--
	if f.refcount > 0 {
		return
	}
	delete(d.openFiles, fileKey(f.dirName, f.bankNum))

	f.dir.refcount--
	if f.dir.refcount <= 0 {
		delete(d.openDirs, f.dir.name)
	}
}
