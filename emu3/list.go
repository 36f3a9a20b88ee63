package emu3

import (
	"github.com/FireNX70/sampler-file-manager-sub000/vfs"
	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// List implements spec §4.C's list(path, get_dir).
func (d *Driver) List(path string, getDir bool) ([]vfs.Dentry, vfserrors.Code) {
	comps := splitPath(path)

	switch len(comps) {
	case 0:
		if getDir {
			return []vfs.Dentry{{
				Name:  "/",
				Size:  uint64(d.superblock.DirListBlkCnt) * BlockSize,
				IsDir: true,
			}}, 0
		}
		return d.listRootDirs()

	case 1:
		dirIndex, dirEntry, code := d.findDirByName(comps[0])
		if code != 0 {
			return nil, code
		}
		if dirIndex == -1 {
			return nil, vfserrors.NotFound
		}
		if getDir {
			return []vfs.Dentry{d.dentryForDir(dirEntry)}, 0
		}
		return d.listFilesAsDentries(dirEntry)

	case 2:
		dirIndex, dirEntry, code := d.findDirByName(comps[0])
		if code != 0 {
			return nil, code
		}
		if dirIndex == -1 {
			return nil, vfserrors.NotFound
		}

		loc, found, code := d.findFileInDirByComponent(dirEntry, comps[1])
		if code != 0 {
			return nil, code
		}
		if !found {
			return nil, vfserrors.NotFound
		}
		return []vfs.Dentry{d.dentryForFile(loc.entry)}, 0

	default:
		return nil, vfserrors.InvalidPath
	}
}

// findFileInDirByComponent resolves a trailing path component via the
// bank-number-or-name rule described in spec §4.C.
func (d *Driver) findFileInDirByComponent(dirEntry DirEntry, component string) (fileLocation, bool, vfserrors.Code) {
	if bankNum, isBank := parseBankOrName(component); isBank {
		return d.findFileByBank(dirEntry, byte(bankNum))
	}
	return d.findFileByName(dirEntry, component)
}

func (d *Driver) listRootDirs() ([]vfs.Dentry, vfserrors.Code) {
	dirs, code := d.readDirTable()
	if code != 0 {
		return nil, code
	}
	out := make([]vfs.Dentry, 0, len(dirs))
	for _, entry := range dirs {
		if entry.IsValid() {
			out = append(out, d.dentryForDir(entry))
		}
	}
	return out, 0
}

func (d *Driver) listFilesAsDentries(dirEntry DirEntry) ([]vfs.Dentry, vfserrors.Code) {
	files, code := d.listFilesInDir(dirEntry)
	if code != 0 {
		return nil, code
	}
	out := make([]vfs.Dentry, 0, len(files))
	for _, loc := range files {
		out = append(out, d.dentryForFile(loc.entry))
	}
	return out, 0
}

// dirSize counts the content blocks of entry that fall within the file-list
// pool, per spec §3's directory-size definition.
func (d *Driver) dirSize(entry DirEntry) uint64 {
	count := 0
	for _, cb := range entry.ContentBlocks {
		if cb != 0xFFFF && uint32(cb) < d.superblock.FileListBlkCnt {
			count++
		}
	}
	return uint64(count) * BlockSize
}

func (d *Driver) dentryForDir(entry DirEntry) vfs.Dentry {
	return vfs.Dentry{Name: entry.Name, Size: d.dirSize(entry), IsDir: true}
}

func (d *Driver) dentryForFile(entry FileEntry) vfs.Dentry {
	return vfs.Dentry{Name: entry.Name, Size: entry.Size(d.superblock.ClusterSize()), IsDir: false}
}
