package emu3

import (
	"strconv"

	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// fileKey returns the open-file-table key for a file, per spec §4.C's
// open_files addressing ("<dirname>/<bank_num_decimal>").
func fileKey(dirName string, bankNum byte) string {
	return dirName + "/" + strconv.Itoa(int(bankNum))
}

// Remove implements spec §4.C's remove(path).
func (d *Driver) Remove(path string) vfserrors.Code {
	if d.readOnly {
		return vfserrors.UnsupportedOperation
	}

	comps := splitPath(path)
	switch len(comps) {
	case 0:
		dirs, code := d.readDirTable()
		if code != 0 {
			return code
		}
		for i, entry := range dirs {
			if !entry.IsValid() {
				continue
			}
			if code := d.removeDirAt(i, entry, true); code != 0 {
				return code
			}
		}
		return 0

	case 1:
		dirIndex, dirEntry, code := d.findDirByName(comps[0])
		if code != 0 {
			return code
		}
		if dirIndex == -1 {
			return vfserrors.NotFound
		}
		if _, open := d.openDirs[comps[0]]; open {
			return vfserrors.AlreadyOpen
		}
		return d.removeDirAt(dirIndex, dirEntry, true)

	case 2:
		dirIndex, dirEntry, code := d.findDirByName(comps[0])
		if code != 0 {
			return code
		}
		if dirIndex == -1 {
			return vfserrors.NotFound
		}
		loc, found, code := d.findFileInDirByComponent(dirEntry, comps[1])
		if code != 0 {
			return code
		}
		if !found {
			return vfserrors.NotFound
		}
		if _, open := d.openFiles[fileKey(comps[0], loc.entry.BankNum)]; open {
			return vfserrors.AlreadyOpen
		}
		return d.removeFileAt(loc)

	default:
		return vfserrors.InvalidPath
	}
}

// removeFileAt frees a file's cluster chain (if any) and marks its entry DEL.
func (d *Driver) removeFileAt(loc fileLocation) vfserrors.Code {
	if loc.entry.ClusterCnt > 0 {
		chain, code := engine.Follow(d.fatMirror, d.fatLen(), loc.entry.StartCluster)
		if code != 0 {
			return code
		}
		if code := d.freeChain(chain); code != 0 {
			return code
		}
	}

	loc.entry.Type = fileTypeDel
	return d.writeFileEntry(loc.contentBlock, loc.slot, loc.entry)
}

// removeDirAt removes every file in dirEntry (recursive), zeros its
// content-block pointers out of dir_content_block_map, and marks the
// directory entry DEL. With recursive=false it instead fails NOT_EMPTY if the
// directory owns any valid file.
func (d *Driver) removeDirAt(dirIndex int, dirEntry DirEntry, recursive bool) vfserrors.Code {
	files, code := d.listFilesInDir(dirEntry)
	if code != 0 {
		return code
	}
	if !recursive && len(files) > 0 {
		return vfserrors.NotEmpty
	}

	for _, loc := range files {
		if code := d.removeFileAt(loc); code != 0 {
			return code
		}
	}

	for _, cb := range dirEntry.ContentBlocks {
		if cb != 0xFFFF && int(cb) < d.dirContentMap.Len() {
			d.dirContentMap.Set(int(cb), false)
		}
	}
	d.nextFileListBlk = d.computeNextFileListBlk()

	dirEntry.Type = dirTypeDel
	if code := d.writeDirEntry(dirIndex, dirEntry); code != 0 {
		return code
	}
	return d.persistNextFileListBlk()
}
