package emu3

import "github.com/FireNX70/sampler-file-manager-sub000/vfserrors"

// Rename implements spec §4.C's rename(cur, new): the case is determined
// purely by how many path components each side has.
func (d *Driver) Rename(curPath, newPath string) vfserrors.Code {
	if d.readOnly {
		return vfserrors.UnsupportedOperation
	}

	cur := splitPath(curPath)
	dst := splitPath(newPath)

	switch {
	case len(cur) == 0:
		return vfserrors.UnsupportedOperation

	case len(cur) == 1 && len(dst) == 0:
		return 0

	case len(cur) == 1 && len(dst) == 1:
		return d.renameDir(cur[0], dst[0])

	case len(cur) == 1 && len(dst) == 2:
		return vfserrors.UnsupportedOperation

	case len(cur) == 2 && len(dst) == 0:
		return vfserrors.UnsupportedOperation

	case len(cur) == 2 && len(dst) == 1:
		return d.moveFile(cur[0], cur[1], dst[0], "")

	case len(cur) == 2 && len(dst) == 2:
		return d.moveFile(cur[0], cur[1], dst[0], dst[1])

	default:
		return vfserrors.InvalidPath
	}
}

// renameDir implements the 1-component/1-component directory-rename case.
func (d *Driver) renameDir(curName, newName string) vfserrors.Code {
	if _, open := d.openDirs[curName]; open {
		return vfserrors.AlreadyOpen
	}

	dirs, code := d.readDirTable()
	if code != 0 {
		return code
	}

	srcIndex := -1
	dstIndex := -1
	for i, entry := range dirs {
		if !entry.IsValid() {
			continue
		}
		if entry.Name == curName {
			srcIndex = i
		}
		if entry.Name == newName {
			dstIndex = i
		}
	}
	if srcIndex == -1 {
		return vfserrors.NotFound
	}

	if dstIndex != -1 && dstIndex != srcIndex {
		if code := d.removeDirAt(dstIndex, dirs[dstIndex], false); code != 0 {
			return code
		}
	}

	entry := dirs[srcIndex]
	entry.Name = newName
	return d.writeDirEntry(srcIndex, entry)
}

// moveFile implements every 2-component rename case: rename within a
// directory, move to another directory (dstName == "" keeps the source
// name), and move+rename combined.
func (d *Driver) moveFile(srcDirName, srcComponent, dstDirName, dstComponent string) vfserrors.Code {
	srcDirIndex, srcDirEntry, code := d.findDirByName(srcDirName)
	if code != 0 {
		return code
	}
	if srcDirIndex == -1 {
		return vfserrors.NotFound
	}

	srcLoc, found, code := d.findFileInDirByComponent(srcDirEntry, srcComponent)
	if code != 0 {
		return code
	}
	if !found {
		return vfserrors.NotFound
	}
	if _, open := d.openFiles[fileKey(srcDirName, srcLoc.entry.BankNum)]; open {
		return vfserrors.AlreadyOpen
	}

	dstDirIndex, dstDirEntry, code := d.findDirByName(dstDirName)
	if code != 0 {
		return code
	}
	if dstDirIndex == -1 {
		return vfserrors.NotFound
	}

	dstName := dstComponent
	if dstName == "" {
		dstName = srcLoc.entry.Name
	}

	dstBank := srcLoc.entry.BankNum
	if dstComponent != "" {
		if n, isBank := parseBankOrName(dstComponent); isBank {
			dstBank = byte(n)
		}
	}

	sameDir := srcDirName == dstDirName
	sameBank := sameDir && dstBank == srcLoc.entry.BankNum

	if !sameBank {
		if occupant, occupied, code := d.findFileByBank(dstDirEntry, dstBank); code != 0 {
			return code
		} else if occupied {
			if _, open := d.openFiles[fileKey(dstDirName, occupant.BankNum)]; open {
				return vfserrors.AlreadyOpen
			}
			if code := d.removeFileAt(occupant); code != 0 {
				return code
			}
			// No need to re-read the destination directory: removeFileAt
			// marks a file DEL but never changes content-block pointers,
			// so dstDirEntry itself is still valid to reuse here.
		}
	}

	newEntry := srcLoc.entry
	newEntry.Name = dstName
	newEntry.BankNum = dstBank

	if sameDir {
		return d.writeFileEntry(srcLoc.contentBlock, srcLoc.slot, newEntry)
	}

	dstCB, dstSlot, code := d.findFreeFileSlot(dstDirIndex, dstDirEntry)
	if code != 0 {
		return code
	}
	if code := d.writeFileEntry(dstCB, dstSlot, newEntry); code != 0 {
		return code
	}

	deadEntry := srcLoc.entry
	deadEntry.Type = fileTypeDel
	return d.writeFileEntry(srcLoc.contentBlock, srcLoc.slot, deadEntry)
}
