package emu3

import "github.com/FireNX70/sampler-file-manager-sub000/vfserrors"

// Mkdir implements spec §4.C's mkdir(path): a single path component only,
// written into the first invalid slot of the root directory table.
func (d *Driver) Mkdir(path string) vfserrors.Code {
	comps := splitPath(path)
	if len(comps) != 1 {
		return vfserrors.InvalidPath
	}
	name := comps[0]

	dirs, code := d.readDirTable()
	if code != 0 {
		return code
	}

	for _, entry := range dirs {
		if entry.IsValid() && entry.Name == name {
			return vfserrors.AlreadyExists
		}
	}

	slot := d.findFreeDirSlot(dirs)
	if slot == -1 {
		return vfserrors.NoSpaceLeft
	}

	newEntry := DirEntry{Name: name, Type: dirTypeNormal}
	for i := range newEntry.ContentBlocks {
		newEntry.ContentBlocks[i] = 0xFFFF
	}

	if code := d.writeDirEntry(slot, newEntry); code != 0 {
		return code
	}
	d.log.Info("created directory", "name", name)
	return 0
}
