package emu3

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// bankNumberPattern matches the "NNN-rest" shape used for bank-number
// lookups, per spec §4.C's list() rule.
var bankNumberPattern = regexp.MustCompile(`^([0-9]{1,3})-(.*)$`)

// parseBankOrName classifies a trailing path component: if it looks like
// "NNN-..." and NNN parses into [0, 255] it's a bank-number lookup;
// otherwise (including "NNN-..." with NNN > 255) it's a name lookup on the
// full original string.
func parseBankOrName(component string) (bankNum int, isBankLookup bool) {
	m := bankNumberPattern.FindStringSubmatch(component)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > 255 {
		return 0, false
	}
	return n, true
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// findDirByName returns the index and entry of the first valid directory
// named name, or -1 if none matches.
func (d *Driver) findDirByName(name string) (int, DirEntry, vfserrors.Code) {
	dirs, code := d.readDirTable()
	if code != 0 {
		return -1, DirEntry{}, code
	}
	for i, entry := range dirs {
		if entry.IsValid() && entry.Name == name {
			return i, entry, 0
		}
	}
	return -1, DirEntry{}, 0
}

// findFreeDirSlot returns the index of the first DEL (or unused) directory
// slot, or -1 if the root table is full.
func (d *Driver) findFreeDirSlot(dirs []DirEntry) int {
	for i, entry := range dirs {
		if !entry.IsValid() {
			return i
		}
	}
	return -1
}

// fileLocation identifies a file entry's position: the content-block index
// (into the file-list pool) and the slot within that block.
type fileLocation struct {
	contentBlock uint16
	slot         int
	entry        FileEntry
}

// listFilesInDir reads every valid file entry belonging to dirEntry, along
// with its location for later in-place updates.
func (d *Driver) listFilesInDir(dirEntry DirEntry) ([]fileLocation, vfserrors.Code) {
	var out []fileLocation
	for _, cb := range dirEntry.ContentBlocks {
		if cb == 0xFFFF {
			continue
		}
		entries, code := d.readFileBlock(cb)
		if code != 0 {
			return nil, code
		}
		for slot, entry := range entries {
			if entry.IsValid() {
				out = append(out, fileLocation{contentBlock: cb, slot: slot, entry: entry})
			}
		}
	}
	return out, 0
}

// findFileByBank locates a valid file entry by bank number within dirEntry.
func (d *Driver) findFileByBank(dirEntry DirEntry, bankNum byte) (fileLocation, bool, vfserrors.Code) {
	files, code := d.listFilesInDir(dirEntry)
	if code != 0 {
		return fileLocation{}, false, code
	}
	for _, loc := range files {
		if loc.entry.BankNum == bankNum {
			return loc, true, 0
		}
	}
	return fileLocation{}, false, 0
}

// findFileByName locates a valid file entry by name within dirEntry.
func (d *Driver) findFileByName(dirEntry DirEntry, name string) (fileLocation, bool, vfserrors.Code) {
	files, code := d.listFilesInDir(dirEntry)
	if code != 0 {
		return fileLocation{}, false, code
	}
	for _, loc := range files {
		if loc.entry.Name == name {
			return loc, true, 0
		}
	}
	return fileLocation{}, false, 0
}

// findFreeFileSlot returns a content-block index and slot for a fresh file
// entry within dirEntry, allocating a new content block (and persisting the
// directory's entry) if every existing block is full. dirIndex is the root
// table index of dirEntry.
func (d *Driver) findFreeFileSlot(dirIndex int, dirEntry DirEntry) (uint16, int, vfserrors.Code) {
	for _, cb := range dirEntry.ContentBlocks {
		if cb == 0xFFFF {
			continue
		}
		entries, code := d.readFileBlock(cb)
		if code != 0 {
			return 0, 0, code
		}
		for slot, entry := range entries {
			if !entry.IsValid() {
				return cb, slot, 0
			}
		}
	}

	// Every existing content block (if any) is full; grow the directory.
	return d.growDir(dirIndex, &dirEntry)
}

// growDir allocates a fresh content block for dirEntry and persists the
// updated directory entry, returning the new block's index and slot 0.
func (d *Driver) growDir(dirIndex int, dirEntry *DirEntry) (uint16, int, vfserrors.Code) {
	slotIdx := -1
	for i, cb := range dirEntry.ContentBlocks {
		if cb == 0xFFFF {
			slotIdx = i
			break
		}
	}
	if slotIdx == -1 {
		return 0, 0, vfserrors.DirSizeMaxed
	}

	if int(d.nextFileListBlk) >= d.dirContentMap.Len() {
		return 0, 0, vfserrors.DirSizeMaxed
	}

	newBlock := d.nextFileListBlk
	d.dirContentMap.Set(int(newBlock), true)
	dirEntry.ContentBlocks[slotIdx] = newBlock
	d.nextFileListBlk = d.computeNextFileListBlk()

	if code := d.zeroFileBlock(newBlock); code != 0 {
		return 0, 0, code
	}
	if code := d.writeDirEntry(dirIndex, *dirEntry); code != 0 {
		return 0, 0, code
	}
	if code := d.persistNextFileListBlk(); code != 0 {
		return 0, 0, code
	}
	return newBlock, 0, 0
}

func (d *Driver) zeroFileBlock(cb uint16) vfserrors.Code {
	empty := make([]FileEntry, fileEntriesPerBlock)
	for i := range empty {
		empty[i] = FileEntry{Type: fileTypeDel}
	}
	for slot, entry := range empty {
		if code := d.writeFileEntry(cb, slot, entry); code != 0 {
			return code
		}
	}
	return 0
}
