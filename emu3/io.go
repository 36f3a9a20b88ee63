package emu3

import (
	"github.com/FireNX70/sampler-file-manager-sub000/internal/diskio"
	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// openFile implements vfs.FileHandle for an open EMU3 file. It carries only
// the open-file-table entry; the directory/content-block/slot location is
// re-resolved on every call so a concurrent rename of the same file (from
// another path) can't leave it reading stale coordinates.
type openFile struct {
	driver *Driver
	handle *fileHandle
	closed bool
}

func (f *openFile) ReadAt(pos int64, p []byte) (int, vfserrors.Code) {
	f.driver.mu.Lock()
	defer f.driver.mu.Unlock()
	if f.closed {
		return 0, vfserrors.InvalidState
	}
	return f.driver.ioTransfer(f.handle, pos, p, false)
}

func (f *openFile) WriteAt(pos int64, p []byte) (int, vfserrors.Code) {
	f.driver.mu.Lock()
	defer f.driver.mu.Unlock()
	if f.closed {
		return 0, vfserrors.InvalidState
	}
	if f.driver.readOnly {
		return 0, vfserrors.UnsupportedOperation
	}
	return f.driver.ioTransfer(f.handle, pos, p, true)
}

func (f *openFile) Flush() vfserrors.Code {
	return 0
}

func (f *openFile) Close() vfserrors.Code {
	f.driver.mu.Lock()
	defer f.driver.mu.Unlock()
	if f.closed {
		return vfserrors.InvalidState
	}
	f.closed = true
	f.driver.fclose(f.handle)
	return 0
}

// ioTransfer implements spec §4.C's templated read/write algorithm: it holds
// the driver's mutex across the whole transfer, including any FAT/metadata
// updates it triggers, so concurrent writers to the same file serialize
// without tearing a cluster.
func (d *Driver) ioTransfer(h *fileHandle, pos int64, p []byte, write bool) (int, vfserrors.Code) {
	_, dirEntry, code := d.findDirByName(h.dirName)
	if code != 0 {
		return 0, code
	}
	loc, found, code := d.findFileByBank(dirEntry, h.bankNum)
	if code != 0 {
		return 0, code
	}
	if !found {
		return 0, vfserrors.NotFound
	}
	entry := loc.entry
	clusterSize := d.superblock.ClusterSize()
	fileSize := entry.Size(clusterSize)

	if len(p) == 0 {
		return 0, 0
	}

	toTransfer := len(p)
	if !write {
		if uint64(pos) >= fileSize {
			return 0, vfserrors.EndOfFile
		}
		remaining := int64(fileSize) - pos
		if int64(toTransfer) > remaining {
			toTransfer = int(remaining)
		}
	}

	clusterIdxForPos := uint64(pos) / uint64(clusterSize)

	if write && (entry.ClusterCnt == 0 || clusterIdxForPos >= uint64(entry.ClusterCnt)) {
		if code := d.resizeFile(loc, uint64(pos)+1); code != 0 {
			return 0, code
		}
		_, dirEntry, code = d.findDirByName(h.dirName)
		if code != 0 {
			return 0, code
		}
		loc, found, code = d.findFileByBank(dirEntry, h.bankNum)
		if code != 0 {
			return 0, code
		}
		if !found {
			return 0, vfserrors.NotFound
		}
		entry = loc.entry
	}

	cur := entry.StartCluster
	n := uint16(clusterIdxForPos)
	if code := engine.GetNth(d.fatMirror, d.fatLen(), &cur, n); code != 0 {
		if !write {
			return 0, vfserrors.EndOfFile
		}
		return 0, code
	}

	offsetInCluster := uint32(uint64(pos) % uint64(clusterSize))
	transferred := 0
	remaining := toTransfer

	firstChunk := int(clusterSize) - int(offsetInCluster)
	if firstChunk > remaining {
		firstChunk = remaining
	}
	var ioCode vfserrors.Code
	if write {
		ioCode = d.clusterWriteAt(cur, offsetInCluster, p[:firstChunk])
	} else {
		ioCode = d.clusterReadAt(cur, offsetInCluster, p[:firstChunk])
	}
	if ioCode != 0 {
		return transferred, ioCode
	}
	transferred += firstChunk
	remaining -= firstChunk

	for remaining > 0 {
		chunk := remaining
		if chunk > int(clusterSize) {
			chunk = int(clusterSize)
		}

		next, code := engine.GetNextOrFree(d.fatMirror, d.fatLen(), cur, fatDataMin)
		switch {
		case write && code == vfserrors.Alloc:
			if next == engine.EndOfChain {
				return transferred, vfserrors.NoSpaceLeft
			}
			entry.ClusterCnt++
			entry.BlockCnt = 0
			entry.ByteCnt = 0
			if code := d.writeFileEntry(loc.contentBlock, loc.slot, entry); code != 0 {
				return transferred, code
			}
			store := &diskFATStore{driver: d}
			if code := engine.ExtendChain(d.fatMirror, d.fatLen(), store, cur, next); code != 0 {
				return transferred, code
			}
			d.freeClusters--
			cur = next

		case !write && (code == vfserrors.Alloc || code != 0):
			return transferred, vfserrors.EndOfFile

		case code != 0:
			return transferred, code

		default:
			cur = next
		}

		if write {
			ioCode = d.clusterWriteAt(cur, 0, p[transferred:transferred+chunk])
		} else {
			ioCode = d.clusterReadAt(cur, 0, p[transferred:transferred+chunk])
		}
		if ioCode != 0 {
			return transferred, ioCode
		}
		transferred += chunk
		remaining -= chunk
	}

	if write {
		newPos := uint64(pos) + uint64(transferred)
		if newPos > entry.Size(clusterSize) {
			clusterCnt, blockCnt, byteCnt := sizeToCounts(newPos, clusterSize)
			entry.ClusterCnt = clusterCnt
			entry.BlockCnt = blockCnt
			entry.ByteCnt = byteCnt
			if code := d.writeFileEntry(loc.contentBlock, loc.slot, entry); code != 0 {
				return transferred, code
			}
		}
	}

	return transferred, 0
}

func (d *Driver) clusterStartBlock(cluster uint16) diskio.Block {
	blocksPerCluster := d.superblock.ClusterSize() / BlockSize
	return diskio.Block(d.superblock.DataSctnBlkAddr) + diskio.Block(uint32(cluster-1)*blocksPerCluster)
}

func (d *Driver) clusterReadAt(cluster uint16, offset uint32, p []byte) vfserrors.Code {
	start := d.clusterStartBlock(cluster)
	n := 0
	for n < len(p) {
		blockIdx := (offset + uint32(n)) / BlockSize
		within := (offset + uint32(n)) % BlockSize
		block, err := d.image.ReadBlocks(start+diskio.Block(blockIdx), 1)
		if err != nil {
			return vfserrors.IOError
		}
		n += copy(p[n:], block[within:])
	}
	return 0
}

func (d *Driver) clusterWriteAt(cluster uint16, offset uint32, p []byte) vfserrors.Code {
	start := d.clusterStartBlock(cluster)
	n := 0
	for n < len(p) {
		blockIdx := (offset + uint32(n)) / BlockSize
		within := (offset + uint32(n)) % BlockSize
		blockAddr := start + diskio.Block(blockIdx)

		block, err := d.image.ReadBlocks(blockAddr, 1)
		if err != nil {
			return vfserrors.IOError
		}
		copied := copy(block[within:], p[n:])
		if err := d.image.WriteAt(blockAddr, block); err != nil {
			return vfserrors.IOError
		}
		n += copied
	}
	return 0
}
