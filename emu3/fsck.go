package emu3

import (
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// Fsck repair-bit flags, per spec §4.C's 11-step pass. Bit positions are this
// module's own numbering; nothing on disk encodes them.
const (
	flagInvalidChecksum uint32 = 1 << iota
	flagBadClusterShift
	flagBadBlockCnt
	flagBadClusterCnt
	flagBadRootDir
	flagBadFileList
	flagBadFATAddr
	flagBadFATBlkCnt
	flagFileListCollision
	flagFATCollision
	flagDataCollision
	flagBadDir
	flagBadNextDirContentBlk
	flagUnmarkedReservedClusters
	flagBadFile
)

// Fsck implements spec §4.C's fsck(path): it re-validates every structural
// invariant against the live volume, repairing in place and accumulating a
// bitmask of what it had to fix. A second run on a clean volume returns 0.
func (d *Driver) Fsck() (uint32, error) {
	var status uint32
	var errs *multierror.Error

	block0, err := d.image.ReadBlocks(0, 1)
	if err != nil {
		return 0, vfserrors.IOError
	}
	if !HasValidMagic(block0) {
		return 0, vfserrors.WrongFS
	}
	if !HasValidChecksum(block0) {
		status |= flagInvalidChecksum
	}

	sb := UnpackSuperblock(block0)

	if sb.ClusterShift > 9 {
		status |= flagBadClusterShift
		sb.ClusterShift = 9
	}
	if sb.ClusterCnt == 0 || sb.ClusterCnt > fatDataMax {
		status |= flagBadClusterCnt
		if sb.ClusterCnt == 0 {
			sb.ClusterCnt = 1
		} else {
			sb.ClusterCnt = fatDataMax
		}
	}

	fatLen := uint32(sb.ClusterCnt) + 1
	expectedFATBlocks := (fatLen*2 + BlockSize - 1) / BlockSize
	if expectedFATBlocks != sb.FATBlkCnt {
		status |= flagBadFATBlkCnt
		sb.FATBlkCnt = expectedFATBlocks
	}

	blocksPerCluster := sb.ClusterSize() / BlockSize
	dataBlocks := uint32(sb.ClusterCnt) * blocksPerCluster
	const reservedBlocks = 2
	minBlockCnt := reservedBlocks + sb.DirListBlkCnt + sb.FileListBlkCnt + sb.FATBlkCnt + dataBlocks
	if sb.BlockCnt < minBlockCnt {
		status |= flagBadBlockCnt
		sb.BlockCnt = minBlockCnt
	}

	if sb.DirListBlkAddr < 2 {
		status |= flagBadRootDir
	}
	if sb.FileListBlkAddr < 2 {
		status |= flagBadFileList
	}
	if sb.FATBlkAddr < 2 {
		status |= flagBadFATAddr
	}

	regions := [4]struct {
		start, length uint32
	}{
		{sb.DirListBlkAddr, sb.DirListBlkCnt},
		{sb.FileListBlkAddr, sb.FileListBlkCnt},
		{sb.FATBlkAddr, sb.FATBlkCnt},
		{sb.DataSctnBlkAddr, dataBlocks},
	}
	if overlaps(regions[0], regions[1]) || overlaps(regions[2], regions[1]) {
		status |= flagFileListCollision
	}
	if overlaps(regions[0], regions[2]) {
		status |= flagFATCollision
	}
	if overlaps(regions[0], regions[3]) || overlaps(regions[1], regions[3]) || overlaps(regions[2], regions[3]) {
		status |= flagDataCollision
	}

	d.superblock = sb
	if code := d.writeSuperblock(sb); code != 0 {
		errs = multierror.Append(errs, code)
	}

	if code := d.loadFAT(); code != 0 {
		errs = multierror.Append(errs, code)
	}

	dirStatus, dirErr := d.fsckDirectories()
	status |= dirStatus
	if dirErr != nil {
		errs = multierror.Append(errs, dirErr)
	}

	if code := d.loadDirContentMap(); code != 0 {
		errs = multierror.Append(errs, code)
	} else {
		recomputed := d.computeNextFileListBlk()
		if recomputed != d.nextFileListBlk {
			status |= flagBadNextDirContentBlk
			d.nextFileListBlk = recomputed
			if code := d.persistNextFileListBlk(); code != 0 {
				errs = multierror.Append(errs, code)
			}
		}
	}

	if d.fatMirror[0] != fatReserved {
		status |= flagUnmarkedReservedClusters
		if code := d.writeFATCell(0, fatReserved); code != 0 {
			errs = multierror.Append(errs, code)
		}
	}
	for i := uint32(sb.ClusterCnt) + 1; i < uint32(d.fatLen()); i++ {
		if d.fatMirror[i] != fatReserved {
			status |= flagUnmarkedReservedClusters
			if code := d.writeFATCell(uint16(i), fatReserved); code != 0 {
				errs = multierror.Append(errs, code)
			}
		}
	}

	fileStatus, fileErr := d.fsckFiles()
	status |= fileStatus
	if fileErr != nil {
		errs = multierror.Append(errs, fileErr)
	}

	return status, errs.ErrorOrNil()
}

func overlaps(a, b struct{ start, length uint32 }) bool {
	if a.length == 0 || b.length == 0 {
		return false
	}
	aEnd := a.start + a.length
	bEnd := b.start + b.length
	return a.start < bEnd && b.start < aEnd
}

func (d *Driver) writeSuperblock(sb Superblock) vfserrors.Code {
	packed := PackSuperblock(sb)
	if err := d.image.WriteAt(0, packed); err != nil {
		return vfserrors.IOError
	}
	return 0
}

// fsckDirectories implements step 8: double-referenced content blocks are
// unlinked, and duplicate directory names are suffixed "_N" (or replaced by
// the bare number if the suffix wouldn't fit).
func (d *Driver) fsckDirectories() (uint32, error) {
	var status uint32
	var errs *multierror.Error

	dirs, code := d.readDirTable()
	if code != 0 {
		return 0, code
	}

	seenBlocks := make(map[uint16]int)
	seenNames := make(map[string]int)

	for i := range dirs {
		if !dirs[i].IsValid() {
			continue
		}
		dirty := false

		for j, cb := range dirs[i].ContentBlocks {
			if cb == 0xFFFF {
				continue
			}
			if _, dup := seenBlocks[cb]; dup {
				status |= flagBadDir
				dirs[i].ContentBlocks[j] = 0xFFFF
				dirty = true
				continue
			}
			seenBlocks[cb] = i
		}

		count := seenNames[dirs[i].Name]
		seenNames[dirs[i].Name] = count + 1
		if count > 0 {
			status |= flagBadDir
			dirs[i].Name = dedupeName(dirs[i].Name, count+1)
			dirty = true
		}

		if dirty {
			if code := d.writeDirEntry(i, dirs[i]); code != 0 {
				errs = multierror.Append(errs, code)
			}
		}
	}

	return status, errs.ErrorOrNil()
}

// dedupeName suffixes name with "_N", or replaces it outright with the bare
// number if the suffix would overflow the 16-byte on-disk field.
func dedupeName(name string, n int) string {
	suffix := "_" + strconv.Itoa(n)
	if len(name)+len(suffix) <= nameFieldSize {
		return name + suffix
	}
	bare := strconv.Itoa(n)
	if len(bare) > nameFieldSize {
		bare = bare[:nameFieldSize]
	}
	return bare
}

// fsckFiles implements step 11: clamps every file entry's counts, repairs a
// chain-broken start_cluster, and renumbers duplicate bank numbers.
func (d *Driver) fsckFiles() (uint32, error) {
	var status uint32
	var errs *multierror.Error

	dirs, code := d.readDirTable()
	if code != 0 {
		return 0, code
	}

	maxBlockCnt := uint16(d.superblock.ClusterSize() / BlockSize)

	for _, dirEntry := range dirs {
		if !dirEntry.IsValid() {
			continue
		}

		usedBanks := make(map[byte]bool)

		for _, cb := range dirEntry.ContentBlocks {
			if cb == 0xFFFF {
				continue
			}
			entries, code := d.readFileBlock(cb)
			if code != 0 {
				errs = multierror.Append(errs, code)
				continue
			}

			for slot, entry := range entries {
				if !entry.IsValid() {
					continue
				}
				dirty := false

				if entry.ClusterCnt > fatDataMax {
					entry.ClusterCnt = fatDataMax
					status |= flagBadFile
					dirty = true
				}
				if entry.BlockCnt > maxBlockCnt {
					entry.BlockCnt = maxBlockCnt
					status |= flagBadFile
					dirty = true
				}
				if entry.ByteCnt > BlockSize {
					entry.ByteCnt = BlockSize
					status |= flagBadFile
					dirty = true
				}

				if entry.ClusterCnt > 0 {
					if int(entry.StartCluster) >= len(d.fatMirror) {
						entry.StartCluster = fatEndOfChain
						status |= flagBadFile
						dirty = true
					} else {
						next := d.fatMirror[entry.StartCluster]
						isData := next >= fatDataMin && next <= fatDataMax
						if !isData && next != fatEndOfChain {
							entry.StartCluster = fatEndOfChain
							status |= flagBadFile
							dirty = true
						}
					}
				}

				if usedBanks[entry.BankNum] {
					entry.BankNum = firstUnusedBankFrom(usedBanks)
					status |= flagBadFile
					dirty = true
				}
				usedBanks[entry.BankNum] = true

				if dirty {
					if code := d.writeFileEntry(cb, slot, entry); code != 0 {
						errs = multierror.Append(errs, code)
					}
				}
			}
		}
	}

	return status, errs.ErrorOrNil()
}

func firstUnusedBankFrom(used map[byte]bool) byte {
	for n := 0; n <= 127; n++ {
		if !used[byte(n)] {
			return byte(n)
		}
	}
	return 0
}
