package emu3

import "github.com/FireNX70/sampler-file-manager-sub000/vfserrors"

// sizeToCounts converts a byte size into the (cluster_cnt, block_cnt,
// byte_cnt) triple per spec §4.C's ftruncate rules, including the
// cluster-boundary special case where the last cluster is reported as fully
// used rather than as an empty extra cluster.
func sizeToCounts(size uint64, clusterSize uint32) (clusterCnt, blockCnt, byteCnt uint16) {
	if size == 0 {
		return 0, 0, 0
	}

	cs := uint64(clusterSize)
	modCluster := size % cs

	if modCluster == 0 {
		return uint16(size / cs), uint16(cs / 512), 512
	}

	byteCnt = uint16(size % 512)
	blockCnt = uint16(modCluster / 512)
	if byteCnt != 0 {
		blockCnt++
	}
	clusterCnt = uint16(size / cs)
	if blockCnt != 0 {
		clusterCnt++
	}
	return clusterCnt, blockCnt, byteCnt
}

// Ftruncate implements spec §4.C's ftruncate(path, new_size).
func (d *Driver) Ftruncate(path string, newSize uint64) vfserrors.Code {
	if d.readOnly {
		return vfserrors.UnsupportedOperation
	}

	comps := splitPath(path)
	if len(comps) != 2 {
		return vfserrors.InvalidPath
	}

	clusterSize := d.superblock.ClusterSize()
	maxSize := uint64(fatDataMax) * uint64(clusterSize)
	if newSize > maxSize {
		return vfserrors.FileTooLarge
	}

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
		return d.createFileAtSize(dirIndex, dirEntry, comps[1], newSize)
	}
	return d.resizeFile(loc, newSize)
}

// createFileAtSize allocates a fresh directory slot for name and sizes it to
// newSize; this is ftruncate's create path, also used by fopen(create=true).
func (d *Driver) createFileAtSize(dirIndex int, dirEntry DirEntry, name string, newSize uint64) vfserrors.Code {
	bankNum, code := d.firstUnusedBank(dirEntry)
	if code != 0 {
		return code
	}

	cb, slot, code := d.findFreeFileSlot(dirIndex, dirEntry)
	if code != 0 {
		return code
	}

	entry := FileEntry{Name: name, BankNum: bankNum, Type: fileTypeStd}
	if newSize > 0 {
		clusterCnt, blockCnt, byteCnt := sizeToCounts(newSize, d.superblock.ClusterSize())
		chain, code := d.allocateChain(int(clusterCnt))
		if code != 0 {
			if code == vfserrors.NoFreeClusters {
				return vfserrors.NoSpaceLeft
			}
			return code
		}
		entry.StartCluster = chain[0]
		entry.ClusterCnt = clusterCnt
		entry.BlockCnt = blockCnt
		entry.ByteCnt = byteCnt
	}

	if code := d.writeFileEntry(cb, slot, entry); code != 0 {
		return code
	}
	d.log.Info("created file", "name", name, "size", newSize)
	return 0
}

// firstUnusedBank returns the lowest bank number in [0, 127] not already used
// by a valid file entry in dirEntry.
func (d *Driver) firstUnusedBank(dirEntry DirEntry) (byte, vfserrors.Code) {
	files, code := d.listFilesInDir(dirEntry)
	if code != 0 {
		return 0, code
	}
	used := make(map[byte]bool, len(files))
	for _, loc := range files {
		used[loc.entry.BankNum] = true
	}
	for n := 0; n <= 127; n++ {
		if !used[byte(n)] {
			return byte(n), 0
		}
	}
	return 0, vfserrors.DirSizeMaxed
}

// resizeFile grows or shrinks an existing file's cluster chain to match
// newSize, per spec §4.C's ftruncate rules.
func (d *Driver) resizeFile(loc fileLocation, newSize uint64) vfserrors.Code {
	entry := loc.entry
	clusterSize := d.superblock.ClusterSize()
	newClusterCnt, newBlockCnt, newByteCnt := sizeToCounts(newSize, clusterSize)

	var chain []uint16
	var code vfserrors.Code
	if entry.ClusterCnt > 0 {
		chain, code = engine.Follow(d.fatMirror, d.fatLen(), entry.StartCluster)
		if code != 0 {
			return code
		}
	}

	switch {
	case int(newClusterCnt) == len(chain):
		// No change in cluster count, only the tail counts move.

	case int(newClusterCnt) > len(chain):
		need := int(newClusterCnt) - len(chain)
		extra, code := d.allocateChain(need)
		if code != 0 {
			if code == vfserrors.NoFreeClusters {
				return vfserrors.NoSpaceLeft
			}
			return code
		}
		if len(chain) == 0 {
			entry.StartCluster = extra[0]
			chain = extra
		} else {
			if code := d.writeFATCell(chain[len(chain)-1], extra[0]); code != 0 {
				return code
			}
			chain = append(chain, extra...)
		}

	default:
		if code := d.shrinkChain(chain, int(newClusterCnt)); code != 0 {
			return code
		}
		chain = chain[:newClusterCnt]
	}

	entry.ClusterCnt = newClusterCnt
	entry.BlockCnt = newBlockCnt
	entry.ByteCnt = newByteCnt
	if newClusterCnt == 0 {
		entry.StartCluster = 0
	}

	return d.writeFileEntry(loc.contentBlock, loc.slot, entry)
}
