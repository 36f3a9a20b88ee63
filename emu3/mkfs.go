package emu3

import (
	"encoding/binary"
	"io"

	"github.com/FireNX70/sampler-file-manager-sub000/internal/diskio"
	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// MkfsOptions configures Mkfs. Geometry, if non-nil, supplies TotalBlocks and
// ClusterShift; explicit fields always win over the geometry when non-zero.
type MkfsOptions struct {
	Geometry       *DiskGeometry
	TotalBlocks    uint32
	ClusterShift   uint8
	DirListBlkCnt  uint32
	FileListBlkCnt uint32
}

const (
	defaultDirListBlkCnt  = 4   // 64 directory slots
	defaultFileListBlkCnt = 128 // 2048 file slots
)

// Mkfs formats stream as a fresh EMU3 volume: it lays out the superblock,
// directory table, file table and FAT, and marks every data cluster free.
// The original E-MU formatter never implemented this operation at all
// (original_source/src/E-MU/mkfs.cpp unconditionally returns
// UNSUPPORTED_OPERATION); this is a from-scratch addition for a complete VFS.
func Mkfs(stream io.ReadWriteSeeker, opts MkfsOptions) vfserrors.Code {
	totalBlocks := opts.TotalBlocks
	clusterShift := opts.ClusterShift
	if opts.Geometry != nil {
		if totalBlocks == 0 {
			totalBlocks = opts.Geometry.TotalBlocks
		}
		if clusterShift == 0 {
			clusterShift = opts.Geometry.ClusterShift
		}
	}
	if clusterShift > 9 {
		return vfserrors.BadClusterCnt
	}

	dirListBlkCnt := opts.DirListBlkCnt
	if dirListBlkCnt == 0 {
		dirListBlkCnt = defaultDirListBlkCnt
	}
	fileListBlkCnt := opts.FileListBlkCnt
	if fileListBlkCnt == 0 {
		fileListBlkCnt = defaultFileListBlkCnt
	}

	blocksPerCluster := uint32(64) << clusterShift
	const reservedBlocks = 2

	fixedBlocks := reservedBlocks + dirListBlkCnt + fileListBlkCnt
	if totalBlocks <= fixedBlocks {
		return vfserrors.DiskTooSmall
	}

	// Fixed-point estimate of the FAT's own block footprint: it depends on
	// cluster_cnt, which depends on how many blocks are left after the FAT.
	fatBlkCnt := uint32(1)
	var clusterCnt uint32
	for i := 0; i < 4; i++ {
		available := totalBlocks - fixedBlocks - fatBlkCnt
		clusterCnt = available / blocksPerCluster
		if clusterCnt > fatDataMax {
			clusterCnt = fatDataMax
		}
		fatLen := clusterCnt + 1
		fatBlkCnt = (fatLen*2 + BlockSize - 1) / BlockSize
	}
	if clusterCnt == 0 {
		return vfserrors.DiskTooSmall
	}

	sb := Superblock{
		DirListBlkAddr:  reservedBlocks,
		DirListBlkCnt:   dirListBlkCnt,
		FileListBlkAddr: reservedBlocks + dirListBlkCnt,
		FileListBlkCnt:  fileListBlkCnt,
		FATBlkAddr:      reservedBlocks + dirListBlkCnt + fileListBlkCnt,
		FATBlkCnt:       fatBlkCnt,
		DataSctnBlkAddr: reservedBlocks + dirListBlkCnt + fileListBlkCnt + fatBlkCnt,
		ClusterCnt:      uint16(clusterCnt),
		ClusterShift:    clusterShift,
	}
	sb.BlockCnt = sb.DataSctnBlkAddr + clusterCnt*blocksPerCluster

	img := diskio.NewImage(stream)

	packed := PackSuperblock(sb)
	if err := img.WriteAt(0, packed); err != nil {
		return vfserrors.IOError
	}

	block1 := make([]byte, BlockSize)
	binary.LittleEndian.PutUint16(block1, 0)
	if err := img.WriteAt(1, block1); err != nil {
		return vfserrors.IOError
	}

	emptyDirBlock := make([]byte, BlockSize)
	for i := range emptyDirBlock {
		emptyDirBlock[i] = 0
	}
	for i := uint32(0); i < dirListBlkCnt; i++ {
		if err := img.WriteAt(diskio.Block(sb.DirListBlkAddr+i), emptyDirBlock); err != nil {
			return vfserrors.IOError
		}
	}

	emptyFileBlock := zeroedFileBlockBytes()
	for i := uint32(0); i < fileListBlkCnt; i++ {
		if err := img.WriteAt(diskio.Block(sb.FileListBlkAddr+i), emptyFileBlock); err != nil {
			return vfserrors.IOError
		}
	}

	fat := make([]uint16, clusterCnt+1)
	fat[0] = fatReserved
	fatBytes := make([]byte, fatBlkCnt*BlockSize)
	for i, v := range fat {
		binary.LittleEndian.PutUint16(fatBytes[i*2:], v)
	}
	for i := fatLenBlocks(clusterCnt); i < fatBlkCnt*BlockSize/2; i++ {
		binary.LittleEndian.PutUint16(fatBytes[i*2:], fatReserved)
	}
	if err := img.WriteAt(diskio.Block(sb.FATBlkAddr), fatBytes); err != nil {
		return vfserrors.IOError
	}

	return 0
}

func fatLenBlocks(clusterCnt uint32) uint32 {
	return clusterCnt + 1
}

func zeroedFileBlockBytes() []byte {
	out := make([]byte, BlockSize)
	for slot := 0; slot < fileEntriesPerBlock; slot++ {
		entry := PackFileEntry(FileEntry{Type: fileTypeDel})
		copy(out[slot*fileEntrySize:], entry[:])
	}
	return out
}
