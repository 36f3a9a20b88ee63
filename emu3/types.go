// Package emu3 implements the EMU3 driver: a FAT-based read/write file
// system with a custom on-disk layout (superblock + checksum, a directory
// table with extensible content-block pointers, a file table with
// bank-number/name dual addressing, and a linked-cluster FAT).
package emu3

import "github.com/FireNX70/sampler-file-manager-sub000/internal/diskio"

const (
	// BlockSize is the fixed block size of every EMU3 volume.
	BlockSize = diskio.BlockSize

	magic = "EMU3"

	superblockChecksumOffset = 510

	dirEntrySize       = 32
	dirEntriesPerBlock = BlockSize / dirEntrySize // 16
	maxContentBlocksPerDir = 7
	maxFilesPerDir         = maxContentBlocksPerDir * dirEntriesPerBlock // 112

	fileEntrySize       = 32
	fileEntriesPerBlock = BlockSize / fileEntrySize // 16

	nameFieldSize = 16

	// FAT sentinels (index width u16), per spec §3/§4.A.
	fatFree       = 0x0000
	fatDataMin    = 0x0001
	fatDataMax    = 0x7FFE
	fatEndOfChain = 0x7FFF
	fatReserved   = 0x8000
)

// Directory entry types.
const (
	dirTypeDel    byte = 0x00
	dirTypeLast   byte = 0x40
	dirTypeNormal byte = 0x80
)

// File entry types.
const (
	fileTypeDel     byte = 0x00
	fileTypePadding byte = 0x42
	fileTypeSys     byte = 0x80
	fileTypeStd     byte = 0x81
	fileTypeUpd     byte = 0x83
)

// Superblock is the in-memory, unpacked form of block 0.
type Superblock struct {
	BlockCnt        uint32
	DirListBlkAddr  uint32
	DirListBlkCnt   uint32
	FileListBlkAddr uint32
	FileListBlkCnt  uint32
	FATBlkAddr      uint32
	FATBlkCnt       uint32
	DataSctnBlkAddr uint32
	ClusterCnt      uint16
	ClusterShift    uint8
}

// ClusterSize is 1 << (15 + cluster_shift), cluster_shift in [0, 9].
func (sb Superblock) ClusterSize() uint32 {
	return 1 << (15 + uint32(sb.ClusterShift))
}

// DirEntry is the in-memory, unpacked form of a 32-byte directory entry. Name
// has already had '/' remapped to '\\' (read-side only, see codec.go).
type DirEntry struct {
	Name          string
	Type          byte
	ContentBlocks [maxContentBlocksPerDir]uint16
}

func (e DirEntry) IsValid() bool {
	return e.Type != dirTypeDel
}

// FileEntry is the in-memory, unpacked form of a 32-byte file entry.
type FileEntry struct {
	Name         string
	BankNum      byte
	StartCluster uint16
	ClusterCnt   uint16
	BlockCnt     uint16
	ByteCnt      uint16
	Type         byte
	Properties   [5]byte
}

func (e FileEntry) IsValid() bool {
	return e.Type != fileTypeDel
}

// Size returns the derived file size per spec §3.
func (e FileEntry) Size(clusterSize uint32) uint64 {
	if e.ClusterCnt == 0 {
		return 0
	}
	size := uint64(e.ClusterCnt-1) * uint64(clusterSize)
	if e.BlockCnt != 0 {
		size += uint64(e.BlockCnt-1) * BlockSize
		size += uint64(e.ByteCnt)
	}
	return size
}
