package emu3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperblockRoundTrip(t *testing.T) {
	sb := Superblock{
		BlockCnt:        40960,
		DirListBlkAddr:  2,
		DirListBlkCnt:   4,
		FileListBlkAddr: 6,
		FileListBlkCnt:  128,
		FATBlkAddr:      134,
		FATBlkCnt:       10,
		DataSctnBlkAddr: 144,
		ClusterCnt:      5000,
		ClusterShift:    3,
	}

	packed := PackSuperblock(sb)
	require.True(t, HasValidMagic(packed))
	require.True(t, HasValidChecksum(packed))

	got := UnpackSuperblock(packed)
	assert.Equal(t, sb, got)
}

func TestSuperblockChecksumDetectsCorruption(t *testing.T) {
	packed := PackSuperblock(Superblock{ClusterCnt: 10})
	packed[20] ^= 0xFF
	assert.False(t, HasValidChecksum(packed))
}

func TestDirEntryRoundTrip(t *testing.T) {
	e := DirEntry{
		Name:          "SOUNDS",
		Type:          dirTypeNormal,
		ContentBlocks: [maxContentBlocksPerDir]uint16{0, 1, 2, 0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF},
	}
	got := UnpackDirEntry(PackDirEntry(e))
	assert.Equal(t, e, got)
	assert.True(t, got.IsValid())
}

func TestDirEntryNameSlashRemapIsReadSideOnly(t *testing.T) {
	e := DirEntry{Name: "A/B", Type: dirTypeNormal}
	packed := PackDirEntry(e)

	// Packing must not itself rewrite the slash: the raw name bytes on disk
	// are exactly what was given.
	assert.Equal(t, byte('A'), packed[0])
	assert.Equal(t, byte('/'), packed[1])
	assert.Equal(t, byte('B'), packed[2])

	// Unpacking remaps '/' to '\\'.
	got := UnpackDirEntry(packed)
	assert.Equal(t, `A\B`, got.Name)
}

func TestFileEntryRoundTrip(t *testing.T) {
	e := FileEntry{
		Name:         "PIANO1",
		BankNum:      5,
		StartCluster: 42,
		ClusterCnt:   3,
		BlockCnt:     7,
		ByteCnt:      100,
		Type:         fileTypeStd,
		Properties:   [5]byte{1, 2, 3, 4, 5},
	}
	got := UnpackFileEntry(PackFileEntry(e))
	assert.Equal(t, e, got)
	assert.True(t, got.IsValid())
}

func TestFileEntryDeletedIsInvalid(t *testing.T) {
	e := FileEntry{Type: fileTypeDel}
	assert.False(t, e.IsValid())
}

func TestFileEntrySize(t *testing.T) {
	const clusterSize = 32 * 1024

	t.Run("empty file", func(t *testing.T) {
		e := FileEntry{}
		assert.Equal(t, uint64(0), e.Size(clusterSize))
	})

	t.Run("exactly one cluster", func(t *testing.T) {
		e := FileEntry{ClusterCnt: 1, BlockCnt: clusterSize / BlockSize, ByteCnt: BlockSize}
		assert.Equal(t, uint64(clusterSize), e.Size(clusterSize))
	})

	t.Run("partial final block", func(t *testing.T) {
		e := FileEntry{ClusterCnt: 1, BlockCnt: 2, ByteCnt: 100}
		assert.Equal(t, uint64(BlockSize+100), e.Size(clusterSize))
	})
}
