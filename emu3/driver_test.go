package emu3_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FireNX70/sampler-file-manager-sub000/emu3"
	"github.com/FireNX70/sampler-file-manager-sub000/internal/testfixture"
	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

func mustMount(t *testing.T, totalBlocks uint32, clusterShift uint8) *emu3.Driver {
	t.Helper()
	vol := testfixture.NewVolume(t, totalBlocks, clusterShift)
	drv, code := emu3.Mount(vol, emu3.MountOptions{})
	require.True(t, code.Ok(), "Mount failed: %v", code)
	return drv
}

func TestMkdirAndList(t *testing.T) {
	drv := mustMount(t, 2000, 0)

	require.True(t, drv.Mkdir("SOUNDS").Ok())
	assert.Equal(t, vfserrors.AlreadyExists, drv.Mkdir("SOUNDS"))

	entries, code := drv.List("", false)
	require.True(t, code.Ok())
	require.Len(t, entries, 1)
	assert.Equal(t, "SOUNDS", entries[0].Name)
	assert.True(t, entries[0].IsDir)

	entries, code = drv.List("SOUNDS", false)
	require.True(t, code.Ok())
	assert.Empty(t, entries)

	assert.Equal(t, vfserrors.NotFound, func() vfserrors.Code {
		_, code := drv.List("MISSING", false)
		return code
	}())
}

func TestFtruncateCreateGrowShrink(t *testing.T) {
	drv := mustMount(t, 2000, 0)
	require.True(t, drv.Mkdir("BANK").Ok())

	require.True(t, drv.Ftruncate("BANK/SND1", 50000).Ok())

	entries, code := drv.List("BANK/SND1", false)
	require.True(t, code.Ok())
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(50000), entries[0].Size)

	require.True(t, drv.Ftruncate("BANK/SND1", 1000).Ok())
	entries, code = drv.List("BANK/SND1", false)
	require.True(t, code.Ok())
	assert.Equal(t, uint64(1000), entries[0].Size)

	require.True(t, drv.Ftruncate("BANK/SND1", 0).Ok())
	entries, code = drv.List("BANK/SND1", false)
	require.True(t, code.Ok())
	assert.Equal(t, uint64(0), entries[0].Size)
}

func TestFtruncateRejectsOversizedFile(t *testing.T) {
	drv := mustMount(t, 2000, 0)
	require.True(t, drv.Mkdir("BANK").Ok())
	code := drv.Ftruncate("BANK/HUGE", 1<<40)
	assert.Equal(t, vfserrors.FileTooLarge, code)
}

func TestFopenWriteThenRead(t *testing.T) {
	drv := mustMount(t, 2000, 0)
	require.True(t, drv.Mkdir("BANK").Ok())

	stream, code := drv.Fopen("BANK/SND1")
	require.True(t, code.Ok())

	payload := bytes.Repeat([]byte{0xAB}, 40000) // spans more than one 32 KiB cluster
	n, writeCode := stream.Write(payload)
	require.Zero(t, writeCode)
	require.Equal(t, len(payload), n)
	require.Zero(t, stream.Close())

	readStream, code := drv.Fopen("BANK/SND1")
	require.True(t, code.Ok())
	defer readStream.Close()

	got := make([]byte, len(payload))
	total := 0
	for total < len(got) {
		n, readCode := readStream.Read(got[total:])
		total += n
		if readCode == vfserrors.EndOfFile {
			break
		}
		require.Zero(t, readCode)
		if n == 0 {
			break
		}
	}
	assert.Equal(t, payload, got[:total])
}

func TestFopenSameFileTwiceSharesRefcount(t *testing.T) {
	drv := mustMount(t, 2000, 0)
	require.True(t, drv.Mkdir("BANK").Ok())

	s1, code := drv.Fopen("BANK/SND1")
	require.True(t, code.Ok())
	s2, code := drv.Fopen("BANK/SND1")
	require.True(t, code.Ok())

	assert.Zero(t, s1.Close())
	assert.Equal(t, vfserrors.AlreadyOpen, drv.Remove("BANK/SND1"))
	assert.Zero(t, s2.Close())
	assert.True(t, drv.Remove("BANK/SND1").Ok())
}

func TestRenameFileWithinDir(t *testing.T) {
	drv := mustMount(t, 2000, 0)
	require.True(t, drv.Mkdir("BANK").Ok())
	require.True(t, drv.Ftruncate("BANK/SND1", 100).Ok())

	require.True(t, drv.Rename("BANK/SND1", "BANK/SND2").Ok())

	_, code := drv.List("BANK/SND1", false)
	assert.Equal(t, vfserrors.NotFound, code)

	entries, code := drv.List("BANK/SND2", false)
	require.True(t, code.Ok())
	assert.Equal(t, uint64(100), entries[0].Size)
}

func TestRenameFileAcrossDirs(t *testing.T) {
	drv := mustMount(t, 2000, 0)
	require.True(t, drv.Mkdir("SRC").Ok())
	require.True(t, drv.Mkdir("DST").Ok())
	require.True(t, drv.Ftruncate("SRC/SND1", 200).Ok())

	require.True(t, drv.Rename("SRC/SND1", "DST/SND1").Ok())

	_, code := drv.List("SRC/SND1", false)
	assert.Equal(t, vfserrors.NotFound, code)

	entries, code := drv.List("DST/SND1", false)
	require.True(t, code.Ok())
	assert.Equal(t, uint64(200), entries[0].Size)
}

func TestRenameDir(t *testing.T) {
	drv := mustMount(t, 2000, 0)
	require.True(t, drv.Mkdir("OLD").Ok())
	require.True(t, drv.Rename("OLD", "NEW").Ok())

	_, code := drv.List("OLD", false)
	assert.Equal(t, vfserrors.NotFound, code)

	_, code = drv.List("NEW", false)
	assert.True(t, code.Ok())
}

func TestRemoveFileAndDir(t *testing.T) {
	drv := mustMount(t, 2000, 0)
	require.True(t, drv.Mkdir("BANK").Ok())
	require.True(t, drv.Ftruncate("BANK/SND1", 1000).Ok())

	require.True(t, drv.Remove("BANK/SND1").Ok())
	_, code := drv.List("BANK/SND1", false)
	assert.Equal(t, vfserrors.NotFound, code)

	require.True(t, drv.Remove("BANK").Ok())
	_, code = drv.List("BANK", false)
	assert.Equal(t, vfserrors.NotFound, code)
}

func TestRemoveRecursivelyClearsDirectoryContents(t *testing.T) {
	drv := mustMount(t, 2000, 0)
	require.True(t, drv.Mkdir("BANK").Ok())
	require.True(t, drv.Ftruncate("BANK/SND1", 100).Ok())
	require.True(t, drv.Ftruncate("BANK/SND2", 100).Ok())

	require.True(t, drv.Remove("BANK").Ok())

	entries, code := drv.List("", false)
	require.True(t, code.Ok())
	assert.Empty(t, entries)
}

func TestFsckCleanVolumeIsIdempotent(t *testing.T) {
	drv := mustMount(t, 2000, 0)
	require.True(t, drv.Mkdir("BANK").Ok())
	require.True(t, drv.Ftruncate("BANK/SND1", 10000).Ok())

	status, err := drv.Fsck()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), status)

	status, err = drv.Fsck()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), status)
}
