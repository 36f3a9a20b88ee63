// Package testfixture builds in-memory EMU3 volumes for tests, the way
// dargueta-disko's testing package loads compressed reference images — but
// since no captured EMU3 image ships with this repo, NewVolume formats a
// fresh one with emu3.Mkfs instead of decompressing a fixture on disk.
package testfixture

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/FireNX70/sampler-file-manager-sub000/emu3"
)

// NewVolume formats and returns a fresh in-memory EMU3 volume backed by a
// bytesextra read-write-seeker.
func NewVolume(t *testing.T, totalBlocks uint32, clusterShift uint8) io.ReadWriteSeeker {
	t.Helper()

	buf := make([]byte, uint64(totalBlocks)*emu3.BlockSize)
	stream := bytesextra.NewReadWriteSeeker(buf)

	code := emu3.Mkfs(stream, emu3.MkfsOptions{
		TotalBlocks:  totalBlocks,
		ClusterShift: clusterShift,
	})
	require.True(t, code.Ok(), "Mkfs failed: %v", code)

	return stream
}

// NewVolumeFromGeometry formats a fresh volume using a predefined disk
// geometry, for tests that care about realistic capacities.
func NewVolumeFromGeometry(t *testing.T, slug string) io.ReadWriteSeeker {
	t.Helper()

	geometry, err := emu3.GetPredefinedDiskGeometry(slug)
	require.NoError(t, err)

	return NewVolume(t, geometry.TotalBlocks, geometry.ClusterShift)
}
