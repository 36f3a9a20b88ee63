package emu3_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentWritesToSeparateFiles mirrors the original driver's
// separate_files thread test: several goroutines each own their own stream on
// a distinct file, append a goroutine-specific number of clusters full of a
// goroutine-specific byte value, and a clean fsck must follow.
func TestConcurrentWritesToSeparateFiles(t *testing.T) {
	const streamCnt = 8
	const baseClusters = 4

	drv := mustMount(t, 6000, 0)
	require.True(t, drv.Mkdir("BANK").Ok())

	clusterSize := int(1 << 15) // cluster_shift 0 => 1<<(15+0)

	var wg sync.WaitGroup
	for i := 0; i < streamCnt; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			val := byte(i + 1)
			clusterCnt := int(val) + baseClusters

			drv.Lock()
			stream, code := drv.Fopen("BANK/mt_test_" + indexName(i))
			drv.Unlock()
			require.True(t, code.Ok())
			defer stream.Close()

			cluster := bytes.Repeat([]byte{val}, clusterSize)
			for j := 0; j < clusterCnt; j++ {
				n, writeCode := stream.Write(cluster)
				require.Zero(t, writeCode)
				require.Equal(t, clusterSize, n)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < streamCnt; i++ {
		val := byte(i + 1)
		expectedSize := uint64(clusterSize) * uint64(int(val)+baseClusters)

		entries, code := drv.List("BANK/mt_test_"+indexName(i), false)
		require.True(t, code.Ok())
		require.Len(t, entries, 1)
		assert.Equal(t, expectedSize, entries[0].Size)
	}

	status, err := drv.Fsck()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), status)
}

// TestConcurrentWritesToSameFile mirrors the original driver's same_file
// thread test: several goroutines each hold their own stream on the SAME
// file and race to append clusters. The assertion is limited to the total
// size and a clean fsck, exactly as the original test does ("we don't care
// about file contents").
func TestConcurrentWritesToSameFile(t *testing.T) {
	const streamCnt = 8
	const clusterCnt = 16

	drv := mustMount(t, 6000, 0)
	require.True(t, drv.Mkdir("BANK").Ok())

	clusterSize := int(1 << 15)

	var wg sync.WaitGroup
	for i := 0; i < streamCnt; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			val := byte(i + 1)

			drv.Lock()
			stream, code := drv.Fopen("BANK/mt_test_1")
			drv.Unlock()
			require.True(t, code.Ok())
			defer stream.Close()

			cluster := bytes.Repeat([]byte{val}, clusterSize)
			for j := 0; j < clusterCnt; j++ {
				n, writeCode := stream.Write(cluster)
				require.Zero(t, writeCode)
				require.Equal(t, clusterSize, n)
			}
		}()
	}
	wg.Wait()

	// Every stream starts at position 0 and writes the same CLUSTER_CNT
	// offsets, so the final size converges to one stream's worth of data
	// regardless of how many goroutines raced to write it -- matching the
	// original test's expectation and its "we don't care about file
	// contents" comment.
	entries, code := drv.List("BANK/mt_test_1", false)
	require.True(t, code.Ok())
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(clusterSize*clusterCnt), entries[0].Size)

	status, err := drv.Fsck()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), status)
}

func indexName(i int) string {
	return string(rune('A' + i))
}
