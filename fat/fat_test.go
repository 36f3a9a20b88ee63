package fat

import (
	"testing"

	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emu3-shaped engine used throughout: FREE=0, DATA=[1,0x7FFE], EOC=0x7FFF,
// RESERVED=0x8000.
func testEngine() Engine[uint16] {
	return New[uint16](0, 1, 0x7FFE, 0x7FFF, 0x8000)
}

func TestCountFree(t *testing.T) {
	e := testEngine()
	table := []uint16{0x8000, 0, 0, 2, 0x7FFF, 0}
	assert.Equal(t, uint16(3), e.CountFree(table, uint16(len(table))))
}

func TestGetNthWalksChain(t *testing.T) {
	e := testEngine()
	table := []uint16{0x8000, 2, 3, 0x7FFF, 0}
	start := uint16(1)
	code := e.GetNth(table, uint16(len(table)), &start, 2)
	require.Zero(t, code)
	assert.Equal(t, uint16(3), start)
}

func TestGetNthBadStart(t *testing.T) {
	e := testEngine()
	table := []uint16{0x8000, 2, 3, 0x7FFF, 0}
	start := uint16(0) // RESERVED cell, not a valid chain start
	code := e.GetNth(table, uint16(len(table)), &start, 1)
	assert.Equal(t, vfserrors.BadStart, code)
}

func TestFollowExcludesTerminator(t *testing.T) {
	e := testEngine()
	table := []uint16{0x8000, 2, 3, 0x7FFF, 0}
	chain, code := e.Follow(table, uint16(len(table)), 1)
	require.Zero(t, code)
	assert.Equal(t, []uint16{1, 2, 3}, chain)
}

func TestFindNextFreeSkipsOccupied(t *testing.T) {
	e := testEngine()
	table := []uint16{0x8000, 2, 0, 0x7FFF, 0}
	assert.Equal(t, uint16(2), e.FindNextFree(table, uint16(len(table)), 1))
}

func TestFindNextFreeExhausted(t *testing.T) {
	e := testEngine()
	table := []uint16{0x8000, 2, 3, 0x7FFF}
	assert.Equal(t, e.EndOfChain, e.FindNextFree(table, uint16(len(table)), 1))
}

func TestFindFreeChainAccumulates(t *testing.T) {
	e := testEngine()
	table := []uint16{0x8000, 0, 0, 0, 0}
	var chain []uint16
	code := e.FindFreeChain(table, uint16(len(table)), 3, &chain)
	require.Zero(t, code)
	assert.Equal(t, []uint16{1, 2, 3}, chain)
}

func TestFindFreeChainNoFreeClusters(t *testing.T) {
	e := testEngine()
	table := []uint16{0x8000, 2, 0x7FFF}
	var chain []uint16
	code := e.FindFreeChain(table, uint16(len(table)), 5, &chain)
	assert.Equal(t, vfserrors.NoFreeClusters, code)
}

func TestWriteChainThenFollowRoundtrips(t *testing.T) {
	e := testEngine()
	table := make([]uint16, 8)
	chain := []uint16{1, 3, 5}
	code := e.WriteChain(table, uint16(len(table)), chain)
	require.Zero(t, code)

	got, code := e.Follow(table, uint16(len(table)), 1)
	require.Zero(t, code)
	assert.Equal(t, chain, got)
	assert.Equal(t, e.EndOfChain, table[5])
}

func TestFreeChainClearsCells(t *testing.T) {
	e := testEngine()
	table := make([]uint16, 8)
	chain := []uint16{1, 3, 5}
	require.Zero(t, e.WriteChain(table, uint16(len(table)), chain))

	code := e.FreeChain(table, uint16(len(table)), chain)
	require.Zero(t, code)
	for _, c := range chain {
		assert.Equal(t, e.Free, table[c])
	}
}

func TestShrinkChainTruncatesAndFrees(t *testing.T) {
	e := testEngine()
	table := make([]uint16, 8)
	chain := []uint16{1, 3, 5, 7}
	require.Zero(t, e.WriteChain(table, uint16(len(table)), chain))

	code := e.ShrinkChain(table, uint16(len(table)), chain, 2)
	require.Zero(t, code)
	assert.Equal(t, e.EndOfChain, table[3])
	assert.Equal(t, e.Free, table[5])
	assert.Equal(t, e.Free, table[7])
}

func TestGetNextOrFreeReturnsAllocWhenAtEnd(t *testing.T) {
	e := testEngine()
	table := []uint16{0x8000, 0x7FFF, 0, 0}
	next, code := e.GetNextOrFree(table, uint16(len(table)), 1, 2)
	assert.Equal(t, vfserrors.Alloc, code)
	assert.Equal(t, uint16(2), next)
}

// fakeStore is a minimal in-memory Store used to exercise the stream-backed
// mirror of each operation against the same fixtures as the array form.
type fakeStore struct {
	cells []uint16
}

func (s *fakeStore) ReadAt(idx uint16) (uint16, error) { return s.cells[idx], nil }
func (s *fakeStore) WriteAt(idx uint16, v uint16) error {
	s.cells[idx] = v
	return nil
}
func (s *fakeStore) Len() uint16 { return uint16(len(s.cells)) }

func TestStreamFormMatchesArrayForm(t *testing.T) {
	e := testEngine()
	store := &fakeStore{cells: make([]uint16, 8)}
	chain := []uint16{1, 3, 5}

	code, err := e.WriteChainStream(store, chain)
	require.NoError(t, err)
	require.Zero(t, code)

	got, code, err := e.FollowStream(store, 1)
	require.NoError(t, err)
	require.Zero(t, code)
	assert.Equal(t, chain, got)

	free, err := e.CountFreeStream(store)
	require.NoError(t, err)
	assert.Equal(t, uint16(4), free) // 7 data cells - 3 in chain
}

func TestExtendChainWritesThrough(t *testing.T) {
	e := testEngine()
	mirror := make([]uint16, 8)
	store := &fakeStore{cells: make([]uint16, 8)}
	mirror[1] = e.EndOfChain
	require.NoError(t, store.WriteAt(1, e.EndOfChain))

	code := e.ExtendChain(mirror, uint16(len(mirror)), store, 1, 4)
	require.Zero(t, code)
	assert.Equal(t, uint16(4), mirror[1])
	assert.Equal(t, e.EndOfChain, mirror[4])

	storedNext, err := store.ReadAt(1)
	require.NoError(t, err)
	assert.Equal(t, uint16(4), storedNext)
}
