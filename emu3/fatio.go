package emu3

import (
	"encoding/binary"

	"github.com/FireNX70/sampler-file-manager-sub000/internal/diskio"
	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// writeFATCellDisk persists d.fatMirror[idx] (already updated by an
// in-memory fat.Engine call) to the on-disk FAT, without touching the
// mirror again. Used after WriteChain/FreeChain/ShrinkChain mutate the
// mirror slice directly.
func (d *Driver) writeFATCellDisk(idx uint16) vfserrors.Code {
	value := d.fatMirror[idx]
	byteOffset := int64(idx) * 2
	blockOffset := diskio.Block(d.superblock.FATBlkAddr) + diskio.Block(byteOffset/BlockSize)
	within := byteOffset % BlockSize

	block, err := d.image.ReadBlocks(blockOffset, 1)
	if err != nil {
		return vfserrors.FATIOError
	}
	binary.LittleEndian.PutUint16(block[within:], value)
	if err := d.image.WriteAt(blockOffset, block); err != nil {
		return vfserrors.FATIOError
	}
	return 0
}

// persistChain writes every cell of chain (plus its terminator cell), and is
// used after WriteChain/FreeChain/ShrinkChain touch the in-memory mirror so
// the disk stays in lockstep, per spec §3 invariant 1.
func (d *Driver) persistChain(chain []uint16) vfserrors.Code {
	for _, idx := range chain {
		if code := d.writeFATCellDisk(idx); code != 0 {
			return code
		}
	}
	return 0
}

// allocateChain finds and writes a fresh chain of `need` clusters, updating
// free_clusters and persisting every touched cell.
func (d *Driver) allocateChain(need int) ([]uint16, vfserrors.Code) {
	var chain []uint16
	if code := engine.FindFreeChain(d.fatMirror, d.fatLen(), need, &chain); code != 0 {
		return nil, code
	}
	if code := engine.WriteChain(d.fatMirror, d.fatLen(), chain); code != 0 {
		return nil, code
	}
	if code := d.persistChain(chain); code != 0 {
		return nil, code
	}
	d.freeClusters -= uint16(len(chain))
	return chain, 0
}

// freeChain frees every cluster in chain and updates free_clusters.
func (d *Driver) freeChain(chain []uint16) vfserrors.Code {
	if len(chain) == 0 {
		return 0
	}
	if code := engine.FreeChain(d.fatMirror, d.fatLen(), chain); code != 0 {
		return code
	}
	if code := d.persistChain(chain); code != 0 {
		return code
	}
	d.freeClusters += uint16(len(chain))
	return 0
}

// shrinkChain keeps chain[:keep], freeing the rest.
func (d *Driver) shrinkChain(chain []uint16, keep int) vfserrors.Code {
	if keep >= len(chain) {
		return 0
	}
	freed := len(chain) - keep
	if code := engine.ShrinkChain(d.fatMirror, d.fatLen(), chain, keep); code != 0 {
		return code
	}
	touched := chain[max(keep-1, 0):]
	if code := d.persistChain(touched); code != 0 {
		return code
	}
	d.freeClusters += uint16(freed)
	return 0
}

// extendChainBy1 extends an existing chain by one fresh cluster via
// find_next_free + extend_chain.
func (d *Driver) extendChainBy1(tail uint16) (uint16, vfserrors.Code) {
	next := engine.FindNextFree(d.fatMirror, d.fatLen(), fatDataMin)
	if next == engine.EndOfChain {
		return 0, vfserrors.NoSpaceLeft
	}

	store := &diskFATStore{driver: d}
	if code := engine.ExtendChain(d.fatMirror, d.fatLen(), store, tail, next); code != 0 {
		return 0, code
	}
	d.freeClusters--
	return next, 0
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// diskFATStore implements fat.Store[uint16] over the on-disk FAT: ReadAt
// reads the disk, not the mirror, and WriteAt writes the disk and then the
// mirror cell. Used by ExtendChain's write-through.
type diskFATStore struct {
	driver *Driver
}

func (s *diskFATStore) ReadAt(idx uint16) (uint16, error) {
	byteOffset := int64(idx) * 2
	blockOffset := diskio.Block(s.driver.superblock.FATBlkAddr) + diskio.Block(byteOffset/BlockSize)
	within := byteOffset % BlockSize

	block, err := s.driver.image.ReadBlocks(blockOffset, 1)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(block[within:]), nil
}

func (s *diskFATStore) WriteAt(idx uint16, value uint16) error {
	byteOffset := int64(idx) * 2
	blockOffset := diskio.Block(s.driver.superblock.FATBlkAddr) + diskio.Block(byteOffset/BlockSize)
	within := byteOffset % BlockSize

	block, err := s.driver.image.ReadBlocks(blockOffset, 1)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(block[within:], value)
	if err := s.driver.image.WriteAt(blockOffset, block); err != nil {
		return err
	}
	s.driver.fatMirror[idx] = value
	return nil
}

func (s *diskFATStore) Len() uint16 {
	return s.driver.fatLen()
}
