package emu3

import (
	"encoding/binary"
	"io"
	"log/slog"
	"sync"

	bitmap "github.com/boljen/go-bitmap"
	"github.com/FireNX70/sampler-file-manager-sub000/fat"
	"github.com/FireNX70/sampler-file-manager-sub000/internal/diskio"
	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// engine is the generic FAT chain engine instantiated with EMU3's u16
// sentinels, shared by every mounted Driver.
var engine = fat.New[uint16](fatFree, fatDataMin, fatDataMax, fatEndOfChain, fatReserved)

// MountOptions configures Mount.
type MountOptions struct {
	ReadOnly bool
	Logger   *slog.Logger
}

// dirHandle is the open-file-table entry for a directory: a heap-allocated
// struct referenced by pointer from the map, so rehashing openDirs never
// invalidates a handle a caller is holding (spec §9's stable-handle note).
type dirHandle struct {
	name     string
	refcount int
}

// fileHandle is the open-file-table entry for a file, keyed by
// "<dirname>/<bank_num_decimal>". It back-points to its directory's handle
// so Close can decrement and GC both.
type fileHandle struct {
	dirKey    string
	dir       *dirHandle
	dirName   string
	bankNum   byte
	name      string
	refcount  int
}

// Driver is a mounted EMU3 volume: it exclusively owns its stream, FAT
// mirror, superblock and open-file table (spec §3's ownership rules).
type Driver struct {
	mu       sync.Mutex
	image    *diskio.Image
	log      *slog.Logger
	readOnly bool

	superblock Superblock

	fatMirror       []uint16
	freeClusters    uint16
	dirContentMap   bitmap.Bitmap
	nextFileListBlk uint16

	openDirs  map[string]*dirHandle
	openFiles map[string]*fileHandle
}

// Mount validates the superblock, loads the FAT mirror and the directory
// content-block bitmap, and returns a ready-to-use Driver.
func Mount(stream io.ReadWriteSeeker, opts MountOptions) (*Driver, vfserrors.Code) {
	img := diskio.NewImage(stream)

	block0, err := img.ReadBlocks(0, 1)
	if err != nil {
		return nil, vfserrors.CantOpenDisk
	}
	if !HasValidMagic(block0) {
		return nil, vfserrors.WrongFS
	}

	sb := UnpackSuperblock(block0)
	if code := validateSuperblock(sb); code != 0 {
		return nil, code
	}

	totalBlocks, err := img.TotalBlocks()
	if err != nil {
		return nil, vfserrors.CantOpenDisk
	}
	if totalBlocks < sb.BlockCnt {
		return nil, vfserrors.DiskTooSmall
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Driver{
		image:      img,
		log:        logger,
		readOnly:   opts.ReadOnly,
		superblock: sb,
		openDirs:   make(map[string]*dirHandle),
		openFiles:  make(map[string]*fileHandle),
	}

	if code := d.loadFAT(); code != 0 {
		return nil, code
	}
	if code := d.loadDirContentMap(); code != 0 {
		return nil, code
	}

	block1, err := img.ReadBlocks(1, 1)
	if err == nil {
		d.nextFileListBlk = binary.LittleEndian.Uint16(block1)
	}

	logger.Info("mounted emu3 volume",
		"block_cnt", sb.BlockCnt, "cluster_cnt", sb.ClusterCnt, "read_only", opts.ReadOnly)
	return d, 0
}

func (d *Driver) Lock()   { d.mu.Lock() }
func (d *Driver) Unlock() { d.mu.Unlock() }

func (d *Driver) OpenFileCount() int {
	total := 0
	for _, f := range d.openFiles {
		total += f.refcount
	}
	return total
}

func (d *Driver) fatLen() uint16 {
	return d.superblock.ClusterCnt + 1
}

func (d *Driver) loadFAT() vfserrors.Code {
	sb := d.superblock
	raw, err := d.image.ReadBlocks(diskio.Block(sb.FATBlkAddr), sb.FATBlkCnt)
	if err != nil {
		return vfserrors.IOError
	}

	length := d.fatLen()
	expectedBlocks := (uint32(length)*2 + BlockSize - 1) / BlockSize
	if expectedBlocks > sb.FATBlkCnt {
		return vfserrors.BadFATBlkCnt
	}

	mirror := make([]uint16, length)
	for i := range mirror {
		mirror[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	d.fatMirror = mirror
	d.freeClusters = engine.CountFree(mirror, length)
	return 0
}

func (d *Driver) writeFATCell(idx uint16, value uint16) vfserrors.Code {
	d.fatMirror[idx] = value

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

// loadDirContentMap walks every directory entry's content-block pointers and
// marks the corresponding bits, per spec §3's dir_content_block_map
// definition.
func (d *Driver) loadDirContentMap() vfserrors.Code {
	sb := d.superblock
	poolLen := sb.FileListBlkCnt
	if limit := sb.DirListBlkCnt * dirEntriesPerBlock * maxContentBlocksPerDir; limit < poolLen {
		poolLen = limit
	}
	d.dirContentMap = bitmap.New(int(poolLen))

	dirs, code := d.readDirTable()
	if code != 0 {
		return code
	}
	for _, entry := range dirs {
		if !entry.IsValid() {
			continue
		}
		for _, cb := range entry.ContentBlocks {
			if cb == 0xFFFF {
				continue
			}
			if uint32(cb) < poolLen {
				d.dirContentMap.Set(int(cb), true)
			}
		}
	}
	d.nextFileListBlk = d.computeNextFileListBlk()
	return 0
}

func (d *Driver) computeNextFileListBlk() uint16 {
	poolLen := d.dirContentMap.Len()
	for i := 0; i < poolLen; i++ {
		if !d.dirContentMap.Get(i) {
			return uint16(i)
		}
	}
	return uint16(poolLen)
}

// readDirTable reads every directory entry in the root directory table.
func (d *Driver) readDirTable() ([]DirEntry, vfserrors.Code) {
	sb := d.superblock
	raw, err := d.image.ReadBlocks(diskio.Block(sb.DirListBlkAddr), sb.DirListBlkCnt)
	if err != nil {
		return nil, vfserrors.IOError
	}

	count := int(sb.DirListBlkCnt) * dirEntriesPerBlock
	out := make([]DirEntry, count)
	for i := 0; i < count; i++ {
		var raw32 [dirEntrySize]byte
		copy(raw32[:], raw[i*dirEntrySize:(i+1)*dirEntrySize])
		out[i] = UnpackDirEntry(raw32)
	}
	return out, 0
}

func (d *Driver) writeDirEntry(index int, entry DirEntry) vfserrors.Code {
	packed := PackDirEntry(entry)
	blockIdx := index / dirEntriesPerBlock
	within := (index % dirEntriesPerBlock) * dirEntrySize

	blockAddr := diskio.Block(d.superblock.DirListBlkAddr) + diskio.Block(blockIdx)
	block, err := d.image.ReadBlocks(blockAddr, 1)
	if err != nil {
		return vfserrors.IOError
	}
	copy(block[within:within+dirEntrySize], packed[:])
	if err := d.image.WriteAt(blockAddr, block); err != nil {
		return vfserrors.IOError
	}
	return 0
}

// readFileBlock reads the 16 file entries stored in content block cb (an
// index into the file-list pool, not an absolute block number).
func (d *Driver) readFileBlock(cb uint16) ([]FileEntry, vfserrors.Code) {
	blockAddr := diskio.Block(d.superblock.FileListBlkAddr) + diskio.Block(cb)
	raw, err := d.image.ReadBlocks(blockAddr, 1)
	if err != nil {
		return nil, vfserrors.IOError
	}

	out := make([]FileEntry, fileEntriesPerBlock)
	for i := 0; i < fileEntriesPerBlock; i++ {
		var raw32 [fileEntrySize]byte
		copy(raw32[:], raw[i*fileEntrySize:(i+1)*fileEntrySize])
		out[i] = UnpackFileEntry(raw32)
	}
	return out, 0
}

func (d *Driver) writeFileEntry(cb uint16, slot int, entry FileEntry) vfserrors.Code {
	packed := PackFileEntry(entry)
	blockAddr := diskio.Block(d.superblock.FileListBlkAddr) + diskio.Block(cb)
	within := slot * fileEntrySize

	block, err := d.image.ReadBlocks(blockAddr, 1)
	if err != nil {
		return vfserrors.IOError
	}
	copy(block[within:within+fileEntrySize], packed[:])
	if err := d.image.WriteAt(blockAddr, block); err != nil {
		return vfserrors.IOError
	}
	return 0
}

func (d *Driver) persistNextFileListBlk() vfserrors.Code {
	block, err := d.image.ReadBlocks(1, 1)
	if err != nil {
		return vfserrors.IOError
	}
	binary.LittleEndian.PutUint16(block, d.nextFileListBlk)
	if err := d.image.WriteAt(1, block); err != nil {
		return vfserrors.IOError
	}
	return 0
}
