package emu3

import (
	"bytes"
	"encoding/binary"

	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
	"github.com/noxer/bytewriter"
)

// packName pads/truncates name to the fixed 16-byte on-disk field. Per spec
// §4.B the slash remap is read-side only; packing never rewrites bytes the
// caller gave it.
func packName(name string) [nameFieldSize]byte {
	var buf [nameFieldSize]byte
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf[:], name)
	return buf
}

// unpackName trims trailing padding and remaps '/' to '\\', matching the
// read-time transformation in spec §4.B ("writers apply no inverse remap").
func unpackName(raw [nameFieldSize]byte) string {
	trimmed := bytes.TrimRight(raw[:], " \x00")
	remapped := bytes.ReplaceAll(trimmed, []byte("/"), []byte(`\`))
	return string(remapped)
}

// PackSuperblock packs sb into a 512-byte block, recomputing the checksum at
// offset 510. Callers never set the checksum themselves.
func PackSuperblock(sb Superblock) []byte {
	buf := make([]byte, BlockSize)
	w := bytewriter.New(buf)

	w.Write([]byte(magic))
	binary.Write(w, binary.LittleEndian, sb.BlockCnt)
	binary.Write(w, binary.LittleEndian, sb.DirListBlkAddr)
	binary.Write(w, binary.LittleEndian, sb.DirListBlkCnt)
	binary.Write(w, binary.LittleEndian, sb.FileListBlkAddr)
	binary.Write(w, binary.LittleEndian, sb.FileListBlkCnt)
	binary.Write(w, binary.LittleEndian, sb.FATBlkAddr)
	binary.Write(w, binary.LittleEndian, sb.FATBlkCnt)
	binary.Write(w, binary.LittleEndian, sb.DataSctnBlkAddr)
	binary.Write(w, binary.LittleEndian, sb.ClusterCnt)
	binary.Write(w, binary.LittleEndian, sb.ClusterShift)

	checksum := superblockChecksum(buf)
	binary.LittleEndian.PutUint16(buf[superblockChecksumOffset:], checksum)
	return buf
}

// superblockChecksum is the additive sum of every u16 word in [0, 510).
func superblockChecksum(buf []byte) uint16 {
	var sum uint16
	for i := 0; i < superblockChecksumOffset; i += 2 {
		sum += binary.LittleEndian.Uint16(buf[i:])
	}
	return sum
}

// UnpackSuperblock parses a 512-byte block into a Superblock. It does not
// itself validate the magic or checksum; callers (Mount, Fsck) do that
// explicitly since the two care about different failure handling.
func UnpackSuperblock(buf []byte) Superblock {
	r := bytes.NewReader(buf[len(magic):])
	var sb Superblock
	binary.Read(r, binary.LittleEndian, &sb.BlockCnt)
	binary.Read(r, binary.LittleEndian, &sb.DirListBlkAddr)
	binary.Read(r, binary.LittleEndian, &sb.DirListBlkCnt)
	binary.Read(r, binary.LittleEndian, &sb.FileListBlkAddr)
	binary.Read(r, binary.LittleEndian, &sb.FileListBlkCnt)
	binary.Read(r, binary.LittleEndian, &sb.FATBlkAddr)
	binary.Read(r, binary.LittleEndian, &sb.FATBlkCnt)
	binary.Read(r, binary.LittleEndian, &sb.DataSctnBlkAddr)
	binary.Read(r, binary.LittleEndian, &sb.ClusterCnt)
	binary.Read(r, binary.LittleEndian, &sb.ClusterShift)
	return sb
}

// HasValidMagic reports whether buf starts with "EMU3".
func HasValidMagic(buf []byte) bool {
	return len(buf) >= len(magic) && string(buf[:len(magic)]) == magic
}

// HasValidChecksum reports whether the stored checksum matches the computed
// one.
func HasValidChecksum(buf []byte) bool {
	stored := binary.LittleEndian.Uint16(buf[superblockChecksumOffset:])
	return stored == superblockChecksum(buf)
}

// PackDirEntry packs a DirEntry into its 32-byte on-disk form.
func PackDirEntry(e DirEntry) [dirEntrySize]byte {
	var out [dirEntrySize]byte
	w := bytewriter.New(out[:])
	name := packName(e.Name)
	w.Write(name[:])
	w.Write([]byte{0}) // unused
	w.Write([]byte{e.Type})
	for _, cb := range e.ContentBlocks {
		binary.Write(w, binary.LittleEndian, cb)
	}
	return out
}

// UnpackDirEntry parses a 32-byte on-disk directory entry, remapping '/' in
// the name to '\\'.
func UnpackDirEntry(buf [dirEntrySize]byte) DirEntry {
	var name [nameFieldSize]byte
	copy(name[:], buf[:nameFieldSize])

	var e DirEntry
	e.Name = unpackName(name)
	e.Type = buf[nameFieldSize+1]

	r := bytes.NewReader(buf[nameFieldSize+2:])
	for i := range e.ContentBlocks {
		binary.Read(r, binary.LittleEndian, &e.ContentBlocks[i])
	}
	return e
}

// PackFileEntry packs a FileEntry into its 32-byte on-disk form.
func PackFileEntry(e FileEntry) [fileEntrySize]byte {
	var out [fileEntrySize]byte
	w := bytewriter.New(out[:])
	name := packName(e.Name)
	w.Write(name[:])
	w.Write([]byte{0}) // unused
	w.Write([]byte{e.BankNum})
	binary.Write(w, binary.LittleEndian, e.StartCluster)
	binary.Write(w, binary.LittleEndian, e.ClusterCnt)
	binary.Write(w, binary.LittleEndian, e.BlockCnt)
	binary.Write(w, binary.LittleEndian, e.ByteCnt)
	w.Write([]byte{e.Type})
	w.Write(e.Properties[:])
	return out
}

// UnpackFileEntry parses a 32-byte on-disk file entry, remapping '/' in the
// name to '\\'.
func UnpackFileEntry(buf [fileEntrySize]byte) FileEntry {
	var name [nameFieldSize]byte
	copy(name[:], buf[:nameFieldSize])

	var e FileEntry
	e.Name = unpackName(name)
	e.BankNum = buf[nameFieldSize+1]

	r := bytes.NewReader(buf[nameFieldSize+2:])
	binary.Read(r, binary.LittleEndian, &e.StartCluster)
	binary.Read(r, binary.LittleEndian, &e.ClusterCnt)
	binary.Read(r, binary.LittleEndian, &e.BlockCnt)
	binary.Read(r, binary.LittleEndian, &e.ByteCnt)

	e.Type = buf[nameFieldSize+2+8]
	copy(e.Properties[:], buf[nameFieldSize+2+8+1:])
	return e
}

// validateSuperblock runs Mount's superblock bounds checks; Fsck clamps the
// same fields itself instead of calling it (ground: original_source/src/E-MU/fs_common.hpp's calc_cluster_size,
// is_valid_dir, is_valid_file helpers).
func validateSuperblock(sb Superblock) vfserrors.Code {
	if sb.ClusterShift > 9 {
		return vfserrors.BadClusterCnt
	}
	if sb.ClusterCnt == 0 || uint32(sb.ClusterCnt)+1 > fatEndOfChain {
		return vfserrors.BadClusterCnt
	}
	return 0
}
