// Package diskio contains fundamental block/cluster addressing types shared
// across drivers, plus a thin block-addressed wrapper around an
// io.ReadWriteSeeker image.
package diskio

import (
	"fmt"
	"io"
)

// Block is the index of a fixed-size block on an image, counting from 0.
type Block uint32

// Cluster is the index of an allocation unit within a FAT chain.
type Cluster uint16

// BlockSize is the fixed block size used by every driver in this module.
const BlockSize = 512

// Image is a block-addressed view over a raw byte stream. All drivers read
// and write their metadata through an Image rather than touching the
// underlying stream directly, so bounds checks happen in one place.
type Image struct {
	stream io.ReadWriteSeeker
}

// NewImage wraps stream as a block-addressed image.
func NewImage(stream io.ReadWriteSeeker) *Image {
	return &Image{stream: stream}
}

// ReadBlocks reads count blocks starting at block index start into a
// freshly-allocated buffer.
func (img *Image) ReadBlocks(start Block, count uint32) ([]byte, error) {
	buf := make([]byte, uint64(count)*BlockSize)
	if err := img.ReadAt(start, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadAt fills buf (which must be a multiple of BlockSize) starting at block
// index start.
func (img *Image) ReadAt(start Block, buf []byte) error {
	if len(buf)%BlockSize != 0 {
		return fmt.Errorf("diskio: buffer length %d is not a multiple of block size %d", len(buf), BlockSize)
	}
	if _, err := img.stream.Seek(int64(start)*BlockSize, io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(img.stream, buf)
	return err
}

// WriteAt writes buf (which must be a multiple of BlockSize) starting at
// block index start.
func (img *Image) WriteAt(start Block, buf []byte) error {
	if len(buf)%BlockSize != 0 {
		return fmt.Errorf("diskio: buffer length %d is not a multiple of block size %d", len(buf), BlockSize)
	}
	if _, err := img.stream.Seek(int64(start)*BlockSize, io.SeekStart); err != nil {
		return err
	}
	_, err := img.stream.Write(buf)
	return err
}

// ByteStream exposes the image as a raw, unaligned byte-addressed seeker, for
// components (like the cluster data section) that need arbitrary offsets
// rather than whole blocks.
func (img *Image) ByteStream() io.ReadWriteSeeker {
	return img.stream
}

// TotalBlocks returns the number of whole blocks in the underlying stream.
func (img *Image) TotalBlocks() (uint32, error) {
	size, err := img.stream.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	return uint32(size / BlockSize), nil
}
