package vfs

import (
	"io"
	"runtime"

	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// FileHandle is the opaque, driver-owned object a Stream positions I/O
// against. A driver's Fopen hands one out from its open-file table; the
// handle's Close decrements the table's refcount.
//
// Ground: dargueta-disko's driver.File wraps an ObjectHandle the same way a
// Stream here wraps a FileHandle — a thin positional layer over a handle the
// driver actually owns.
type FileHandle interface {
	ReadAt(pos int64, p []byte) (int, vfserrors.Code)
	WriteAt(pos int64, p []byte) (int, vfserrors.Code)
	Flush() vfserrors.Code
	Close() vfserrors.Code
}

// Stream is a position-carrying handle over a FileHandle: read, write, seek,
// flush and close, matching spec §4.D. Destruction implies close; a second
// Close returns InvalidState, same as calling any method after Close.
type Stream struct {
	handle FileHandle
	pos    int64
	closed bool
}

// NewStream wraps handle in a fresh Stream positioned at offset 0.
func NewStream(handle FileHandle) *Stream {
	s := &Stream{handle: handle}
	runtime.SetFinalizer(s, (*Stream).Close)
	return s
}

func (s *Stream) Read(p []byte) (int, vfserrors.Code) {
	if s.closed {
		return 0, vfserrors.InvalidState
	}
	n, code := s.handle.ReadAt(s.pos, p)
	s.pos += int64(n)
	return n, code
}

func (s *Stream) Write(p []byte) (int, vfserrors.Code) {
	if s.closed {
		return 0, vfserrors.InvalidState
	}
	n, code := s.handle.WriteAt(s.pos, p)
	s.pos += int64(n)
	return n, code
}

// Seek supports absolute (io.SeekStart) and relative (io.SeekCurrent)
// positioning. "From end" (io.SeekEnd) is unsupported, per spec §4.D.
func (s *Stream) Seek(offset int64, whence int) (int64, vfserrors.Code) {
	if s.closed {
		return 0, vfserrors.InvalidState
	}
	switch whence {
	case io.SeekStart:
		s.pos = offset
	case io.SeekCurrent:
		s.pos += offset
	default:
		return s.pos, vfserrors.UnsupportedOperation
	}
	return s.pos, 0
}

func (s *Stream) Flush() vfserrors.Code {
	if s.closed {
		return vfserrors.InvalidState
	}
	return s.handle.Flush()
}

func (s *Stream) Close() vfserrors.Code {
	if s.closed {
		return vfserrors.InvalidState
	}
	s.closed = true
	return s.handle.Close()
}
