// Package vfserrors defines the stable 16-bit error codes shared by every
// driver and by the VFS dispatch layer. A code packs a library ID in the high
// byte and an error number in the low byte; zero always means success.
package vfserrors

import "fmt"

// Library identifies which subsystem defines an error number. Error numbers
// are only unique within a library, so a Code always carries both.
type Library uint8

const (
	// LibVFS is the library ID for the VFS dispatch layer and the driver
	// trait shared by every mounted filesystem.
	LibVFS Library = 1
	// LibFAT is the library ID for the generic FAT chain engine.
	LibFAT Library = 2
	// LibEMU3 is the library ID for the EMU3 driver.
	LibEMU3 Library = 3
)

func (l Library) String() string {
	switch l {
	case LibVFS:
		return "VFS"
	case LibFAT:
		return "FAT"
	case LibEMU3:
		return "EMU3"
	default:
		return fmt.Sprintf("lib(%d)", uint8(l))
	}
}

// Code is a 16-bit error code: (library << 8) | errno. The zero Code means
// success and Code.Error() must never be called on it in normal control flow
// (callers are expected to check Code == 0 first).
type Code uint16

// New packs a library ID and an error number into a Code.
func New(lib Library, errno uint8) Code {
	return Code(uint16(lib)<<8 | uint16(errno))
}

// Library returns the library ID encoded in the high byte.
func (c Code) Library() Library {
	return Library(c >> 8)
}

// Errno returns the low-byte error number.
func (c Code) Errno() uint8 {
	return uint8(c & 0xFF)
}

// Ok reports whether the code represents success (0).
func (c Code) Ok() bool {
	return c == 0
}

func (c Code) Error() string {
	if c == 0 {
		return "success"
	}
	if msg, ok := messages[c]; ok {
		return msg
	}
	return fmt.Sprintf("%s error 0x%02x", c.Library(), c.Errno())
}

// Is allows errors.Is(err, vfserrors.NotFound) style comparisons.
func (c Code) Is(target error) bool {
	other, ok := target.(Code)
	if !ok {
		return false
	}
	return c == other
}

////////////////////////////////////////////////////////////////////////////
// Library VFS

const (
	errNonexistantDisk uint8 = iota + 1
	errDiskTooSmall
	errCantOpenDisk
	errIOError
	errWrongFS
	errNotFound
	errInvalidPath
	errNotAFile
	errNotADir
	errFileTooLarge
	errNoSpaceLeft
	errUnsupportedOperation
	errAlreadyOpen
	errAlreadyExists
	errEndOfFile
	errInvalidState
	errNotEmpty
	errCantRemove
	errCantMove
	errFSBusy
	errFailedToOpenFile
	errUnknownError
	errNoPerm
)

var (
	NonexistantDisk      = New(LibVFS, errNonexistantDisk)
	DiskTooSmall         = New(LibVFS, errDiskTooSmall)
	CantOpenDisk         = New(LibVFS, errCantOpenDisk)
	IOError              = New(LibVFS, errIOError)
	WrongFS              = New(LibVFS, errWrongFS)
	NotFound             = New(LibVFS, errNotFound)
	InvalidPath          = New(LibVFS, errInvalidPath)
	NotAFile             = New(LibVFS, errNotAFile)
	NotADir              = New(LibVFS, errNotADir)
	FileTooLarge         = New(LibVFS, errFileTooLarge)
	NoSpaceLeft          = New(LibVFS, errNoSpaceLeft)
	UnsupportedOperation = New(LibVFS, errUnsupportedOperation)
	AlreadyOpen          = New(LibVFS, errAlreadyOpen)
	AlreadyExists        = New(LibVFS, errAlreadyExists)
	EndOfFile            = New(LibVFS, errEndOfFile)
	InvalidState         = New(LibVFS, errInvalidState)
	NotEmpty             = New(LibVFS, errNotEmpty)
	CantRemove           = New(LibVFS, errCantRemove)
	CantMove             = New(LibVFS, errCantMove)
	FSBusy               = New(LibVFS, errFSBusy)
	FailedToOpenFile     = New(LibVFS, errFailedToOpenFile)
	// UnknownError is returned only by the host driver, for OS errors it
	// can't classify any other way.
	UnknownError = New(LibVFS, errUnknownError)
	// NoPerm is returned only by the host driver, mapped from os.ErrPermission.
	NoPerm = New(LibVFS, errNoPerm)
)

////////////////////////////////////////////////////////////////////////////
// Library FAT

const (
	errBadStart uint8 = iota + 1
	errChainOOB
	errNoFreeClusters
	errEmptyChain
	errChainTooLarge
	errFATIOError
	errEndOfChain
	errAlloc
	errBadNextCls
)

var (
	BadStart       = New(LibFAT, errBadStart)
	ChainOOB       = New(LibFAT, errChainOOB)
	NoFreeClusters = New(LibFAT, errNoFreeClusters)
	EmptyChain     = New(LibFAT, errEmptyChain)
	ChainTooLarge  = New(LibFAT, errChainTooLarge)
	FATIOError     = New(LibFAT, errFATIOError)
	EndOfChain     = New(LibFAT, errEndOfChain)
	Alloc          = New(LibFAT, errAlloc)
	BadNextCluster = New(LibFAT, errBadNextCls)
)

////////////////////////////////////////////////////////////////////////////
// Library EMU3

const (
	errBadClusterCnt uint8 = iota + 1
	errBadFATBlkCnt
	errBadFileListAddrOrCnt
	errTryGrowDir
	errDirSizeMaxed
	errFoundInMap
)

var (
	BadClusterCnt        = New(LibEMU3, errBadClusterCnt)
	BadFATBlkCnt         = New(LibEMU3, errBadFATBlkCnt)
	BadFileListAddrOrCnt = New(LibEMU3, errBadFileListAddrOrCnt)
	TryGrowDir           = New(LibEMU3, errTryGrowDir)
	DirSizeMaxed         = New(LibEMU3, errDirSizeMaxed)
	FoundInMap           = New(LibEMU3, errFoundInMap)
)

var messages = map[Code]string{
	NonexistantDisk:      "disk image does not exist",
	DiskTooSmall:         "disk image is too small for this file system",
	CantOpenDisk:         "can't open disk image",
	IOError:              "input/output error",
	WrongFS:              "wrong file system type",
	NotFound:             "no such file or directory",
	InvalidPath:          "invalid path",
	NotAFile:             "not a file",
	NotADir:              "not a directory",
	FileTooLarge:         "file too large",
	NoSpaceLeft:          "no space left on device",
	UnsupportedOperation: "unsupported operation",
	AlreadyOpen:          "already open",
	AlreadyExists:        "already exists",
	EndOfFile:            "end of file",
	InvalidState:         "invalid state",
	NotEmpty:             "directory not empty",
	CantRemove:           "can't remove",
	CantMove:             "can't move",
	FSBusy:               "file system busy",
	FailedToOpenFile:     "failed to open file",
	UnknownError:         "unknown error",
	NoPerm:               "permission denied",

	BadStart:       "bad chain start",
	ChainOOB:       "chain link out of bounds",
	NoFreeClusters: "no free clusters",
	EmptyChain:     "empty chain",
	ChainTooLarge:  "chain too large",
	FATIOError:     "FAT input/output error",
	EndOfChain:     "end of chain",
	Alloc:          "allocation needed",
	BadNextCluster: "bad next cluster",

	BadClusterCnt:        "bad cluster count",
	BadFATBlkCnt:         "bad FAT block count",
	BadFileListAddrOrCnt: "bad file list address or count",
	TryGrowDir:           "directory needs to grow",
	DirSizeMaxed:         "directory has reached its maximum size",
	FoundInMap:           "entry already present in open-file map",
}
