// Package fat implements a generic, FAT-style linked-cluster allocation
// table. It is parameterized over the index width (uint16 or uint32) and
// knows nothing about endianness or on-disk layout by itself -- byte-level
// marshalling for the stream-backed form is handled by a Store
// implementation supplied by the caller, which is where endianness is
// chosen (see [Store]).
//
// CountFree, GetNth, Follow, FindNextFree, FindFreeChain, WriteChain,
// FreeChain and ShrinkChain each exist in two forms with identical
// semantics: one operating on an in-memory []T mirror, and one (the *Stream
// variants) operating through a [Store] that reads/writes a backing byte
// stream directly. GetNextOrFree has only the in-memory form; ExtendChain
// writes through to both a mirror and a Store. The stream form is for
// callers that cannot assume a trustworthy in-memory mirror.
package fat

import (
	"github.com/FireNX70/sampler-file-manager-sub000/vfserrors"
)

// Index is the set of integer widths the engine can be instantiated over.
type Index interface {
	~uint16 | ~uint32
}

// Engine holds the five reserved sentinel values that give meaning to an
// otherwise plain array of indices: which value means "free", which range is
// valid cluster data, which value terminates a chain, and which value marks a
// cell as permanently reserved (never allocatable).
type Engine[T Index] struct {
	Free       T
	DataMin    T
	DataMax    T
	EndOfChain T
	Reserved   T
}

// New builds an Engine with the given reserved values.
func New[T Index](free, dataMin, dataMax, endOfChain, reserved T) Engine[T] {
	return Engine[T]{
		Free:       free,
		DataMin:    dataMin,
		DataMax:    dataMax,
		EndOfChain: endOfChain,
		Reserved:   reserved,
	}
}

// isData reports whether v falls in the valid data-cluster range.
func (e Engine[T]) isData(v T) bool {
	return v >= e.DataMin && v <= e.DataMax
}

////////////////////////////////////////////////////////////////////////////
// In-memory (mirror) form

// CountFree counts cells equal to Free in fat[DataMin:len].
func (e Engine[T]) CountFree(fat []T, length T) T {
	var count T
	for i := e.DataMin; i < length; i++ {
		if fat[i] == e.Free {
			count++
		}
	}
	return count
}

// GetNth walks at most n links from *start, updating *start in place to the
// deepest cell visited.
func (e Engine[T]) GetNth(fat []T, length T, start *T, n T) vfserrors.Code {
	if *start < e.DataMin || *start > e.DataMax || *start >= length {
		return vfserrors.BadStart
	}

	for e.isData(fat[*start]) && n > 0 {
		if fat[*start] >= length {
			return vfserrors.ChainOOB
		}
		*start = fat[*start]
		n--
	}

	if n > 0 {
		return vfserrors.EndOfChain
	}
	return 0
}

// Follow returns the list of clusters in the chain starting at start,
// excluding the terminator.
func (e Engine[T]) Follow(fat []T, length T, start T) ([]T, vfserrors.Code) {
	if start < e.DataMin || start > e.DataMax || start >= length {
		return nil, vfserrors.BadStart
	}

	chain := []T{start}
	for e.isData(fat[chain[len(chain)-1]]) {
		next := fat[chain[len(chain)-1]]
		if next >= length {
			return chain, vfserrors.ChainOOB
		}
		chain = append(chain, next)
	}
	return chain, 0
}

// FindNextFree scans fat[max(offset, DataMin):len) and returns the first
// free index, or EndOfChain if none is found.
func (e Engine[T]) FindNextFree(fat []T, length T, offset T) T {
	if offset < e.DataMin {
		offset = e.DataMin
	}
	for i := offset; i < length; i++ {
		if fat[i] == e.Free {
			return i
		}
	}
	return e.EndOfChain
}

// FindFreeChain appends freshly-found free indices to *chain until it has at
// least need entries. It does not write the FAT.
func (e Engine[T]) FindFreeChain(fat []T, length T, need int, chain *[]T) vfserrors.Code {
	if need <= len(*chain) {
		return 0
	}

	toFind := need - len(*chain)
	last := e.DataMin
	for i := 0; i < toFind; i++ {
		last = e.FindNextFree(fat, length, last)
		if last == e.EndOfChain {
			return vfserrors.NoFreeClusters
		}
		*chain = append(*chain, last)
		last++
	}
	return 0
}

// WriteChain writes chain[i] -> chain[i+1] links and chain[last] -> EndOfChain.
func (e Engine[T]) WriteChain(fat []T, length T, chain []T) vfserrors.Code {
	if len(chain) == 0 {
		return vfserrors.EmptyChain
	}
	if T(len(chain)) > length-e.DataMin {
		return vfserrors.ChainTooLarge
	}
	if chain[0] < e.DataMin || chain[0] > e.DataMax || chain[0] >= length {
		return vfserrors.ChainOOB
	}

	i := 0
	for ; i < len(chain)-1; i++ {
		next := chain[i+1]
		if next < e.DataMin || next > e.DataMax || next >= length {
			return vfserrors.ChainOOB
		}
		fat[chain[i]] = next
	}
	fat[chain[i]] = e.EndOfChain
	return 0
}

// FreeChain writes Free to every cluster in chain, from last to first, so an
// interrupted operation never leaves a stranded tail before the head is
// freed.
func (e Engine[T]) FreeChain(fat []T, length T, chain []T) vfserrors.Code {
	if len(chain) == 0 {
		return vfserrors.EmptyChain
	}
	if T(len(chain)) > length-e.DataMin {
		return vfserrors.ChainTooLarge
	}

	for i := len(chain) - 1; i >= 0; i-- {
		c := chain[i]
		if c < e.DataMin || c > e.DataMax || c >= length {
			return vfserrors.ChainOOB
		}
		fat[c] = e.Free
	}
	return 0
}

// ShrinkChain frees chain[keep:] and writes EndOfChain at chain[keep-1]. It
// is a no-op if keep >= len(chain).
func (e Engine[T]) ShrinkChain(fat []T, length T, chain []T, keep int) vfserrors.Code {
	if len(chain) == 0 || keep >= len(chain) {
		return 0
	}

	if err := e.FreeChain(fat, length, chain[keep:]); err != 0 {
		return err
	}

	if keep > 0 {
		c := chain[keep-1]
		if c < e.DataMin || c > e.DataMax || c >= length {
			return vfserrors.ChainOOB
		}
		fat[c] = e.EndOfChain
	}
	return 0
}

// GetNextOrFree returns the successor of cur if it's already a data index;
// otherwise it returns the first free cell from offset and the distinguished
// Alloc "error" so the caller knows it must extend the chain.
func (e Engine[T]) GetNextOrFree(fat []T, length T, cur T, offset T) (T, vfserrors.Code) {
	if cur < e.DataMin || cur > e.DataMax || cur >= length {
		return 0, vfserrors.BadStart
	}

	if e.isData(fat[cur]) {
		if fat[cur] >= length {
			return 0, vfserrors.ChainOOB
		}
		return fat[cur], 0
	}

	return e.FindNextFree(fat, length, offset), vfserrors.Alloc
}

// ExtendChain writes cur -> next and next -> EndOfChain through to both the
// mirror and the backing store (write-through).
func (e Engine[T]) ExtendChain(fat []T, length T, store Store[T], cur, next T) vfserrors.Code {
	if cur < e.DataMin || cur > e.DataMax || cur >= length {
		return vfserrors.BadStart
	}
	if next < e.DataMin || next > e.DataMax || next >= length {
		return vfserrors.BadNextCluster
	}

	if err := store.WriteAt(cur, next); err != nil {
		return vfserrors.FATIOError
	}
	if err := store.WriteAt(next, e.EndOfChain); err != nil {
		return vfserrors.FATIOError
	}

	fat[cur] = next
	fat[next] = e.EndOfChain
	return 0
}
