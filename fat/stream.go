package fat

import "github.com/FireNX70/sampler-file-manager-sub000/vfserrors"

// This file mirrors fat.go's in-memory operations but reads/writes every
// cell through a Store instead of a []T slice, for callers that must not
// assume an in-memory FAT mirror is trustworthy.
//
// Ground: Utils/FAT_utils.hpp's stream-taking overloads (the original keeps
// a parallel set of functions operating on a std::fstream& rather than an
// array, for exactly the same reason).

// CountFreeStream counts cells equal to Free in [DataMin, store.Len()).
func (e Engine[T]) CountFreeStream(store Store[T]) (T, error) {
	length := store.Len()
	var count T
	for i := e.DataMin; i < length; i++ {
		v, err := store.ReadAt(i)
		if err != nil {
			return 0, err
		}
		if v == e.Free {
			count++
		}
	}
	return count, nil
}

// GetNthStream is the stream-backed equivalent of GetNth.
func (e Engine[T]) GetNthStream(store Store[T], start *T, n T) (vfserrors.Code, error) {
	length := store.Len()
	if *start < e.DataMin || *start > e.DataMax || *start >= length {
		return vfserrors.BadStart, nil
	}

	for n > 0 {
		v, err := store.ReadAt(*start)
		if err != nil {
			return 0, err
		}
		if !e.isData(v) {
			break
		}
		if v >= length {
			return vfserrors.ChainOOB, nil
		}
		*start = v
		n--
	}

	if n > 0 {
		return vfserrors.EndOfChain, nil
	}
	return 0, nil
}

// FollowStream is the stream-backed equivalent of Follow.
func (e Engine[T]) FollowStream(store Store[T], start T) ([]T, vfserrors.Code, error) {
	length := store.Len()
	if start < e.DataMin || start > e.DataMax || start >= length {
		return nil, vfserrors.BadStart, nil
	}

	chain := []T{start}
	for {
		v, err := store.ReadAt(chain[len(chain)-1])
		if err != nil {
			return chain, 0, err
		}
		if !e.isData(v) {
			break
		}
		if v >= length {
			return chain, vfserrors.ChainOOB, nil
		}
		chain = append(chain, v)
	}
	return chain, 0, nil
}

// FindNextFreeStream is the stream-backed equivalent of FindNextFree.
func (e Engine[T]) FindNextFreeStream(store Store[T], offset T) (T, error) {
	length := store.Len()
	if offset < e.DataMin {
		offset = e.DataMin
	}
	for i := offset; i < length; i++ {
		v, err := store.ReadAt(i)
		if err != nil {
			return 0, err
		}
		if v == e.Free {
			return i, nil
		}
	}
	return e.EndOfChain, nil
}

// FindFreeChainStream is the stream-backed equivalent of FindFreeChain.
func (e Engine[T]) FindFreeChainStream(store Store[T], need int, chain *[]T) (vfserrors.Code, error) {
	if need <= len(*chain) {
		return 0, nil
	}

	toFind := need - len(*chain)
	last := e.DataMin
	for i := 0; i < toFind; i++ {
		free, err := e.FindNextFreeStream(store, last)
		if err != nil {
			return 0, err
		}
		if free == e.EndOfChain {
			return vfserrors.NoFreeClusters, nil
		}
		*chain = append(*chain, free)
		last = free + 1
	}
	return 0, nil
}

// WriteChainStream is the stream-backed equivalent of WriteChain.
func (e Engine[T]) WriteChainStream(store Store[T], chain []T) (vfserrors.Code, error) {
	length := store.Len()
	if len(chain) == 0 {
		return vfserrors.EmptyChain, nil
	}
	if T(len(chain)) > length-e.DataMin {
		return vfserrors.ChainTooLarge, nil
	}
	if chain[0] < e.DataMin || chain[0] > e.DataMax || chain[0] >= length {
		return vfserrors.ChainOOB, nil
	}

	i := 0
	for ; i < len(chain)-1; i++ {
		next := chain[i+1]
		if next < e.DataMin || next > e.DataMax || next >= length {
			return vfserrors.ChainOOB, nil
		}
		if err := store.WriteAt(chain[i], next); err != nil {
			return 0, err
		}
	}
	if err := store.WriteAt(chain[i], e.EndOfChain); err != nil {
		return 0, err
	}
	return 0, nil
}

// FreeChainStream is the stream-backed equivalent of FreeChain.
func (e Engine[T]) FreeChainStream(store Store[T], chain []T) (vfserrors.Code, error) {
	length := store.Len()
	if len(chain) == 0 {
		return vfserrors.EmptyChain, nil
	}
	if T(len(chain)) > length-e.DataMin {
		return vfserrors.ChainTooLarge, nil
	}

	for i := len(chain) - 1; i >= 0; i-- {
		c := chain[i]
		if c < e.DataMin || c > e.DataMax || c >= length {
			return vfserrors.ChainOOB, nil
		}
		if err := store.WriteAt(c, e.Free); err != nil {
			return 0, err
		}
	}
	return 0, nil
}

// ShrinkChainStream is the stream-backed equivalent of ShrinkChain.
func (e Engine[T]) ShrinkChainStream(store Store[T], chain []T, keep int) (vfserrors.Code, error) {
	if len(chain) == 0 || keep >= len(chain) {
		return 0, nil
	}

	if code, err := e.FreeChainStream(store, chain[keep:]); code != 0 || err != nil {
		return code, err
	}

	if keep > 0 {
		length := store.Len()
		c := chain[keep-1]
		if c < e.DataMin || c > e.DataMax || c >= length {
			return vfserrors.ChainOOB, nil
		}
		if err := store.WriteAt(c, e.EndOfChain); err != nil {
			return 0, err
		}
	}
	return 0, nil
}
