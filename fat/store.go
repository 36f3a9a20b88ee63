package fat

// Store is a random-access view over an on-disk FAT, used by the stream
// form of every Engine operation. Implementations own byte-order and
// on-disk layout; the engine only ever deals in logical indices.
//
// Ground: drivers/common/clusterio.go and drivers/common/blockstream.go in
// the teacher's dargueta-disko, which separate "how bytes are laid out on
// disk" from "what the chain-walking algorithm does" the same way.
type Store[T Index] interface {
	// ReadAt returns the value stored at logical index idx.
	ReadAt(idx T) (T, error)
	// WriteAt stores value at logical index idx.
	WriteAt(idx T, value T) error
	// Len returns the number of addressable cells.
	Len() T
}
