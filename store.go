package escrowd

// ReadOnlyKVStore reads the application state.
type ReadOnlyKVStore interface {
	// Get returns nil when the key does not exist.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)

	// Iterator walks keys in [start, end) in ascending order. A nil bound
	// is open. The domain must not be written to while the iterator is in
	// use.
	Iterator(start, end []byte) (Iterator, error)
	// ReverseIterator walks the same domain in descending order.
	ReverseIterator(start, end []byte) (Iterator, error)
}

// SetDeleter is the write half shared by KVStore and Batch. Callers must
// not modify keys and values once passed in.
type SetDeleter interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// KVStore is the state every handler reads and writes.
type KVStore interface {
	ReadOnlyKVStore
	SetDeleter
	NewBatch() Batch
}

// Batch collects writes and applies them on Write.
type Batch interface {
	SetDeleter
	Write() error
}

// Iterator yields key value pairs one at a time. Next returns
// errors.ErrIteratorDone once exhausted. Always call Release.
//
//	it, err := db.Iterator(start, end)
//	...
//	defer it.Release()
//	for {
//		key, value, err := it.Next()
//		if errors.ErrIteratorDone.Is(err) {
//			break
//		}
//		...
//	}
type Iterator interface {
	Next() (key, value []byte, err error)
	Release()
}

// CacheableKVStore can stack a cache layer on top of itself. Writes to
// the layer stay invisible to the store until the layer is written, which
// is how a failed transaction leaves no trace.
type CacheableKVStore interface {
	KVStore
	CacheWrap() KVCacheWrap
}

// KVCacheWrap is a cache layer. Reads see the layer above the parent
// state. Write flushes the layer into the parent, Discard drops it.
type KVCacheWrap interface {
	CacheableKVStore
	Write() error
	Discard()
}

// CommitKVStore is the persistent root of the state. Every Commit creates
// a new version.
type CommitKVStore interface {
	// Get reads the last committed version.
	Get(key []byte) ([]byte, error)
	CacheWrap() KVCacheWrap
	Commit() (CommitID, error)

	// LoadLatestVersion loads the last complete version, even when the
	// previous process crashed while committing.
	LoadLatestVersion() error
	LatestVersion() (CommitID, error)
}

// CommitID identifies a committed version by its number and merkle root.
type CommitID struct {
	Version int64
	Hash    []byte
}
