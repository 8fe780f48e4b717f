package store

import (
	"sync"

	"github.com/iov-one/escrowd/errors"
)

// Synced guards a CacheableKVStore so that it can be shared by many
// goroutines. Reads take a shared lock and writes an exclusive one. A batch
// is applied under a single exclusive lock, so a cache wrap created from a
// Synced store is written atomically: no reader observes half of it.
type Synced struct {
	mu sync.RWMutex
	kv KVStore
}

var _ CacheableKVStore = (*Synced)(nil)

// NewSynced wraps given store. The wrapped store must not be used directly
// afterwards.
func NewSynced(kv KVStore) *Synced {
	return &Synced{kv: kv}
}

// Get returns the value stored under the key.
func (s *Synced) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kv.Get(key)
}

// Has returns true if the key is set.
func (s *Synced) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kv.Has(key)
}

// Set writes a single value.
func (s *Synced) Set(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Set(key, value)
}

// Delete removes a single value.
func (s *Synced) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(key)
}

// Iterator returns a snapshot of the range, read under the shared lock.
func (s *Synced) Iterator(start, end []byte) (Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, err := s.kv.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return snapshot(it)
}

// ReverseIterator returns a snapshot of the range in descending order,
// read under the shared lock.
func (s *Synced) ReverseIterator(start, end []byte) (Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, err := s.kv.ReverseIterator(start, end)
	if err != nil {
		return nil, err
	}
	return snapshot(it)
}

// NewBatch returns a batch that is written under one exclusive lock.
func (s *Synced) NewBatch() Batch {
	return &syncedBatch{parent: s}
}

// CacheWrap returns a cache wrap whose Write is atomic.
func (s *Synced) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(s, s.NewBatch(), nil)
}

func snapshot(it Iterator) (Iterator, error) {
	defer it.Release()
	var models []Model
	for {
		key, value, err := it.Next()
		if err != nil {
			if errors.ErrIteratorDone.Is(err) {
				return NewSliceIterator(models), nil
			}
			return nil, err
		}
		models = append(models, Pair(key, value))
	}
}

type syncedBatch struct {
	parent *Synced
	ops    []Op
}

func (b *syncedBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, SetOp(key, value))
	return nil
}

func (b *syncedBatch) Delete(key []byte) error {
	b.ops = append(b.ops, DelOp(key))
	return nil
}

func (b *syncedBatch) Write() error {
	b.parent.mu.Lock()
	defer b.parent.mu.Unlock()

	// Prefer the atomic batch of the wrapped store if it has one.
	out := b.parent.kv.NewBatch()
	for _, op := range b.ops {
		if err := op.Apply(out); err != nil {
			return err
		}
	}
	b.ops = nil
	return out.Write()
}
