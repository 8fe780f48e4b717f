package store

import (
	"bytes"

	"github.com/google/btree"
)

// entry is a write buffered by a cache wrap. A deleted entry hides the
// key in every store below the cache.
type entry struct {
	key     []byte
	value   []byte
	deleted bool
}

var _ btree.Item = (*entry)(nil)

func (e *entry) Less(than btree.Item) bool {
	return bytes.Compare(e.key, than.(*entry).key) < 0
}

// BTreeCacheWrap buffers writes in a btree on top of a read only parent.
// Reads see the buffered writes first. Buffered operations are also
// recorded in a batch that reaches the parent only on Write.
type BTreeCacheWrap struct {
	pending *btree.BTree
	free    *btree.FreeList
	parent  ReadOnlyKVStore
	batch   Batch
}

var _ KVCacheWrap = BTreeCacheWrap{}

// MemStore returns a store kept in memory only. It is meant for tests
// and for the in memory application.
func MemStore() CacheableKVStore {
	empty := EmptyKVStore{}
	return NewBTreeCacheWrap(empty, empty.NewBatch(), nil)
}

// NewBTreeCacheWrap creates a cache over parent. All writes must go
// through batch, parent is only read. Cache wraps layered on each other
// share free, which may be nil for a fresh list.
func NewBTreeCacheWrap(parent ReadOnlyKVStore, batch Batch, free *btree.FreeList) BTreeCacheWrap {
	if free == nil {
		free = btree.NewFreeList(btree.DefaultFreeListSize)
	}
	return BTreeCacheWrap{
		pending: btree.NewWithFreeList(2, free),
		free:    free,
		parent:  parent,
		batch:   batch,
	}
}

// CacheWrap layers another cache on top of this one.
func (b BTreeCacheWrap) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(b, b.NewBatch(), b.free)
}

// NewBatch returns a batch writing into this cache.
func (b BTreeCacheWrap) NewBatch() Batch {
	return NewNonAtomicBatch(b)
}

// Write flushes the buffered operations to the parent and empties the
// cache.
func (b BTreeCacheWrap) Write() error {
	err := b.batch.Write()
	b.Discard()
	return err
}

// Discard drops all buffered operations.
func (b BTreeCacheWrap) Discard() {
	b.pending.Clear(true)
	if nb, ok := b.batch.(*NonAtomicBatch); ok {
		nb.ops = nil
	}
}

func (b BTreeCacheWrap) Set(key, value []byte) error {
	b.pending.ReplaceOrInsert(&entry{key: key, value: value})
	return b.batch.Set(key, value)
}

func (b BTreeCacheWrap) Delete(key []byte) error {
	b.pending.ReplaceOrInsert(&entry{key: key, deleted: true})
	return b.batch.Delete(key)
}

func (b BTreeCacheWrap) Get(key []byte) ([]byte, error) {
	if e := b.lookup(key); e != nil {
		if e.deleted {
			return nil, nil
		}
		return e.value, nil
	}
	return b.parent.Get(key)
}

func (b BTreeCacheWrap) Has(key []byte) (bool, error) {
	if e := b.lookup(key); e != nil {
		return !e.deleted, nil
	}
	return b.parent.Has(key)
}

func (b BTreeCacheWrap) lookup(key []byte) *entry {
	if item := b.pending.Get(&entry{key: key}); item != nil {
		return item.(*entry)
	}
	return nil
}

// Iterator walks [start, end) in ascending order over the cache and the
// parent store.
func (b BTreeCacheWrap) Iterator(start, end []byte) (Iterator, error) {
	parent, err := b.parent.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return newMergeIterator(b.snapshot(start, end, false), parent, false), nil
}

// ReverseIterator walks [start, end) in descending order over the cache
// and the parent store.
func (b BTreeCacheWrap) ReverseIterator(start, end []byte) (Iterator, error) {
	parent, err := b.parent.ReverseIterator(start, end)
	if err != nil {
		return nil, err
	}
	return newMergeIterator(b.snapshot(start, end, true), parent, true), nil
}

// snapshot copies the buffered entries within [start, end). A nil bound
// is open. The copy lets iteration continue while the cache is written.
func (b BTreeCacheWrap) snapshot(start, end []byte, descending bool) []*entry {
	var entries []*entry
	collect := func(item btree.Item) bool {
		entries = append(entries, item.(*entry))
		return true
	}
	switch {
	case start == nil && end == nil:
		b.pending.Ascend(collect)
	case start == nil:
		b.pending.AscendLessThan(&entry{key: end}, collect)
	case end == nil:
		b.pending.AscendGreaterOrEqual(&entry{key: start}, collect)
	default:
		b.pending.AscendRange(&entry{key: start}, &entry{key: end}, collect)
	}
	if descending {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return entries
}
