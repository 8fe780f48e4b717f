package store

import (
	"testing"

	"github.com/iov-one/escrowd/weavetest/assert"
)

func TestCacheIteratorReleaseBeforeWrite(t *testing.T) {
	db := MemStore()
	assert.Nil(t, db.Set([]byte("a"), []byte("A")))
	cache := db.CacheWrap()

	it, err := cache.Iterator([]byte("a"), []byte("z"))
	if err != nil {
		t.Fatalf("cannot create iterator: %s", err)
	}
	// Release must be a synchronous operation.
	it.Release()
	assert.Nil(t, db.Delete([]byte("a")))
}

func TestCacheReverseIteratorReleaseBeforeWrite(t *testing.T) {
	db := MemStore()
	assert.Nil(t, db.Set([]byte("a"), []byte("A")))
	cache := db.CacheWrap()

	it, err := cache.ReverseIterator([]byte("a"), []byte("z"))
	if err != nil {
		t.Fatalf("cannot create iterator: %s", err)
	}
	it.Release()
	assert.Nil(t, db.Delete([]byte("a")))
}

func TestCacheIteratorSnapshot(t *testing.T) {
	db := MemStore()
	assert.Nil(t, db.Set([]byte("a"), []byte("A")))
	assert.Nil(t, db.Set([]byte("b"), []byte("B")))

	it, err := db.Iterator(nil, nil)
	assert.Nil(t, err)
	defer it.Release()

	// Writes after the iterator was created are not visible.
	assert.Nil(t, db.Set([]byte("c"), []byte("C")))

	var keys []string
	for {
		k, _, err := it.Next()
		if err != nil {
			break
		}
		keys = append(keys, string(k))
	}
	assert.Equal(t, []string{"a", "b"}, keys)
}
