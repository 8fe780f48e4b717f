package store

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/weavetest/assert"
)

// Opener returns an empty store for a single conformance check. Any
// resources it holds must be released with t.Cleanup.
type Opener func(t testing.TB) CacheableKVStore

// RunConformance checks that a store and the cache wraps created from it
// behave the way the escrow handlers rely on: reads see writes, a cache
// is isolated from its parent until written, and iteration merges both
// layers in key order.
func RunConformance(t *testing.T, open Opener) {
	t.Run("read your writes", func(t *testing.T) { checkReadWrite(t, open(t)) })
	t.Run("cache isolation", func(t *testing.T) { checkIsolation(t, open(t)) })
	t.Run("nested caches", func(t *testing.T) { checkNested(t, open(t)) })
	t.Run("iteration", func(t *testing.T) { checkIteration(t, open) })
}

func checkReadWrite(t *testing.T, db CacheableKVStore) {
	key := []byte("esc:alice")
	wantValue(t, db, key, nil)

	assert.Nil(t, db.Set(key, []byte("100")))
	wantValue(t, db, key, []byte("100"))

	assert.Nil(t, db.Set(key, []byte("250")))
	wantValue(t, db, key, []byte("250"))

	assert.Nil(t, db.Delete(key))
	wantValue(t, db, key, nil)

	// deleting a missing key is not an error
	assert.Nil(t, db.Delete([]byte("esc:nobody")))
}

func checkIsolation(t *testing.T, db CacheableKVStore) {
	funded, custody := []byte("cash:initializer"), []byte("cash:custody")
	assert.Nil(t, db.Set(funded, []byte("10")))

	discarded := db.CacheWrap()
	assert.Nil(t, discarded.Delete(funded))
	assert.Nil(t, discarded.Set(custody, []byte("10")))
	wantValue(t, discarded, funded, nil)
	wantValue(t, discarded, custody, []byte("10"))
	wantValue(t, db, funded, []byte("10"))
	wantValue(t, db, custody, nil)
	discarded.Discard()
	wantValue(t, db, funded, []byte("10"))
	wantValue(t, db, custody, nil)

	written := db.CacheWrap()
	assert.Nil(t, written.Delete(funded))
	assert.Nil(t, written.Set(custody, []byte("10")))
	wantValue(t, db, custody, nil)
	assert.Nil(t, written.Write())
	wantValue(t, db, funded, nil)
	wantValue(t, db, custody, []byte("10"))
}

func checkNested(t *testing.T, db CacheableKVStore) {
	assert.Nil(t, db.Set([]byte("a"), []byte("1")))

	outer := db.CacheWrap()
	assert.Nil(t, outer.Set([]byte("b"), []byte("2")))

	inner := outer.CacheWrap()
	wantValue(t, inner, []byte("a"), []byte("1"))
	wantValue(t, inner, []byte("b"), []byte("2"))
	assert.Nil(t, inner.Set([]byte("a"), []byte("3")))
	assert.Nil(t, inner.Write())

	wantValue(t, outer, []byte("a"), []byte("3"))
	wantValue(t, db, []byte("a"), []byte("1"))
	wantValue(t, db, []byte("b"), nil)

	assert.Nil(t, outer.Write())
	wantValue(t, db, []byte("a"), []byte("3"))
	wantValue(t, db, []byte("b"), []byte("2"))
}

func checkIteration(t *testing.T, open Opener) {
	keys := make([][]byte, 8)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("esc:%02d", i))
	}
	model := func(i int, v string) Model { return Pair(keys[i], []byte(v)) }

	cases := map[string]struct {
		parent   []Op
		child    []Op
		start    []byte
		end      []byte
		reverse  bool
		expected []Model
	}{
		"child only": {
			child:    []Op{SetOp(keys[2], []byte("c")), SetOp(keys[0], []byte("a")), SetOp(keys[1], []byte("b"))},
			expected: []Model{model(0, "a"), model(1, "b"), model(2, "c")},
		},
		"parent only in reverse": {
			parent:   []Op{SetOp(keys[0], []byte("a")), SetOp(keys[1], []byte("b"))},
			reverse:  true,
			expected: []Model{model(1, "b"), model(0, "a")},
		},
		"child overrides parent": {
			parent:   []Op{SetOp(keys[0], []byte("a")), SetOp(keys[1], []byte("b"))},
			child:    []Op{SetOp(keys[1], []byte("B")), SetOp(keys[3], []byte("d"))},
			expected: []Model{model(0, "a"), model(1, "B"), model(3, "d")},
		},
		"child deletes hide parent": {
			parent:   []Op{SetOp(keys[0], []byte("a")), SetOp(keys[2], []byte("c")), SetOp(keys[4], []byte("e"))},
			child:    []Op{DelOp(keys[0]), DelOp(keys[4]), DelOp(keys[5])},
			expected: []Model{model(2, "c")},
		},
		"bounded range": {
			parent:   []Op{SetOp(keys[1], []byte("b")), SetOp(keys[3], []byte("d")), SetOp(keys[5], []byte("f"))},
			child:    []Op{SetOp(keys[2], []byte("c")), SetOp(keys[4], []byte("e"))},
			start:    keys[2],
			end:      keys[5],
			expected: []Model{model(2, "c"), model(3, "d"), model(4, "e")},
		},
		"bounded range in reverse": {
			parent:   []Op{SetOp(keys[1], []byte("b")), SetOp(keys[3], []byte("d")), SetOp(keys[5], []byte("f"))},
			child:    []Op{SetOp(keys[2], []byte("c")), SetOp(keys[4], []byte("e"))},
			start:    keys[2],
			end:      keys[5],
			reverse:  true,
			expected: []Model{model(4, "e"), model(3, "d"), model(2, "c")},
		},
		"range ending before the only value": {
			parent: []Op{SetOp(keys[6], []byte("g"))},
			end:    keys[6],
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := open(t)
			for _, op := range tc.parent {
				assert.Nil(t, op.Apply(db))
			}
			child := db.CacheWrap()
			for _, op := range tc.child {
				assert.Nil(t, op.Apply(child))
			}

			var it Iterator
			var err error
			if tc.reverse {
				it, err = child.ReverseIterator(tc.start, tc.end)
			} else {
				it, err = child.Iterator(tc.start, tc.end)
			}
			assert.Nil(t, err)
			defer it.Release()

			for i, want := range tc.expected {
				key, value, err := it.Next()
				assert.Nil(t, err)
				if !bytes.Equal(want.Key, key) {
					t.Fatalf("item %d: want key %q, got %q", i, want.Key, key)
				}
				assert.Equal(t, want.Value, value)
			}
			if _, _, err := it.Next(); !errors.ErrIteratorDone.Is(err) {
				t.Fatalf("want iterator done, got %+v", err)
			}
		})
	}
}

func wantValue(t testing.TB, kv ReadOnlyKVStore, key, want []byte) {
	t.Helper()
	got, err := kv.Get(key)
	assert.Nil(t, err)
	assert.Equal(t, want, got)
	has, err := kv.Has(key)
	assert.Nil(t, err)
	assert.Equal(t, want != nil, has)
}
