package app

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store"
	"github.com/iov-one/escrowd/weavetest"
	"github.com/iov-one/escrowd/weavetest/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

// counterHandler increments a counter stored under the first exclusive
// key of the transaction. The read and the write are separated by a
// pause so that unserialized access loses updates.
type counterHandler struct {
	running int64
	maxSeen int64
	fail    bool
}

func (h *counterHandler) Check(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	return &escrowd.CheckResult{}, nil
}

func (h *counterHandler) Deliver(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	n := atomic.AddInt64(&h.running, 1)
	defer atomic.AddInt64(&h.running, -1)
	for {
		seen := atomic.LoadInt64(&h.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt64(&h.maxSeen, seen, n) {
			break
		}
	}

	var key []byte
	switch tx := tx.(type) {
	case *weavetest.LockedTx:
		key = tx.Keys[0]
	case *globalTx:
		key = tx.Keys[0]
	default:
		return nil, errors.Wrapf(errors.ErrInvalidType, "%T", tx)
	}
	raw, err := db.Get(key)
	if err != nil {
		return nil, err
	}
	var count uint64
	if raw != nil {
		count = binary.BigEndian.Uint64(raw)
	}
	time.Sleep(time.Millisecond)
	if err := db.Set(key, encode(count+1)); err != nil {
		return nil, err
	}
	if h.fail {
		return nil, errors.ErrInvalidState
	}
	return &escrowd.DeliverResult{}, nil
}

func encode(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func counter(t testing.TB, db escrowd.ReadOnlyKVStore, key string) uint64 {
	t.Helper()
	raw, err := db.Get([]byte(key))
	require.NoError(t, err)
	if raw == nil {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

func TestExecutorSerializesSharedKeys(t *testing.T) {
	defer goleak.VerifyNone(t)

	db := store.MemStore()
	h := &counterHandler{}
	ex := NewExecutor(db, h)

	const perKey = 20
	keys := []string{"alpha", "beta", "gamma", "delta"}

	var g errgroup.Group
	for _, k := range keys {
		for i := 0; i < perKey; i++ {
			tx := &weavetest.LockedTx{Keys: [][]byte{[]byte(k)}}
			g.Go(func() error {
				_, err := ex.Deliver(context.Background(), tx)
				return err
			})
		}
	}
	require.NoError(t, g.Wait())

	for _, k := range keys {
		assert.Equal(t, uint64(perKey), counter(t, db, k))
	}
	// Disjoint keys must have been processed in parallel.
	require.Greater(t, atomic.LoadInt64(&h.maxSeen), int64(1))
}

func TestExecutorUndeclaredKeysRunAlone(t *testing.T) {
	defer goleak.VerifyNone(t)

	db := store.MemStore()
	h := &counterHandler{}
	ex := NewExecutor(db, h)

	txs := make([]escrowd.Tx, 0, 30)
	for i := 0; i < 10; i++ {
		txs = append(txs,
			&weavetest.LockedTx{Keys: [][]byte{[]byte("shared")}},
			// An empty key set takes the global lock, but the handler
			// still counts under the first key it is given.
			&globalTx{LockedTx: weavetest.LockedTx{Keys: [][]byte{[]byte("shared")}}},
			&weavetest.LockedTx{Keys: [][]byte{[]byte("other"), []byte("shared")}},
		)
	}
	for i, o := range ex.DeliverAll(context.Background(), 8, txs) {
		require.NoErrorf(t, o.Err, "tx %d", i)
	}
	assert.Equal(t, uint64(20), counter(t, db, "shared"))
	assert.Equal(t, uint64(10), counter(t, db, "other"))
}

// globalTx declares no keys while carrying one for the handler.
type globalTx struct {
	weavetest.LockedTx
}

func (*globalTx) ExclusiveKeys() [][]byte {
	return nil
}

func TestExecutorDiscardsFailedTx(t *testing.T) {
	defer goleak.VerifyNone(t)

	db := store.MemStore()
	ex := NewExecutor(db, &counterHandler{fail: true})

	outcomes := ex.DeliverAll(context.Background(), 4, []escrowd.Tx{
		&weavetest.LockedTx{Keys: [][]byte{[]byte("a")}},
		&weavetest.LockedTx{Keys: [][]byte{[]byte("b")}},
	})
	for _, o := range outcomes {
		assert.IsErr(t, errors.ErrInvalidState, o.Err)
	}
	assert.Equal(t, uint64(0), counter(t, db, "a"))
	assert.Equal(t, uint64(0), counter(t, db, "b"))
}

func TestExecutorCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	db := store.MemStore()
	ex := NewExecutor(db, &counterHandler{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	txs := make([]escrowd.Tx, 5)
	for i := range txs {
		txs[i] = &weavetest.LockedTx{Keys: [][]byte{[]byte(fmt.Sprintf("k%d", i))}}
	}
	for _, o := range ex.DeliverAll(ctx, 1, txs) {
		assert.IsErr(t, errors.ErrInvalidState, o.Err)
	}
	for i := range txs {
		assert.Equal(t, uint64(0), counter(t, db, fmt.Sprintf("k%d", i)))
	}
}
