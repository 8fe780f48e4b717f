package app

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store"
	"golang.org/x/sync/errgroup"
)

// Executor runs transactions against a shared store from many goroutines.
//
// Each transaction holds the locks of the keys it declares through
// escrowd.Exclusive for the whole of its execution and works on its own
// cache wrap, written only when the handler succeeds. Transactions that do
// not declare their keys run alone.
type Executor struct {
	handler escrowd.Handler
	db      *store.Synced
	locks   *store.KeyLocker
}

// NewExecutor returns an executor delivering transactions to handler.
// The executor must be the only writer of db.
func NewExecutor(db escrowd.KVStore, handler escrowd.Handler) *Executor {
	return &Executor{
		handler: handler,
		db:      store.NewSynced(db),
		locks:   store.NewKeyLocker(),
	}
}

// Deliver executes a single transaction. All of its changes are applied
// or none is.
func (e *Executor) Deliver(ctx escrowd.Context, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	unlock := e.locks.Lock(exclusiveKeys(tx))
	defer unlock()

	cache := e.db.CacheWrap()
	res, err := e.handler.Deliver(ctx, cache, tx)
	if err != nil {
		cache.Discard()
		return nil, err
	}
	if err := cache.Write(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return res, nil
}

// Check runs the check phase of a transaction. Changes are never kept.
func (e *Executor) Check(ctx escrowd.Context, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	unlock := e.locks.Lock(exclusiveKeys(tx))
	defer unlock()

	cache := e.db.CacheWrap()
	defer cache.Discard()
	return e.handler.Check(ctx, cache, tx)
}

// Outcome is the result of delivering one transaction of a batch.
type Outcome struct {
	Result *escrowd.DeliverResult
	Err    error
}

// DeliverAll delivers all transactions using at most workers goroutines
// and returns their outcomes in the order of txs. Transactions touching
// the same keys are serialized, in no particular order. A cancelled
// context stops scheduling and reports the cancellation for every
// transaction not started.
func (e *Executor) DeliverAll(ctx escrowd.Context, workers int, txs []escrowd.Tx) []Outcome {
	out := make([]Outcome, len(txs))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, tx := range txs {
		i, tx := i, tx
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i].Err = errors.Wrap(errors.ErrInvalidState, err.Error())
				return nil
			}
			out[i].Result, out[i].Err = e.Deliver(ctx, tx)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// exclusiveKeys returns the lock names declared by the transaction, or
// nil for a transaction that must run alone.
func exclusiveKeys(tx escrowd.Tx) [][]byte {
	if ex, ok := tx.(escrowd.Exclusive); ok {
		return ex.ExclusiveKeys()
	}
	return nil
}
