package utils

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
)

// Savepoint runs the rest of the stack in a cache layer. The layer is
// written when the call succeeds and dropped when it fails, so a failed
// escrow operation never leaves partial transfers behind.
//
// A zero Savepoint does nothing. Enable it per phase with OnCheck and
// OnDeliver.
type Savepoint struct {
	onCheck   bool
	onDeliver bool
}

var _ escrowd.Decorator = Savepoint{}

func NewSavepoint() Savepoint {
	return Savepoint{}
}

// OnCheck enables the savepoint for CheckTx.
func (s Savepoint) OnCheck() Savepoint {
	s.onCheck = true
	return s
}

// OnDeliver enables the savepoint for DeliverTx.
func (s Savepoint) OnDeliver() Savepoint {
	s.onDeliver = true
	return s
}

func (s Savepoint) Check(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx, next escrowd.Checker) (*escrowd.CheckResult, error) {
	if !s.onCheck {
		return next.Check(ctx, db, tx)
	}
	return withSavepoint(db, func(db escrowd.KVStore) (*escrowd.CheckResult, error) {
		return next.Check(ctx, db, tx)
	})
}

func (s Savepoint) Deliver(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx, next escrowd.Deliverer) (*escrowd.DeliverResult, error) {
	if !s.onDeliver {
		return next.Deliver(ctx, db, tx)
	}
	return withSavepoint(db, func(db escrowd.KVStore) (*escrowd.DeliverResult, error) {
		return next.Deliver(ctx, db, tx)
	})
}

// withSavepoint calls fn with a cache layer above db. A store that cannot
// be cached is passed through as is.
func withSavepoint[R any](db escrowd.KVStore, fn func(escrowd.KVStore) (*R, error)) (*R, error) {
	cacheable, ok := db.(escrowd.CacheableKVStore)
	if !ok {
		return fn(db)
	}
	cache := cacheable.CacheWrap()
	res, err := fn(cache)
	if err != nil {
		cache.Discard()
		return nil, err
	}
	if err := cache.Write(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return res, nil
}
