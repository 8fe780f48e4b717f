package escrow

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/orm"
	"github.com/iov-one/escrowd/x/cash"
)

// Controller is the escrow state machine. Every mutating method either
// applies all of its changes or none of them.
type Controller interface {
	// Create stores a new unfunded escrow and returns it with its id.
	Create(db escrowd.KVStore, initializer, receiver escrowd.Address, amount uint64) (*Escrow, []byte, error)
	// Fund moves the escrow amount from the caller to the custody account.
	Fund(db escrowd.KVStore, id []byte, caller escrowd.Address) (*Escrow, error)
	// Release pays the escrow amount to the stored receiver and settles.
	Release(db escrowd.KVStore, id []byte, caller escrowd.Address) (*Escrow, error)
	// Cancel pays the escrow amount back to the initializer and settles.
	Cancel(db escrowd.KVStore, id []byte, caller escrowd.Address) (*Escrow, error)
	// Get returns the stored escrow.
	Get(db escrowd.ReadOnlyKVStore, id []byte) (*Escrow, error)
	// Balance returns the amount held by the custody account.
	Balance(db escrowd.ReadOnlyKVStore, id []byte) (uint64, error)
	// Authorize returns the escrow if caller may still act on it.
	Authorize(db escrowd.ReadOnlyKVStore, id []byte, caller escrowd.Address) (*Escrow, error)
}

// BaseController keeps escrows in a bucket and their funds in the cash
// ledger.
type BaseController struct {
	bucket orm.ModelBucket
	bank   cash.Controller
}

var _ Controller = BaseController{}

// NewController returns a controller using given bucket and ledger.
func NewController(bucket orm.ModelBucket, bank cash.Controller) BaseController {
	return BaseController{bucket: bucket, bank: bank}
}

func (c BaseController) Create(db escrowd.KVStore, initializer, receiver escrowd.Address, amount uint64) (*Escrow, []byte, error) {
	e := NewEscrow(initializer, receiver, amount)
	if err := e.Validate(); err != nil {
		return nil, nil, err
	}
	id := e.ID()
	err := atomically(db, func(db escrowd.KVStore) error {
		return c.bucket.Create(db, id, e)
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot create escrow")
	}
	return e, id, nil
}

func (c BaseController) Fund(db escrowd.KVStore, id []byte, caller escrowd.Address) (*Escrow, error) {
	e, err := c.Authorize(db, id, caller)
	if err != nil {
		return nil, err
	}
	err = atomically(db, func(db escrowd.KVStore) error {
		return c.bank.MoveCoins(db, caller, e.Address, e.Amount)
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot fund escrow")
	}
	return e, nil
}

func (c BaseController) Release(db escrowd.KVStore, id []byte, caller escrowd.Address) (*Escrow, error) {
	return c.settle(db, id, caller, func(e *Escrow) escrowd.Address { return e.Receiver })
}

func (c BaseController) Cancel(db escrowd.KVStore, id []byte, caller escrowd.Address) (*Escrow, error) {
	return c.settle(db, id, caller, func(e *Escrow) escrowd.Address { return e.Initializer })
}

// settle pays out the escrow amount to the address chosen by target and
// marks the escrow as settled. Funds held above the amount go back to the
// initializer, so custody is empty once settled.
func (c BaseController) settle(db escrowd.KVStore, id []byte, caller escrowd.Address, target func(*Escrow) escrowd.Address) (*Escrow, error) {
	e, err := c.Authorize(db, id, caller)
	if err != nil {
		return nil, err
	}
	held, err := c.bank.Balance(db, e.Address)
	if err != nil {
		return nil, errors.Wrap(err, "custody balance")
	}
	switch {
	case held == 0:
		return nil, ErrNotFunded
	case held < e.Amount:
		return nil, errors.Wrapf(errors.ErrInsufficientAmount, "custody holds %d, escrow requires %d", held, e.Amount)
	}

	err = atomically(db, func(db escrowd.KVStore) error {
		if err := c.bank.MoveCoins(db, e.Address, target(e), e.Amount); err != nil {
			return errors.Wrap(err, "cannot pay out")
		}
		if surplus := held - e.Amount; surplus > 0 {
			if err := c.bank.MoveCoins(db, e.Address, e.Initializer, surplus); err != nil {
				return errors.Wrap(err, "cannot refund surplus")
			}
		}
		e.Settled = true
		if err := c.bucket.Put(db, id, e); err != nil {
			return errors.Wrap(err, "cannot save escrow")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (c BaseController) Get(db escrowd.ReadOnlyKVStore, id []byte) (*Escrow, error) {
	if _, _, err := SplitID(id); err != nil {
		return nil, err
	}
	var e Escrow
	if err := c.bucket.One(db, id, &e); err != nil {
		return nil, errors.Wrapf(err, "escrow %X", id)
	}
	return &e, nil
}

func (c BaseController) Balance(db escrowd.ReadOnlyKVStore, id []byte) (uint64, error) {
	e, err := c.Get(db, id)
	if err != nil {
		return 0, err
	}
	return c.bank.Balance(db, e.Address)
}

// Authorize loads the escrow and ensures that caller is its initializer
// and that it was not settled yet.
func (c BaseController) Authorize(db escrowd.ReadOnlyKVStore, id []byte, caller escrowd.Address) (*Escrow, error) {
	e, err := c.Get(db, id)
	if err != nil {
		return nil, err
	}
	if !e.Initializer.Equals(caller) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "only the initializer can act on an escrow")
	}
	if e.Settled {
		return nil, ErrAlreadyReleased
	}
	return e, nil
}

// atomically runs fn on a cache of db and writes the changes only if fn
// succeeds. Stores that cannot be cache wrapped are used directly.
func atomically(db escrowd.KVStore, fn func(escrowd.KVStore) error) error {
	cstore, ok := db.(escrowd.CacheableKVStore)
	if !ok {
		return fn(db)
	}
	cache := cstore.CacheWrap()
	if err := fn(cache); err != nil {
		cache.Discard()
		return err
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}
