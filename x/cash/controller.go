package cash

import (
	"math"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/orm"
)

// Balancer reports the balance of an address.
type Balancer interface {
	// Balance returns the amount held by given address. An address that
	// was never credited holds zero.
	Balance(db escrowd.ReadOnlyKVStore, addr escrowd.Address) (uint64, error)
}

// CoinMover moves funds between addresses.
type CoinMover interface {
	// MoveCoins moves the given amount from src to dest. It either moves
	// the whole amount or nothing.
	MoveCoins(db escrowd.KVStore, src, dest escrowd.Address, amount uint64) error
}

// CoinMinter creates new funds out of thin air.
type CoinMinter interface {
	// CoinMint credits dest with given amount.
	CoinMint(db escrowd.KVStore, dest escrowd.Address, amount uint64) error
}

// Controller is the full ledger API used by other extensions.
type Controller interface {
	Balancer
	CoinMover
	CoinMinter
}

// BaseController is a Controller backed by the wallet bucket.
type BaseController struct {
	bucket orm.ModelBucket
}

var _ Controller = BaseController{}

// NewController returns a controller storing wallets in given bucket.
func NewController(bucket orm.ModelBucket) BaseController {
	return BaseController{bucket: bucket}
}

func (c BaseController) Balance(db escrowd.ReadOnlyKVStore, addr escrowd.Address) (uint64, error) {
	w, err := c.wallet(db, addr)
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

func (c BaseController) MoveCoins(db escrowd.KVStore, src, dest escrowd.Address, amount uint64) error {
	if amount == 0 {
		return errors.Wrap(errors.ErrInvalidAmount, "non-positive amount")
	}
	if err := src.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := dest.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}

	sender, err := c.wallet(db, src)
	if err != nil {
		return err
	}
	if sender.Balance < amount {
		return errors.Wrapf(errors.ErrInsufficientAmount, "balance %d, required %d", sender.Balance, amount)
	}
	if src.Equals(dest) {
		return nil
	}
	recipient, err := c.wallet(db, dest)
	if err != nil {
		return err
	}
	if recipient.Balance > math.MaxUint64-amount {
		return errors.Wrap(errors.ErrOverflow, "recipient balance")
	}

	sender.Balance -= amount
	recipient.Balance += amount
	if err := c.save(db, src, sender); err != nil {
		return errors.Wrap(err, "cannot save sender")
	}
	if err := c.bucket.Put(db, dest, recipient); err != nil {
		return errors.Wrap(err, "cannot save recipient")
	}
	return nil
}

func (c BaseController) CoinMint(db escrowd.KVStore, dest escrowd.Address, amount uint64) error {
	if err := dest.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	w, err := c.wallet(db, dest)
	if err != nil {
		return err
	}
	if w.Balance > math.MaxUint64-amount {
		return errors.Wrap(errors.ErrOverflow, "balance")
	}
	if amount == 0 {
		return nil
	}
	w.Balance += amount
	return c.bucket.Put(db, dest, w)
}

// save stores the wallet, or deletes it once it is empty.
func (c BaseController) save(db escrowd.KVStore, addr escrowd.Address, w *Wallet) error {
	if w.Balance == 0 {
		return c.bucket.Delete(db, addr)
	}
	return c.bucket.Put(db, addr, w)
}

// wallet loads the wallet of given address, or an empty one if missing.
func (c BaseController) wallet(db escrowd.ReadOnlyKVStore, addr escrowd.Address) (*Wallet, error) {
	var w Wallet
	switch err := c.bucket.One(db, addr, &w); {
	case err == nil:
		return &w, nil
	case errors.ErrNotFound.Is(err):
		return &Wallet{}, nil
	default:
		return nil, errors.Wrap(err, "cannot load wallet")
	}
}
