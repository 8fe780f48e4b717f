package escrow

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/x/cash"
)

const optKey = "escrow"

// GenesisEscrow describes an escrow present from the first block. A
// funded escrow gets its amount minted into custody.
type GenesisEscrow struct {
	Initializer escrowd.Address `json:"initializer"`
	Receiver    escrowd.Address `json:"receiver"`
	Amount      uint64          `json:"amount"`
	Funded      bool            `json:"funded"`
}

// Initializer fulfils the Initializer interface to load data from the genesis file
type Initializer struct {
	Minter cash.CoinMinter
}

var _ escrowd.Initializer = (*Initializer)(nil)

// FromGenesis will parse initial escrow info from genesis and save it in the database.
func (i *Initializer) FromGenesis(opts escrowd.Options, db escrowd.KVStore) error {
	var escrows []GenesisEscrow
	if err := opts.ReadOptions(optKey, &escrows); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, err.Error())
	}

	bucket := NewBucket()
	for j, g := range escrows {
		e := NewEscrow(g.Initializer, g.Receiver, g.Amount)
		if err := bucket.Create(db, e.ID(), e); err != nil {
			return errors.Wrapf(err, "escrow %d", j)
		}
		if !g.Funded {
			continue
		}
		if err := i.Minter.CoinMint(db, e.Address, e.Amount); err != nil {
			return errors.Wrapf(err, "escrow %d: cannot issue coins", j)
		}
	}
	return nil
}
