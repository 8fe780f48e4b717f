package cash

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
)

const optKey = "cash"

// GenesisAccount is used to parse the json from genesis file
// use escrowd.Address, so address in hex, not base64
type GenesisAccount struct {
	Address escrowd.Address `json:"address"`
	Balance uint64          `json:"balance"`
}

// Initializer fulfils the escrowd.Initializer interface to load data
// from the genesis file
type Initializer struct{}

var _ escrowd.Initializer = Initializer{}

// FromGenesis will parse initial account info from genesis
// and save it to the database
func (Initializer) FromGenesis(opts escrowd.Options, kv escrowd.KVStore) error {
	var accts []GenesisAccount
	if err := opts.ReadOptions(optKey, &accts); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	ctrl := NewController(NewBucket())
	for i, acct := range accts {
		if err := acct.Address.Validate(); err != nil {
			return errors.Wrapf(err, "account %d", i)
		}
		if err := ctrl.CoinMint(kv, acct.Address, acct.Balance); err != nil {
			return errors.Wrapf(err, "account %d", i)
		}
	}
	return nil
}
