package cash

import (
	"github.com/iov-one/escrowd/codec"
	"github.com/iov-one/escrowd/orm"
)

// BucketName is where we store the balances
const BucketName = "cash"

// Wallet holds the balance of a single address.
type Wallet struct {
	Balance uint64 `json:"balance"`
}

var _ orm.Model = (*Wallet)(nil)

func (w *Wallet) Marshal() ([]byte, error) {
	return codec.Marshal(w)
}

func (w *Wallet) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, w)
}

// Validate accepts any balance, including an empty wallet.
func (w *Wallet) Validate() error {
	return nil
}

// NewBucket returns a bucket for wallets, keyed by the owner address.
func NewBucket() orm.ModelBucket {
	return orm.NewModelBucket(BucketName, &Wallet{})
}
