package escrow

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/codec"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/orm"
)

const (
	// BucketName is where escrow records are stored.
	BucketName = "esc"

	// IDLength is the size of an escrow id: two concatenated addresses.
	IDLength = 2 * escrowd.AddressLength

	indexReceiver = "receiver"
)

// Escrow is the state of a single escrow.
type Escrow struct {
	Initializer escrowd.Address `json:"initializer"`
	Receiver    escrowd.Address `json:"receiver"`
	Amount      uint64          `json:"amount"`
	Settled     bool            `json:"settled"`
	// Address is the custody account holding the escrowed funds.
	Address escrowd.Address `json:"address"`
}

var _ orm.Model = (*Escrow)(nil)

// NewEscrow returns an unsettled escrow for the given parties.
func NewEscrow(initializer, receiver escrowd.Address, amount uint64) *Escrow {
	return &Escrow{
		Initializer: initializer,
		Receiver:    receiver,
		Amount:      amount,
		Address:     Condition(EscrowID(initializer, receiver)).Address(),
	}
}

func (e *Escrow) Marshal() ([]byte, error) {
	return codec.Marshal(e)
}

func (e *Escrow) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, e)
}

// Validate ensures the escrow is valid
func (e *Escrow) Validate() error {
	if err := e.Initializer.Validate(); err != nil {
		return errors.Wrap(err, "initializer")
	}
	if err := e.Receiver.Validate(); err != nil {
		return errors.Wrap(err, "receiver")
	}
	if e.Initializer.Equals(e.Receiver) {
		return errors.Wrap(errors.ErrInvalidInput, "initializer and receiver must differ")
	}
	if e.Amount == 0 {
		return errors.Wrap(errors.ErrInvalidAmount, "non-positive amount")
	}
	if !e.Address.Equals(Condition(e.ID()).Address()) {
		return errors.Wrap(errors.ErrInvalidModel, "custody address does not match the parties")
	}
	return nil
}

// ID returns the key this escrow is stored under.
func (e *Escrow) ID() []byte {
	return EscrowID(e.Initializer, e.Receiver)
}

// EscrowID returns the id of the escrow between two parties. Both
// addresses have a fixed length, so the concatenation is unique per
// ordered pair.
func EscrowID(initializer, receiver escrowd.Address) []byte {
	id := make([]byte, 0, len(initializer)+len(receiver))
	id = append(id, initializer...)
	return append(id, receiver...)
}

// SplitID returns the parties encoded in an escrow id.
func SplitID(id []byte) (initializer, receiver escrowd.Address, err error) {
	if len(id) != IDLength {
		return nil, nil, errors.Wrapf(errors.ErrInvalidInput, "escrow id must be %d bytes", IDLength)
	}
	return escrowd.Address(id[:escrowd.AddressLength]), escrowd.Address(id[escrowd.AddressLength:]), nil
}

// Condition returns the condition owning the custody account of the
// escrow with given id.
func Condition(id []byte) escrowd.Condition {
	return escrowd.NewCondition("escrow", "pair", id)
}

// NewBucket returns a bucket for escrows keyed by their id. Escrows are
// additionally indexed by receiver.
func NewBucket() orm.ModelBucket {
	return orm.NewModelBucket(BucketName, &Escrow{},
		orm.WithIndex(indexReceiver, receiverIndexer, false))
}

func receiverIndexer(m orm.Model) ([]byte, error) {
	e, ok := m.(*Escrow)
	if !ok {
		return nil, errors.WithType(errors.ErrInvalidModel, m)
	}
	return e.Receiver, nil
}
