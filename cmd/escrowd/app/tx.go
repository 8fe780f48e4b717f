package app

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/codec"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/x/escrow"
	"github.com/iov-one/escrowd/x/sigs"
)

// make sure tx fulfills all interfaces
var (
	_ escrowd.Tx        = (*Tx)(nil)
	_ escrowd.Exclusive = (*Tx)(nil)
	_ sigs.SignedTx     = (*Tx)(nil)
)

// Tx carries exactly one escrow message together with the signatures
// authorizing it. Only one of the message fields may be set.
type Tx struct {
	Create     *escrow.CreateMsg    `json:"create,omitempty"`
	Fund       *escrow.FundMsg      `json:"fund,omitempty"`
	Release    *escrow.ReleaseMsg   `json:"release,omitempty"`
	Cancel     *escrow.CancelMsg    `json:"cancel,omitempty"`
	Signatures []*sigs.StdSignature `json:"signatures,omitempty"`
}

// NewTx wraps given message into a transaction. It returns an error if
// the message is not one the application routes.
func NewTx(msg escrowd.Msg) (*Tx, error) {
	switch m := msg.(type) {
	case *escrow.CreateMsg:
		return &Tx{Create: m}, nil
	case *escrow.FundMsg:
		return &Tx{Fund: m}, nil
	case *escrow.ReleaseMsg:
		return &Tx{Release: m}, nil
	case *escrow.CancelMsg:
		return &Tx{Cancel: m}, nil
	}
	return nil, errors.WithType(errors.ErrInvalidType, msg)
}

// GetMsg returns the single message set on the transaction.
func (tx *Tx) GetMsg() (escrowd.Msg, error) {
	var msgs []escrowd.Msg
	if tx.Create != nil {
		msgs = append(msgs, tx.Create)
	}
	if tx.Fund != nil {
		msgs = append(msgs, tx.Fund)
	}
	if tx.Release != nil {
		msgs = append(msgs, tx.Release)
	}
	if tx.Cancel != nil {
		msgs = append(msgs, tx.Cancel)
	}
	switch len(msgs) {
	case 0:
		return nil, errors.Wrap(errors.ErrInvalidMsg, "no message")
	case 1:
		return msgs[0], nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidMsg, "%d messages", len(msgs))
	}
}

// GetSignatures returns the signatures on the transaction.
func (tx *Tx) GetSignatures() []*sigs.StdSignature {
	return tx.Signatures
}

// GetSignBytes returns the bytes to sign. Signatures are never part of
// the signed payload.
func (tx *Tx) GetSignBytes() ([]byte, error) {
	unsigned := *tx
	unsigned.Signatures = nil
	return unsigned.Marshal()
}

// ExclusiveKeys extends the keys of the message with the address of every
// signer, as signature verification updates the signer sequence. It
// returns nil, meaning the global lock, when the message cannot name its
// keys.
func (tx *Tx) ExclusiveKeys() [][]byte {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil
	}
	ex, ok := msg.(escrowd.Exclusive)
	if !ok {
		return nil
	}
	keys := ex.ExclusiveKeys()
	if keys == nil {
		return nil
	}
	for _, sig := range tx.Signatures {
		if addr := sig.Pubkey.Address(); addr != nil {
			keys = append(keys, addr)
		}
	}
	return keys
}

func (tx *Tx) Marshal() ([]byte, error) {
	return codec.Marshal(tx)
}

func (tx *Tx) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, tx)
}

// TxDecoder creates a Tx and unmarshals bytes into it
func TxDecoder(bz []byte) (escrowd.Tx, error) {
	tx := new(Tx)
	if err := tx.Unmarshal(bz); err != nil {
		return nil, err
	}
	return tx, nil
}
