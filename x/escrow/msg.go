package escrow

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/codec"
	"github.com/iov-one/escrowd/errors"
)

const (
	pathCreateMsg  = "escrow/create"
	pathFundMsg    = "escrow/fund"
	pathReleaseMsg = "escrow/release"
	pathCancelMsg  = "escrow/cancel"
)

var (
	_ escrowd.Msg       = (*CreateMsg)(nil)
	_ escrowd.Msg       = (*FundMsg)(nil)
	_ escrowd.Msg       = (*ReleaseMsg)(nil)
	_ escrowd.Msg       = (*CancelMsg)(nil)
	_ escrowd.Exclusive = (*CreateMsg)(nil)
	_ escrowd.Exclusive = (*FundMsg)(nil)
	_ escrowd.Exclusive = (*ReleaseMsg)(nil)
	_ escrowd.Exclusive = (*CancelMsg)(nil)
)

// CreateMsg creates an unfunded escrow. When Initializer is not set the
// main signer of the transaction is used.
type CreateMsg struct {
	Initializer escrowd.Address `json:"initializer,omitempty"`
	Receiver    escrowd.Address `json:"receiver"`
	Amount      uint64          `json:"amount"`
}

func (CreateMsg) Path() string {
	return pathCreateMsg
}

func (m *CreateMsg) Validate() error {
	var errs error
	if m.Initializer != nil {
		errs = errors.AppendField(errs, "Initializer", m.Initializer.Validate())
		if m.Initializer.Equals(m.Receiver) {
			errs = errors.AppendField(errs, "Receiver", errors.Wrap(errors.ErrInvalidInput, "same as initializer"))
		}
	}
	errs = errors.AppendField(errs, "Receiver", m.Receiver.Validate())
	if m.Amount == 0 {
		errs = errors.AppendField(errs, "Amount", errors.ErrInvalidAmount)
	}
	return errs
}

// ExclusiveKeys returns nil when the initializer is implied by the
// signer, which makes the transaction run alone.
func (m *CreateMsg) ExclusiveKeys() [][]byte {
	if m.Initializer == nil {
		return nil
	}
	return escrowKeys(EscrowID(m.Initializer, m.Receiver))
}

func (m *CreateMsg) Marshal() ([]byte, error) {
	return codec.Marshal(m)
}

func (m *CreateMsg) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, m)
}

// FundMsg moves the escrow amount from the initializer into custody.
type FundMsg struct {
	EscrowID []byte `json:"escrow_id"`
}

func (FundMsg) Path() string {
	return pathFundMsg
}

func (m *FundMsg) Validate() error {
	return validateID(m.EscrowID)
}

func (m *FundMsg) ExclusiveKeys() [][]byte {
	return escrowKeys(m.EscrowID)
}

func (m *FundMsg) Marshal() ([]byte, error) {
	return codec.Marshal(m)
}

func (m *FundMsg) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, m)
}

// ReleaseMsg pays the escrowed funds to the receiver. Receiver is an
// optional assertion of who gets paid; the funds always go to the
// receiver stored in the escrow.
type ReleaseMsg struct {
	EscrowID []byte          `json:"escrow_id"`
	Receiver escrowd.Address `json:"receiver,omitempty"`
}

func (ReleaseMsg) Path() string {
	return pathReleaseMsg
}

func (m *ReleaseMsg) Validate() error {
	errs := validateID(m.EscrowID)
	if m.Receiver != nil {
		errs = errors.AppendField(errs, "Receiver", m.Receiver.Validate())
	}
	return errs
}

func (m *ReleaseMsg) ExclusiveKeys() [][]byte {
	return escrowKeys(m.EscrowID)
}

func (m *ReleaseMsg) Marshal() ([]byte, error) {
	return codec.Marshal(m)
}

func (m *ReleaseMsg) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, m)
}

// CancelMsg returns the escrowed funds to the initializer.
type CancelMsg struct {
	EscrowID []byte `json:"escrow_id"`
}

func (CancelMsg) Path() string {
	return pathCancelMsg
}

func (m *CancelMsg) Validate() error {
	return validateID(m.EscrowID)
}

func (m *CancelMsg) ExclusiveKeys() [][]byte {
	return escrowKeys(m.EscrowID)
}

func (m *CancelMsg) Marshal() ([]byte, error) {
	return codec.Marshal(m)
}

func (m *CancelMsg) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, m)
}

func validateID(id []byte) error {
	initializer, receiver, err := SplitID(id)
	if err != nil {
		return errors.Field("EscrowID", err, "")
	}
	if initializer.Equals(receiver) {
		return errors.Field("EscrowID", errors.ErrInvalidInput, "initializer and receiver must differ")
	}
	return nil
}

// escrowKeys names every piece of state an operation on the escrow can
// touch: the record and the wallets of both parties and of custody.
func escrowKeys(id []byte) [][]byte {
	initializer, receiver, err := SplitID(id)
	if err != nil {
		return nil
	}
	return [][]byte{
		append([]byte(BucketName+":"), id...),
		initializer,
		receiver,
		Condition(id).Address(),
	}
}
