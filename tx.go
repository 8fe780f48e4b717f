package escrowd

import (
	"github.com/iov-one/escrowd/errors"
)

// Msg is a requested state transition, such as funding an escrow. A
// message carries no authentication. Handlers read the signers from the
// context.
type Msg interface {
	Persistent

	// Path routes the message to its handler, for example
	// "escrow/release". Paths are made of [0-9A-Za-z_\-/].
	Path() string

	// Validate checks the message on its own, without reading state.
	Validate() error
}

// Marshaller can serialize itself.
type Marshaller interface {
	Marshal() ([]byte, error)
}

// Persistent can serialize and deserialize itself.
type Persistent interface {
	Marshaller
	Unmarshal([]byte) error
}

// Tx is what a client submits: a message together with what the
// decorators need, signatures in particular. Every application declares
// its own Tx type.
type Tx interface {
	Persistent
	GetMsg() (Msg, error)
}

// Exclusive is implemented by messages and transactions that can name
// every piece of state they read and write. Two transactions with
// disjoint exclusive keys never observe each other and may be executed
// in parallel. Keys are opaque lock names, not database keys.
type Exclusive interface {
	ExclusiveKeys() [][]byte
}

// GetPath returns the path of the message of tx, or "(missing)".
func GetPath(tx Tx) string {
	if msg, err := tx.GetMsg(); err == nil && msg != nil {
		return msg.Path()
	}
	return "(missing)"
}

// TxDecoder parses the raw bytes received from tendermint.
type TxDecoder func(txBytes []byte) (Tx, error)

// LoadMsg copies the message of tx into destination, which must point to
// a value of the message type, and validates it.
//
//	var msg CreateMsg
//	if err := escrowd.LoadMsg(tx, &msg); err != nil {
//		return err
//	}
func LoadMsg(tx Tx, destination interface{}) error {
	msg, err := tx.GetMsg()
	switch {
	case err != nil:
		return errors.Wrap(err, "transaction message")
	case msg == nil:
		return errors.Wrap(errors.ErrInvalidMsg, "transaction without a message")
	}
	if err := setPtr(destination, msg); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	return nil
}
