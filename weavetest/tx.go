package weavetest

import "github.com/iov-one/escrowd"

// Tx represents a transaction carrying a single message.
type Tx struct {
	// Msg is the message that is to be processed by this transaction.
	Msg escrowd.Msg
	// Err if set is returned by any method call.
	Err error
}

var _ escrowd.Tx = (*Tx)(nil)

func (tx *Tx) GetMsg() (escrowd.Msg, error) {
	return tx.Msg, tx.Err
}

func (tx *Tx) Unmarshal([]byte) error {
	panic("not implemented")
}

func (tx *Tx) Marshal() ([]byte, error) {
	panic("not implemented")
}

// Msg represents a message processed within a single transaction.
type Msg struct {
	// RoutePath is returned by the path method, consumed by the router.
	RoutePath string
	// Serialized represents the serialized form of this message.
	Serialized []byte
	// Err if set is returned by any method call.
	Err error
}

var _ escrowd.Msg = (*Msg)(nil)

func (m *Msg) Path() string {
	return m.RoutePath
}

func (m *Msg) Validate() error {
	return m.Err
}

func (m *Msg) Unmarshal(b []byte) error {
	m.Serialized = b
	return m.Err
}

func (m *Msg) Marshal() ([]byte, error) {
	return m.Serialized, m.Err
}

// LockedTx is a Tx that declares the keys it needs exclusive access to.
type LockedTx struct {
	Tx
	Keys [][]byte
}

var _ escrowd.Exclusive = (*LockedTx)(nil)

func (tx *LockedTx) ExclusiveKeys() [][]byte {
	return tx.Keys
}
