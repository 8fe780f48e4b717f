package escrowd

import (
	"encoding/json"

	"github.com/tendermint/tendermint/libs/common"
)

// Handler processes the messages routed to it. Check must be cheap and
// may skip work that only matters on delivery. Deliver performs the state
// transition.
type Handler interface {
	Checker
	Deliverer
}

type Checker interface {
	Check(ctx Context, store KVStore, tx Tx) (*CheckResult, error)
}

type Deliverer interface {
	Deliver(ctx Context, store KVStore, tx Tx) (*DeliverResult, error)
}

// Decorator is middleware around a Handler, for example signature
// verification or panic recovery. It calls next to continue the chain.
type Decorator interface {
	Check(ctx Context, store KVStore, tx Tx, next Checker) (*CheckResult, error)
	Deliver(ctx Context, store KVStore, tx Tx, next Deliverer) (*DeliverResult, error)
}

// Registry binds handlers to message paths.
type Registry interface {
	Handle(m Msg, h Handler)
}

// EventSink receives the tags of every successfully delivered
// transaction. It is an observer only: an error returned by the
// sink never rolls back the transaction.
type EventSink interface {
	Emit(ctx Context, tags []common.KVPair) error
}

// Options is the genesis app_state, one raw JSON document per extension.
type Options map[string]json.RawMessage

// ReadOptions decodes the document stored under key into obj. A missing
// key leaves obj untouched.
func (o Options) ReadOptions(key string, obj interface{}) error {
	raw, ok := o[key]
	if !ok || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, obj)
}

// Initializer loads the genesis state of an extension.
type Initializer interface {
	FromGenesis(Options, KVStore) error
}

// ChainInitializers runs every initializer in order and stops at the
// first failure.
func ChainInitializers(inits ...Initializer) Initializer {
	return initializers(inits)
}

type initializers []Initializer

func (all initializers) FromGenesis(opts Options, kv KVStore) error {
	for _, init := range all {
		if err := init.FromGenesis(opts, kv); err != nil {
			return err
		}
	}
	return nil
}
