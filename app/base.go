package app

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/crypto/tmhash"
)

// BaseApp completes StoreApp into an ABCI application by decoding every
// transaction and passing it to the handler stack.
type BaseApp struct {
	*StoreApp
	decoder escrowd.TxDecoder
	handler escrowd.Handler
	sink    escrowd.EventSink
	debug   bool
}

var _ abci.Application = BaseApp{}

// NewBaseApp returns an application running handler on top of store. In
// debug mode internal error messages are returned to clients.
func NewBaseApp(store *StoreApp, decoder escrowd.TxDecoder, handler escrowd.Handler, debug bool) BaseApp {
	return BaseApp{
		StoreApp: store,
		decoder:  decoder,
		handler:  handler,
		debug:    debug,
	}
}

// WithEventSink returns a copy of the application that forwards the tags
// of every successfully delivered transaction to given sink.
func (b BaseApp) WithEventSink(sink escrowd.EventSink) BaseApp {
	b.sink = sink
	return b
}

func (b BaseApp) DeliverTx(raw []byte) abci.ResponseDeliverTx {
	tx, err := b.decode(raw)
	if err != nil {
		return escrowd.DeliverTxError(err, b.debug)
	}
	ctx := escrowd.WithTxHash(b.txContext("deliver_tx", tx), tmhash.Sum(raw))
	res, err := b.handler.Deliver(ctx, b.DeliverStore(), tx)
	if err == nil {
		b.emit(ctx, res)
	}
	return escrowd.DeliverOrError(res, err, b.debug)
}

func (b BaseApp) CheckTx(raw []byte) abci.ResponseCheckTx {
	tx, err := b.decode(raw)
	if err != nil {
		return escrowd.CheckTxError(err, b.debug)
	}
	ctx := b.txContext("check_tx", tx)
	res, err := b.handler.Check(ctx, b.CheckStore(), tx)
	return escrowd.CheckOrError(res, err, b.debug)
}

func (b BaseApp) txContext(call string, tx escrowd.Tx) escrowd.Context {
	return escrowd.WithLogInfo(b.BlockContext(), "call", call, "path", escrowd.GetPath(tx))
}

// emit forwards the result tags to the sink. The transaction is already
// applied, so a sink failure is only logged. A block replayed after a
// crash emits again, so sinks deduplicate on height and transaction hash.
func (b BaseApp) emit(ctx escrowd.Context, res *escrowd.DeliverResult) {
	if b.sink == nil || res == nil || len(res.Tags) == 0 {
		return
	}
	if err := b.sink.Emit(ctx, res.Tags); err != nil {
		escrowd.GetLogger(ctx).Error("cannot emit event", "err", err)
	}
}

// decode runs the decoder. Malformed input must not crash the node, so a
// panic is returned as an error.
func (b BaseApp) decode(raw []byte) (tx escrowd.Tx, err error) {
	defer errors.Recover(&err)
	return b.decoder(raw)
}
