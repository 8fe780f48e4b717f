package escrow

import (
	"fmt"
	"strconv"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/x"
	"github.com/iov-one/escrowd/x/cash"
	"github.com/tendermint/tendermint/libs/common"
)

const (
	createEscrowCost  int64 = 300
	fundEscrowCost    int64 = 100
	releaseEscrowCost int64 = 50
	cancelEscrowCost  int64 = 50
)

// Tag keys attached to the result of every delivered escrow message.
const (
	TagAction      = "action"
	TagEscrow      = "escrow"
	TagInitializer = "initializer"
	TagReceiver    = "receiver"
	TagAmount      = "amount"
)

// RegisterRoutes will instantiate and register
// all handlers in this package
func RegisterRoutes(r escrowd.Registry, auth x.Authenticator, bank cash.Controller) {
	ctrl := NewController(NewBucket(), bank)
	r.Handle(&CreateMsg{}, CreateHandler{auth: auth, ctrl: ctrl})
	r.Handle(&FundMsg{}, FundHandler{auth: auth, ctrl: ctrl})
	r.Handle(&ReleaseMsg{}, ReleaseHandler{auth: auth, ctrl: ctrl})
	r.Handle(&CancelMsg{}, CancelHandler{auth: auth, ctrl: ctrl})
}

// RegisterQuery will register this bucket as "/escrows"
func RegisterQuery(qr escrowd.QueryRouter) {
	NewBucket().Register("escrows", qr)
}

// CreateHandler stores new escrows.
type CreateHandler struct {
	auth x.Authenticator
	ctrl Controller
}

var _ escrowd.Handler = CreateHandler{}

// Check just verifies it is properly formed and returns
// the cost of executing it.
func (h CreateHandler) Check(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	msg, initializer, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	_, err = h.ctrl.Get(db, EscrowID(initializer, msg.Receiver))
	switch {
	case err == nil:
		return nil, errors.Wrap(errors.ErrDuplicate, "escrow exists")
	case !errors.ErrNotFound.Is(err):
		return nil, err
	}
	return &escrowd.CheckResult{GasAllocated: createEscrowCost}, nil
}

// Deliver stores the escrow. No funds are moved.
func (h CreateHandler) Deliver(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	msg, initializer, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	e, id, err := h.ctrl.Create(db, initializer, msg.Receiver, msg.Amount)
	if err != nil {
		return nil, err
	}
	return &escrowd.DeliverResult{
		Data: id,
		Log:  "escrow created",
		Tags: tags(msg.Path(), e),
	}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h CreateHandler) validate(ctx escrowd.Context, tx escrowd.Tx) (*CreateMsg, escrowd.Address, error) {
	var msg CreateMsg
	if err := escrowd.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	initializer := msg.Initializer
	if initializer == nil {
		signer := x.MainSigner(ctx, h.auth)
		if signer == nil {
			return nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
		}
		initializer = signer.Address()
	}
	if !h.auth.HasAddress(ctx, initializer) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "initializer must sign")
	}
	if initializer.Equals(msg.Receiver) {
		return nil, nil, errors.Wrap(errors.ErrInvalidInput, "initializer and receiver must differ")
	}
	return &msg, initializer, nil
}

// FundHandler moves funds into custody.
type FundHandler struct {
	auth x.Authenticator
	ctrl Controller
}

var _ escrowd.Handler = FundHandler{}

// Check verifies the caller may fund the escrow.
func (h FundHandler) Check(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	msg, caller, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	if _, err := h.ctrl.Authorize(db, msg.EscrowID, caller); err != nil {
		return nil, err
	}
	return &escrowd.CheckResult{GasAllocated: fundEscrowCost}, nil
}

// Deliver moves the escrow amount from the initializer into custody.
func (h FundHandler) Deliver(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	msg, caller, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	e, err := h.ctrl.Fund(db, msg.EscrowID, caller)
	if err != nil {
		return nil, err
	}
	return &escrowd.DeliverResult{
		Log:  "escrow funded",
		Tags: tags(msg.Path(), e),
	}, nil
}

func (h FundHandler) validate(ctx escrowd.Context, tx escrowd.Tx) (*FundMsg, escrowd.Address, error) {
	var msg FundMsg
	if err := escrowd.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	caller, err := callerOf(ctx, h.auth, msg.EscrowID)
	if err != nil {
		return nil, nil, err
	}
	return &msg, caller, nil
}

// ReleaseHandler pays escrowed funds to the receiver.
type ReleaseHandler struct {
	auth x.Authenticator
	ctrl Controller
}

var _ escrowd.Handler = ReleaseHandler{}

// Check verifies the caller may release the escrow.
func (h ReleaseHandler) Check(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &escrowd.CheckResult{GasAllocated: releaseEscrowCost}, nil
}

// Deliver pays the escrow amount to the stored receiver and settles the
// escrow.
func (h ReleaseHandler) Deliver(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	msg, caller, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	e, err := h.ctrl.Release(db, msg.EscrowID, caller)
	if err != nil {
		return nil, err
	}
	return &escrowd.DeliverResult{
		Log:  "escrow released",
		Tags: tags(msg.Path(), e),
	}, nil
}

func (h ReleaseHandler) validate(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*ReleaseMsg, escrowd.Address, error) {
	var msg ReleaseMsg
	if err := escrowd.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	caller, err := callerOf(ctx, h.auth, msg.EscrowID)
	if err != nil {
		return nil, nil, err
	}
	e, err := h.ctrl.Authorize(db, msg.EscrowID, caller)
	if err != nil {
		return nil, nil, err
	}
	if msg.Receiver != nil && !msg.Receiver.Equals(e.Receiver) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "receiver does not match the escrow")
	}
	return &msg, caller, nil
}

// CancelHandler returns escrowed funds to the initializer.
type CancelHandler struct {
	auth x.Authenticator
	ctrl Controller
}

var _ escrowd.Handler = CancelHandler{}

// Check verifies the caller may cancel the escrow.
func (h CancelHandler) Check(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	msg, caller, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	if _, err := h.ctrl.Authorize(db, msg.EscrowID, caller); err != nil {
		return nil, err
	}
	return &escrowd.CheckResult{GasAllocated: cancelEscrowCost}, nil
}

// Deliver returns the escrow amount to the initializer and settles the
// escrow.
func (h CancelHandler) Deliver(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	msg, caller, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	e, err := h.ctrl.Cancel(db, msg.EscrowID, caller)
	if err != nil {
		return nil, err
	}
	return &escrowd.DeliverResult{
		Log:  "escrow cancelled",
		Tags: tags(msg.Path(), e),
	}, nil
}

func (h CancelHandler) validate(ctx escrowd.Context, tx escrowd.Tx) (*CancelMsg, escrowd.Address, error) {
	var msg CancelMsg
	if err := escrowd.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	caller, err := callerOf(ctx, h.auth, msg.EscrowID)
	if err != nil {
		return nil, nil, err
	}
	return &msg, caller, nil
}

// callerOf returns the initializer encoded in the escrow id if it signed
// the transaction, otherwise the main signer.
func callerOf(ctx escrowd.Context, auth x.Authenticator, id []byte) (escrowd.Address, error) {
	initializer, _, err := SplitID(id)
	if err != nil {
		return nil, err
	}
	if a := x.AnySigner(ctx, auth, initializer); a != nil {
		return a, nil
	}
	signer := x.MainSigner(ctx, auth)
	if signer == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	return signer.Address(), nil
}

func tags(action string, e *Escrow) []common.KVPair {
	return []common.KVPair{
		{Key: []byte(TagAction), Value: []byte(action)},
		{Key: []byte(TagEscrow), Value: []byte(fmt.Sprintf("%X", e.ID()))},
		{Key: []byte(TagInitializer), Value: []byte(e.Initializer.String())},
		{Key: []byte(TagReceiver), Value: []byte(e.Receiver.String())},
		{Key: []byte(TagAmount), Value: []byte(strconv.FormatUint(e.Amount, 10))},
	}
}
