package escrow

import (
	"context"
	"testing"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store"
	"github.com/iov-one/escrowd/weavetest"
	"github.com/iov-one/escrowd/weavetest/assert"
	"github.com/iov-one/escrowd/x/cash"
	"github.com/stretchr/testify/require"
)

type router map[string]escrowd.Handler

func (r router) Handle(m escrowd.Msg, h escrowd.Handler) {
	r[m.Path()] = h
}

func newRouter() router {
	r := make(router)
	RegisterRoutes(r, &weavetest.CtxAuth{Key: "auth"}, cash.NewController(cash.NewBucket()))
	return r
}

func TestHandlers(t *testing.T) {
	auth := &weavetest.CtxAuth{Key: "auth"}
	initializer := weavetest.NewCondition()
	receiver := weavetest.NewCondition()
	stranger := weavetest.NewCondition()
	id := EscrowID(initializer.Address(), receiver.Address())

	type action struct {
		msg       escrowd.Msg
		signers   []escrowd.Condition
		wantCheck *errors.Error
		// wantDeliver defaults to wantCheck.
		wantDeliver *errors.Error
	}

	cases := map[string]struct {
		actions      []action
		wantReceiver uint64
		wantInit     uint64
		wantCustody  uint64
		wantSettled  bool
	}{
		"create, fund and release": {
			actions: []action{
				{msg: &CreateMsg{Receiver: receiver.Address(), Amount: 100}, signers: []escrowd.Condition{initializer}},
				{msg: &FundMsg{EscrowID: id}, signers: []escrowd.Condition{initializer}},
				{msg: &ReleaseMsg{EscrowID: id}, signers: []escrowd.Condition{initializer}},
			},
			wantReceiver: 100,
			wantInit:     900,
			wantSettled:  true,
		},
		"create, fund and cancel": {
			actions: []action{
				{msg: &CreateMsg{Initializer: initializer.Address(), Receiver: receiver.Address(), Amount: 100}, signers: []escrowd.Condition{initializer}},
				{msg: &FundMsg{EscrowID: id}, signers: []escrowd.Condition{initializer}},
				{msg: &CancelMsg{EscrowID: id}, signers: []escrowd.Condition{initializer}},
			},
			wantInit:    1000,
			wantSettled: true,
		},
		"release with matching receiver assertion": {
			actions: []action{
				{msg: &CreateMsg{Receiver: receiver.Address(), Amount: 100}, signers: []escrowd.Condition{initializer}},
				{msg: &FundMsg{EscrowID: id}, signers: []escrowd.Condition{initializer}},
				{msg: &ReleaseMsg{EscrowID: id, Receiver: receiver.Address()}, signers: []escrowd.Condition{initializer}},
			},
			wantReceiver: 100,
			wantInit:     900,
			wantSettled:  true,
		},
		"release to a different receiver": {
			actions: []action{
				{msg: &CreateMsg{Receiver: receiver.Address(), Amount: 100}, signers: []escrowd.Condition{initializer}},
				{msg: &FundMsg{EscrowID: id}, signers: []escrowd.Condition{initializer}},
				{msg: &ReleaseMsg{EscrowID: id, Receiver: stranger.Address()}, signers: []escrowd.Condition{initializer}, wantCheck: errors.ErrUnauthorized},
			},
			wantInit:    900,
			wantCustody: 100,
		},
		"initializer among several signers": {
			actions: []action{
				{msg: &CreateMsg{Initializer: initializer.Address(), Receiver: receiver.Address(), Amount: 100}, signers: []escrowd.Condition{stranger, initializer}},
				{msg: &FundMsg{EscrowID: id}, signers: []escrowd.Condition{receiver, initializer}},
				{msg: &ReleaseMsg{EscrowID: id}, signers: []escrowd.Condition{stranger, initializer}},
			},
			wantReceiver: 100,
			wantInit:     900,
			wantSettled:  true,
		},
		"create for an initializer that did not sign": {
			actions: []action{
				{msg: &CreateMsg{Initializer: initializer.Address(), Receiver: receiver.Address(), Amount: 100}, signers: []escrowd.Condition{stranger}, wantCheck: errors.ErrUnauthorized},
			},
			wantInit: 1000,
		},
		"create twice": {
			actions: []action{
				{msg: &CreateMsg{Receiver: receiver.Address(), Amount: 100}, signers: []escrowd.Condition{initializer}},
				{msg: &CreateMsg{Receiver: receiver.Address(), Amount: 5}, signers: []escrowd.Condition{initializer}, wantCheck: errors.ErrDuplicate},
			},
			wantInit: 1000,
		},
		"create to self": {
			actions: []action{
				{msg: &CreateMsg{Receiver: initializer.Address(), Amount: 100}, signers: []escrowd.Condition{initializer}, wantCheck: errors.ErrInvalidInput},
			},
			wantInit: 1000,
		},
		"unsigned create": {
			actions: []action{
				{msg: &CreateMsg{Receiver: receiver.Address(), Amount: 100}, wantCheck: errors.ErrUnauthorized},
			},
			wantInit: 1000,
		},
		"receiver cannot release": {
			actions: []action{
				{msg: &CreateMsg{Receiver: receiver.Address(), Amount: 100}, signers: []escrowd.Condition{initializer}},
				{msg: &FundMsg{EscrowID: id}, signers: []escrowd.Condition{initializer}},
				{msg: &ReleaseMsg{EscrowID: id}, signers: []escrowd.Condition{receiver}, wantCheck: errors.ErrUnauthorized},
				{msg: &CancelMsg{EscrowID: id}, signers: []escrowd.Condition{receiver}, wantCheck: errors.ErrUnauthorized},
			},
			wantInit:    900,
			wantCustody: 100,
		},
		"release before funding": {
			actions: []action{
				{msg: &CreateMsg{Receiver: receiver.Address(), Amount: 100}, signers: []escrowd.Condition{initializer}},
				{msg: &ReleaseMsg{EscrowID: id}, signers: []escrowd.Condition{initializer}, wantDeliver: ErrNotFunded},
			},
			wantInit: 1000,
		},
		"fund above balance": {
			actions: []action{
				{msg: &CreateMsg{Receiver: receiver.Address(), Amount: 1001}, signers: []escrowd.Condition{initializer}},
				{msg: &FundMsg{EscrowID: id}, signers: []escrowd.Condition{initializer}, wantDeliver: errors.ErrInsufficientAmount},
			},
			wantInit: 1000,
		},
		"second release": {
			actions: []action{
				{msg: &CreateMsg{Receiver: receiver.Address(), Amount: 100}, signers: []escrowd.Condition{initializer}},
				{msg: &FundMsg{EscrowID: id}, signers: []escrowd.Condition{initializer}},
				{msg: &ReleaseMsg{EscrowID: id}, signers: []escrowd.Condition{initializer}},
				{msg: &ReleaseMsg{EscrowID: id}, signers: []escrowd.Condition{initializer}, wantCheck: ErrAlreadyReleased},
				{msg: &CancelMsg{EscrowID: id}, signers: []escrowd.Condition{initializer}, wantCheck: ErrAlreadyReleased},
			},
			wantReceiver: 100,
			wantInit:     900,
			wantSettled:  true,
		},
		"malformed id": {
			actions: []action{
				{msg: &FundMsg{EscrowID: []byte("short")}, signers: []escrowd.Condition{initializer}, wantCheck: errors.ErrInvalidInput},
			},
			wantInit: 1000,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			bank := cash.NewController(cash.NewBucket())
			require.NoError(t, bank.CoinMint(db, initializer.Address(), 1000))
			r := newRouter()

			for i, a := range tc.actions {
				ctx := auth.SetConditions(context.Background(), a.signers...)
				tx := &weavetest.Tx{Msg: a.msg}
				h := r[a.msg.Path()]

				cache := db.CacheWrap()
				_, err := h.Check(ctx, cache, tx)
				cache.Discard()
				if a.wantCheck != nil {
					assert.IsErr(t, a.wantCheck, err)
				} else {
					require.NoErrorf(t, err, "action %d", i)
				}

				wantDeliver := a.wantDeliver
				if wantDeliver == nil {
					wantDeliver = a.wantCheck
				}
				res, err := h.Deliver(ctx, db, tx)
				assert.IsErr(t, wantDeliver, err)
				if wantDeliver == nil {
					require.Equal(t, a.msg.Path(), string(res.Tags[0].Value))
				}
			}

			bal := func(a escrowd.Address) uint64 {
				v, err := bank.Balance(db, a)
				require.NoError(t, err)
				return v
			}
			assert.Equal(t, tc.wantReceiver, bal(receiver.Address()))
			assert.Equal(t, tc.wantInit, bal(initializer.Address()))
			assert.Equal(t, tc.wantCustody, bal(Condition(id).Address()))

			var e Escrow
			switch err := NewBucket().One(db, id, &e); {
			case errors.ErrNotFound.Is(err):
				assert.Equal(t, false, tc.wantSettled)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.wantSettled, e.Settled)
			}
		})
	}
}
