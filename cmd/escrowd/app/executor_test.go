package app

import (
	"context"
	"testing"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store"
	"github.com/iov-one/escrowd/weavetest"
	"github.com/iov-one/escrowd/weavetest/assert"
	"github.com/iov-one/escrowd/x/cash"
	"github.com/iov-one/escrowd/x/escrow"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestExecutorSettlesEscrowOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	const (
		rounds  = 20
		perKind = 10
		amount  = 100
		supply  = 10000
	)

	for round := 0; round < rounds; round++ {
		alice := weavetest.NewCondition()
		bob := weavetest.NewCondition().Address()
		id := escrow.EscrowID(alice.Address(), bob)
		custody := escrow.Condition(id).Address()

		db := store.MemStore()
		bank := cash.NewController(cash.NewBucket())
		require.NoError(t, bank.CoinMint(db, alice.Address(), supply))
		ex := Executor(db, &weavetest.Auth{Signer: alice})

		deliver := func(msg escrowd.Msg) error {
			tx, err := NewTx(msg)
			require.NoError(t, err)
			_, err = ex.Deliver(context.Background(), tx)
			return err
		}
		require.NoError(t, deliver(&escrow.CreateMsg{Receiver: bob, Amount: amount}))
		require.NoError(t, deliver(&escrow.FundMsg{EscrowID: id}))

		var txs []escrowd.Tx
		for i := 0; i < perKind; i++ {
			for _, msg := range []escrowd.Msg{
				&escrow.ReleaseMsg{EscrowID: id},
				&escrow.CancelMsg{EscrowID: id},
				&escrow.FundMsg{EscrowID: id},
			} {
				tx, err := NewTx(msg)
				require.NoError(t, err)
				txs = append(txs, tx)
			}
		}

		var settlements int
		var released bool
		for i, o := range ex.DeliverAll(context.Background(), 16, txs) {
			if o.Err != nil {
				assert.IsErr(t, escrow.ErrAlreadyReleased, o.Err)
				continue
			}
			if tx := txs[i].(*Tx); tx.Fund == nil {
				settlements++
				released = tx.Release != nil
			}
		}
		require.Equal(t, 1, settlements, "round %d", round)

		balance := func(addr escrowd.Address) uint64 {
			b, err := bank.Balance(db, addr)
			require.NoError(t, err)
			return b
		}
		assert.Equal(t, uint64(supply), balance(alice.Address())+balance(bob)+balance(custody))
		assert.Equal(t, uint64(0), balance(custody))
		if released {
			assert.Equal(t, uint64(amount), balance(bob))
		} else {
			assert.Equal(t, uint64(0), balance(bob))
		}

		e, err := escrow.NewController(escrow.NewBucket(), bank).Get(db, id)
		require.NoError(t, err)
		assert.Equal(t, true, e.Settled)
	}
}

func TestExecutorRejectsForeignSettlement(t *testing.T) {
	defer goleak.VerifyNone(t)

	alice := weavetest.NewCondition()
	bob := weavetest.NewCondition()
	id := escrow.EscrowID(alice.Address(), bob.Address())

	db := store.MemStore()
	bank := cash.NewController(cash.NewBucket())
	require.NoError(t, bank.CoinMint(db, alice.Address(), 100))

	setup := []escrowd.Msg{
		&escrow.CreateMsg{Receiver: bob.Address(), Amount: 100},
		&escrow.FundMsg{EscrowID: id},
	}
	auth := &weavetest.Auth{Signer: alice}
	ex := Executor(db, auth)
	for _, msg := range setup {
		tx, err := NewTx(msg)
		require.NoError(t, err)
		_, err = ex.Deliver(context.Background(), tx)
		require.NoError(t, err)
	}

	auth.Signer = bob
	tx, err := NewTx(&escrow.ReleaseMsg{EscrowID: id})
	require.NoError(t, err)
	_, err = ex.Deliver(context.Background(), tx)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	held, err := bank.Balance(db, escrow.Condition(id).Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), held)
}
