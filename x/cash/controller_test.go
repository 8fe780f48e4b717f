package cash

import (
	"math"
	"testing"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store"
	"github.com/iov-one/escrowd/weavetest"
	"github.com/iov-one/escrowd/weavetest/assert"
)

func TestMoveCoins(t *testing.T) {
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	cases := map[string]struct {
		aliceBalance uint64
		bobBalance   uint64
		src          escrowd.Address
		dest         escrowd.Address
		amount       uint64
		wantErr      *errors.Error
		wantAlice    uint64
		wantBob      uint64
	}{
		"full balance": {
			aliceBalance: 100,
			src:          alice,
			dest:         bob,
			amount:       100,
			wantAlice:    0,
			wantBob:      100,
		},
		"partial balance": {
			aliceBalance: 100,
			bobBalance:   5,
			src:          alice,
			dest:         bob,
			amount:       30,
			wantAlice:    70,
			wantBob:      35,
		},
		"insufficient funds": {
			aliceBalance: 10,
			src:          alice,
			dest:         bob,
			amount:       11,
			wantErr:      errors.ErrInsufficientAmount,
			wantAlice:    10,
		},
		"missing wallet": {
			src:     alice,
			dest:    bob,
			amount:  1,
			wantErr: errors.ErrInsufficientAmount,
		},
		"zero amount": {
			aliceBalance: 10,
			src:          alice,
			dest:         bob,
			wantErr:      errors.ErrInvalidAmount,
			wantAlice:    10,
		},
		"overflow": {
			aliceBalance: 10,
			bobBalance:   math.MaxUint64 - 5,
			src:          alice,
			dest:         bob,
			amount:       6,
			wantErr:      errors.ErrOverflow,
			wantAlice:    10,
			wantBob:      math.MaxUint64 - 5,
		},
		"invalid destination": {
			aliceBalance: 10,
			src:          alice,
			dest:         escrowd.Address("short"),
			amount:       1,
			wantErr:      errors.ErrInvalidInput,
			wantAlice:    10,
		},
		"self transfer": {
			aliceBalance: 10,
			src:          alice,
			dest:         alice,
			amount:       4,
			wantAlice:    10,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			ctrl := NewController(NewBucket())
			assert.Nil(t, ctrl.CoinMint(db, alice, tc.aliceBalance))
			assert.Nil(t, ctrl.CoinMint(db, bob, tc.bobBalance))

			err := ctrl.MoveCoins(db, tc.src, tc.dest, tc.amount)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}

			a, err := ctrl.Balance(db, alice)
			assert.Nil(t, err)
			assert.Equal(t, tc.wantAlice, a)
			b, err := ctrl.Balance(db, bob)
			assert.Nil(t, err)
			assert.Equal(t, tc.wantBob, b)
		})
	}
}

func TestBalanceOfUnknownAddress(t *testing.T) {
	ctrl := NewController(NewBucket())
	b, err := ctrl.Balance(store.MemStore(), weavetest.NewCondition().Address())
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), b)
}

func TestCoinMintOverflow(t *testing.T) {
	db := store.MemStore()
	addr := weavetest.NewCondition().Address()
	ctrl := NewController(NewBucket())

	assert.Nil(t, ctrl.CoinMint(db, addr, math.MaxUint64))
	assert.IsErr(t, errors.ErrOverflow, ctrl.CoinMint(db, addr, 1))
	assert.IsErr(t, errors.ErrInvalidInput, ctrl.CoinMint(db, nil, 1))
}

func TestEmptyWalletIsDeleted(t *testing.T) {
	db := store.MemStore()
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	ctrl := NewController(NewBucket())

	assert.Nil(t, ctrl.CoinMint(db, alice, 7))
	assert.Nil(t, ctrl.MoveCoins(db, alice, bob, 7))

	var w Wallet
	assert.IsErr(t, errors.ErrNotFound, NewBucket().One(db, alice, &w))
}
