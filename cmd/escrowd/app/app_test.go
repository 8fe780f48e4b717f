package app

import (
	"fmt"
	"testing"
	"time"

	"github.com/iov-one/escrowd"
	weaveapp "github.com/iov-one/escrowd/app"
	"github.com/iov-one/escrowd/crypto"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/weavetest"
	"github.com/iov-one/escrowd/weavetest/assert"
	"github.com/iov-one/escrowd/x/cash"
	"github.com/iov-one/escrowd/x/escrow"
	"github.com/iov-one/escrowd/x/sigs"
	"github.com/stretchr/testify/require"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

const testChainID = "test-chain-esc"

type testChain struct {
	t      testing.TB
	app    weaveapp.BaseApp
	height int64
}

func newTestChain(t testing.TB, accounts ...string) *testChain {
	t.Helper()
	kv, err := CommitKVStore("")
	require.NoError(t, err)
	base := Application(kv, log.NewNopLogger(), false)

	state, err := GenInitOptions(accounts)
	require.NoError(t, err)
	base.InitChain(abci.RequestInitChain{ChainId: testChainID, AppStateBytes: state})
	base.Commit()
	return &testChain{t: t, app: base}
}

// deliver signs msg with every key and delivers it in a block of its own.
func (c *testChain) deliver(msg escrowd.Msg, keys ...crypto.Signer) abci.ResponseDeliverTx {
	c.t.Helper()
	raw := c.sign(msg, keys...)

	c.beginBlock()
	res := c.app.DeliverTx(raw)
	c.app.EndBlock(abci.RequestEndBlock{Height: c.height})
	c.app.Commit()
	return res
}

func (c *testChain) beginBlock() {
	c.height++
	c.app.BeginBlock(abci.RequestBeginBlock{
		Header: abci.Header{Height: c.height, Time: time.Now(), ChainID: testChainID},
	})
}

func (c *testChain) sign(msg escrowd.Msg, keys ...crypto.Signer) []byte {
	c.t.Helper()
	tx, err := NewTx(msg)
	require.NoError(c.t, err)
	for _, k := range keys {
		seq, err := sigs.NextNonce(c.app.DeliverStore(), k.PublicKey().Address())
		require.NoError(c.t, err)
		sig, err := sigs.SignTx(k, tx, testChainID, seq)
		require.NoError(c.t, err)
		tx.Signatures = append(tx.Signatures, sig)
	}
	raw, err := tx.Marshal()
	require.NoError(c.t, err)
	return raw
}

func (c *testChain) balance(addr escrowd.Address) uint64 {
	c.t.Helper()
	res := c.app.Query(abci.RequestQuery{Path: "/wallets", Data: addr})
	require.Equal(c.t, uint32(0), res.Code, res.Log)
	var w cash.Wallet
	if err := weaveapp.UnmarshalOneResult(res.Value, &w); err != nil {
		require.True(c.t, errors.ErrNotFound.Is(err), "unexpected error: %s", err)
		return 0
	}
	return w.Balance
}

func (c *testChain) escrow(id []byte) *escrow.Escrow {
	c.t.Helper()
	res := c.app.Query(abci.RequestQuery{Path: "/escrows", Data: id})
	require.Equal(c.t, uint32(0), res.Code, res.Log)
	var e escrow.Escrow
	require.NoError(c.t, weaveapp.UnmarshalOneResult(res.Value, &e))
	return &e
}

func account(k crypto.Signer, balance uint64) string {
	return fmt.Sprintf("%s:%d", k.PublicKey().Address(), balance)
}

func assertCode(t testing.TB, want *errors.Error, res abci.ResponseDeliverTx) {
	t.Helper()
	var code uint32
	if want != nil {
		code = want.ABCICode()
	}
	if res.Code != code {
		t.Fatalf("want code %d, got %d: %s", code, res.Code, res.Log)
	}
}

func TestEscrowLifecycle(t *testing.T) {
	alice := weavetest.NewKey()
	bob := weavetest.NewKey()
	carol := weavetest.NewKey()
	aliceAddr := alice.PublicKey().Address()
	bobAddr := bob.PublicKey().Address()
	id := escrow.EscrowID(aliceAddr, bobAddr)

	type step struct {
		msg  escrowd.Msg
		keys []crypto.Signer
		want *errors.Error
	}

	cases := map[string]struct {
		steps       []step
		wantAlice   uint64
		wantBob     uint64
		wantSettled bool
		noEscrow    bool
	}{
		"create, fund and release": {
			steps: []step{
				{msg: &escrow.CreateMsg{Receiver: bobAddr, Amount: 100}, keys: []crypto.Signer{alice}},
				{msg: &escrow.FundMsg{EscrowID: id}, keys: []crypto.Signer{alice}},
				{msg: &escrow.ReleaseMsg{EscrowID: id}, keys: []crypto.Signer{alice}},
			},
			wantAlice:   900,
			wantBob:     100,
			wantSettled: true,
		},
		"create, fund and cancel": {
			steps: []step{
				{msg: &escrow.CreateMsg{Receiver: bobAddr, Amount: 100}, keys: []crypto.Signer{alice}},
				{msg: &escrow.FundMsg{EscrowID: id}, keys: []crypto.Signer{alice}},
				{msg: &escrow.CancelMsg{EscrowID: id}, keys: []crypto.Signer{alice}},
			},
			wantAlice:   1000,
			wantSettled: true,
		},
		"release without funding": {
			steps: []step{
				{msg: &escrow.CreateMsg{Receiver: bobAddr, Amount: 100}, keys: []crypto.Signer{alice}},
				{msg: &escrow.ReleaseMsg{EscrowID: id}, keys: []crypto.Signer{alice}, want: escrow.ErrNotFunded},
			},
			wantAlice: 1000,
		},
		"receiver cannot release": {
			steps: []step{
				{msg: &escrow.CreateMsg{Receiver: bobAddr, Amount: 100}, keys: []crypto.Signer{alice}},
				{msg: &escrow.FundMsg{EscrowID: id}, keys: []crypto.Signer{alice}},
				{msg: &escrow.ReleaseMsg{EscrowID: id}, keys: []crypto.Signer{bob}, want: errors.ErrUnauthorized},
				{msg: &escrow.CancelMsg{EscrowID: id}, keys: []crypto.Signer{carol}, want: errors.ErrUnauthorized},
			},
			wantAlice: 900,
		},
		"settles only once": {
			steps: []step{
				{msg: &escrow.CreateMsg{Receiver: bobAddr, Amount: 100}, keys: []crypto.Signer{alice}},
				{msg: &escrow.FundMsg{EscrowID: id}, keys: []crypto.Signer{alice}},
				{msg: &escrow.ReleaseMsg{EscrowID: id}, keys: []crypto.Signer{alice}},
				{msg: &escrow.CancelMsg{EscrowID: id}, keys: []crypto.Signer{alice}, want: escrow.ErrAlreadyReleased},
				{msg: &escrow.ReleaseMsg{EscrowID: id}, keys: []crypto.Signer{alice}, want: escrow.ErrAlreadyReleased},
			},
			wantAlice:   900,
			wantBob:     100,
			wantSettled: true,
		},
		"fund over balance": {
			steps: []step{
				{msg: &escrow.CreateMsg{Receiver: bobAddr, Amount: 5000}, keys: []crypto.Signer{alice}},
				{msg: &escrow.FundMsg{EscrowID: id}, keys: []crypto.Signer{alice}, want: errors.ErrInsufficientAmount},
			},
			wantAlice: 1000,
		},
		"unsigned transaction": {
			steps: []step{
				{msg: &escrow.CreateMsg{Initializer: aliceAddr, Receiver: bobAddr, Amount: 100}, want: errors.ErrUnauthorized},
			},
			wantAlice: 1000,
			noEscrow:  true,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			chain := newTestChain(t, account(alice, 1000))
			for i, s := range tc.steps {
				res := chain.deliver(s.msg, s.keys...)
				if res.Code != 0 && s.want == nil {
					t.Fatalf("step %d: %s", i, res.Log)
				}
				assertCode(t, s.want, res)
			}
			assert.Equal(t, tc.wantAlice, chain.balance(aliceAddr))
			assert.Equal(t, tc.wantBob, chain.balance(bobAddr))

			if tc.noEscrow {
				res := chain.app.Query(abci.RequestQuery{Path: "/escrows", Data: id})
				var e escrow.Escrow
				assert.IsErr(t, errors.ErrNotFound, weaveapp.UnmarshalOneResult(res.Value, &e))
				return
			}
			e := chain.escrow(id)
			assert.Equal(t, tc.wantSettled, e.Settled)
			if e.Settled {
				assert.Equal(t, uint64(0), chain.balance(e.Address))
			}
		})
	}
}

func TestReplayedTransactionIsRejected(t *testing.T) {
	alice := weavetest.NewKey()
	bob := weavetest.NewKey()
	chain := newTestChain(t, account(alice, 1000))

	msg := &escrow.CreateMsg{Receiver: bob.PublicKey().Address(), Amount: 10}
	raw := chain.sign(msg, alice)

	chain.beginBlock()
	res := chain.app.DeliverTx(raw)
	assertCode(t, nil, res)
	res = chain.app.DeliverTx(raw)
	assertCode(t, sigs.ErrInvalidSequence, res)
}

func TestCreateResultCarriesTags(t *testing.T) {
	alice := weavetest.NewKey()
	bob := weavetest.NewKey()
	chain := newTestChain(t, account(alice, 1000))

	res := chain.deliver(&escrow.CreateMsg{Receiver: bob.PublicKey().Address(), Amount: 10}, alice)
	assertCode(t, nil, res)
	assert.Equal(t, escrow.EscrowID(alice.PublicKey().Address(), bob.PublicKey().Address()), []byte(res.Data))

	tags := make(map[string]string)
	for _, tag := range res.Tags {
		tags[string(tag.Key)] = string(tag.Value)
	}
	assert.Equal(t, "escrow/create", tags[escrow.TagAction])
	assert.Equal(t, "10", tags[escrow.TagAmount])
}

func TestGenesisEscrows(t *testing.T) {
	alice := weavetest.NewKey()
	bob := weavetest.NewKey()
	aliceAddr := alice.PublicKey().Address()
	bobAddr := bob.PublicKey().Address()

	kv, err := CommitKVStore("")
	require.NoError(t, err)
	base := Application(kv, log.NewNopLogger(), false)
	state := fmt.Sprintf(`{
		"cash": [],
		"escrow": [{"initializer": %q, "receiver": %q, "amount": 42, "funded": true}]
	}`, aliceAddr, bobAddr)
	base.InitChain(abci.RequestInitChain{ChainId: testChainID, AppStateBytes: []byte(state)})
	base.Commit()

	chain := &testChain{t: t, app: base}
	id := escrow.EscrowID(aliceAddr, bobAddr)
	e := chain.escrow(id)
	assert.Equal(t, uint64(42), chain.balance(e.Address))

	assertCode(t, nil, chain.deliver(&escrow.ReleaseMsg{EscrowID: id}, alice))
	assert.Equal(t, uint64(42), chain.balance(bobAddr))
}
