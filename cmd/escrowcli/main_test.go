package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iov-one/escrowd/client"
	"github.com/iov-one/escrowd/cmd/escrowd/app"
	"github.com/iov-one/escrowd/crypto"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/weavetest"
	"github.com/iov-one/escrowd/weavetest/assert"
	"github.com/iov-one/escrowd/x/escrow"
	"github.com/stretchr/testify/require"
	abci "github.com/tendermint/tendermint/abci/types"
	cmn "github.com/tendermint/tendermint/libs/common"
	"github.com/tendermint/tendermint/libs/log"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

const testChainID = "cli-test-chain"

// memNode commits every broadcast transaction in its own block.
type memNode struct {
	app    abci.Application
	height int64
}

func (n *memNode) ABCIQuery(path string, data cmn.HexBytes) (*ctypes.ResultABCIQuery, error) {
	return &ctypes.ResultABCIQuery{Response: n.app.Query(abci.RequestQuery{Path: path, Data: data})}, nil
}

func (n *memNode) BroadcastTxCommit(tx tmtypes.Tx) (*ctypes.ResultBroadcastTxCommit, error) {
	n.height++
	n.app.BeginBlock(abci.RequestBeginBlock{
		Header: abci.Header{Height: n.height, Time: time.Now(), ChainID: testChainID},
	})
	res := &ctypes.ResultBroadcastTxCommit{Hash: tx.Hash(), Height: n.height}
	if res.CheckTx = n.app.CheckTx(tx); !res.CheckTx.IsErr() {
		res.DeliverTx = n.app.DeliverTx(tx)
	}
	n.app.EndBlock(abci.RequestEndBlock{Height: n.height})
	n.app.Commit()
	return res, nil
}

func (n *memNode) Genesis() (*ctypes.ResultGenesis, error) {
	return &ctypes.ResultGenesis{Genesis: &tmtypes.GenesisDoc{ChainID: testChainID}}, nil
}

func (n *memNode) Status() (*ctypes.ResultStatus, error) {
	return &ctypes.ResultStatus{SyncInfo: ctypes.SyncInfo{LatestBlockHeight: n.height}}, nil
}

type fixture struct {
	t    *testing.T
	node *memNode
	cfg  Config
}

func newFixture(t *testing.T, key *crypto.PrivateKey, balance uint64) *fixture {
	t.Helper()
	kv, err := app.CommitKVStore("")
	require.NoError(t, err)
	base := app.Application(kv, log.NewNopLogger(), false)
	state, err := app.GenInitOptions([]string{fmt.Sprintf("%s:%d", key.PublicKey().Address(), balance)})
	require.NoError(t, err)
	base.InitChain(abci.RequestInitChain{ChainId: testChainID, AppStateBytes: state})
	base.Commit()

	keyPath := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, saveKey(keyPath, key, false))
	return &fixture{
		t:    t,
		node: &memNode{app: base},
		cfg:  Config{Node: "mem", Key: keyPath},
	}
}

func (f *fixture) run(args ...string) (string, error) {
	f.t.Helper()
	cli := &CLI{
		cfg: f.cfg,
		connect: func(remote string) *client.Client {
			return client.NewClient(f.node)
		},
	}
	cmd := cli.Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEscrowCommands(t *testing.T) {
	key := crypto.GenPrivKeyEd25519()
	self := key.PublicKey().Address()
	receiver := weavetest.NewCondition().Address()
	f := newFixture(t, key, 1000)

	out, err := f.run("create", receiver.String(), "250")
	require.NoError(t, err)
	assert.Equal(t, true, strings.Contains(out, "action=escrow/create"))

	_, err = f.run("fund", receiver.String())
	require.NoError(t, err)

	out, err = f.run("escrow", self.String(), receiver.String())
	require.NoError(t, err)
	var e struct {
		escrow.Escrow
		Held uint64 `json:"held"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &e))
	assert.Equal(t, uint64(250), e.Amount)
	assert.Equal(t, false, e.Settled)
	assert.Equal(t, uint64(250), e.Held)

	_, err = f.run("release", receiver.String())
	require.NoError(t, err)

	_, err = f.run("cancel", receiver.String())
	assert.IsErr(t, escrow.ErrAlreadyReleased, err)

	out, err = f.run("escrow", self.String(), receiver.String())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &e))
	assert.Equal(t, true, e.Settled)
	assert.Equal(t, uint64(0), e.Held)

	out, err = f.run("balance", receiver.String())
	require.NoError(t, err)
	assert.Equal(t, "250", strings.TrimSpace(out))
	out, err = f.run("balance", self.String())
	require.NoError(t, err)
	assert.Equal(t, "750", strings.TrimSpace(out))
}

func TestAddressCommand(t *testing.T) {
	initializer := weavetest.NewCondition().Address()
	receiver := weavetest.NewCondition().Address()
	f := newFixture(t, crypto.GenPrivKeyEd25519(), 1)

	out, err := f.run("address", initializer.String(), receiver.String())
	require.NoError(t, err)
	id := escrow.EscrowID(initializer, receiver)
	assert.Equal(t, true, strings.Contains(out, fmt.Sprintf("%X", id)))
	assert.Equal(t, true, strings.Contains(out, escrow.Condition(id).Address().String()))
}

func TestKeygen(t *testing.T) {
	f := newFixture(t, crypto.GenPrivKeyEd25519(), 1)
	f.cfg.Key = filepath.Join(t.TempDir(), "nested", "key.json")

	out, err := f.run("keygen")
	require.NoError(t, err)
	key, err := loadKey(f.cfg.Key)
	require.NoError(t, err)
	assert.Equal(t, true, strings.HasPrefix(out, key.PublicKey().Address().String()))

	_, err = f.run("keygen")
	assert.IsErr(t, errors.ErrDuplicate, err)
	_, err = f.run("keygen", "--force")
	require.NoError(t, err)
}

func TestMissingKey(t *testing.T) {
	f := newFixture(t, crypto.GenPrivKeyEd25519(), 1)
	f.cfg.Key = filepath.Join(t.TempDir(), "missing.json")

	_, err := f.run("create", weavetest.NewCondition().Address().String(), "1")
	assert.IsErr(t, errors.ErrNotFound, err)
}
