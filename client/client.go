/*
Package client gives access to a running escrowd node over the tendermint
RPC. It broadcasts signed transactions and reads escrows, wallet balances
and signer nonces from the application state.
*/
package client

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/app"
	"github.com/iov-one/escrowd/errors"
	cmn "github.com/tendermint/tendermint/libs/common"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

// Node is the subset of the tendermint RPC client used by Client.
// rpcclient.HTTP and rpcclient.Local both implement it.
type Node interface {
	ABCIQuery(path string, data cmn.HexBytes) (*ctypes.ResultABCIQuery, error)
	BroadcastTxCommit(tx tmtypes.Tx) (*ctypes.ResultBroadcastTxCommit, error)
	Genesis() (*ctypes.ResultGenesis, error)
	Status() (*ctypes.ResultStatus, error)
}

// Client is a tendermint client wrapped to provide
// simple access to the data structures used in escrowd.
type Client struct {
	conn Node
}

// NewClient wraps a Client around an existing
// tendermint client connection.
func NewClient(conn Node) *Client {
	return &Client{conn: conn}
}

// NewHTTPClient connects to the node RPC listening at remote, for
// example "http://localhost:26657".
func NewHTTPClient(remote string) *Client {
	return NewClient(NewHTTPConnection(remote))
}

// ChainID returns the chain id declared in the node genesis.
func (c *Client) ChainID() (string, error) {
	gen, err := c.conn.Genesis()
	if err != nil {
		return "", errors.Wrap(errors.ErrNetwork, err.Error())
	}
	return gen.Genesis.ChainID, nil
}

// Height returns the latest block height known to the node.
func (c *Client) Height() (int64, error) {
	status, err := c.conn.Status()
	if err != nil {
		return 0, errors.Wrap(errors.ErrNetwork, err.Error())
	}
	return status.SyncInfo.LatestBlockHeight, nil
}

// AbciResponse contains a query result:
// a (possibly empty) list of key-value pairs, and the height
// at which it queried
type AbciResponse struct {
	Models []escrowd.Model
	Height int64
}

// AbciQuery calls abci query on tendermint rpc,
// verifies if it is an error or empty, and if there is
// data pulls out the ResultSets from keys and values into
// a useful AbciResponse struct
func (c *Client) AbciQuery(path string, data []byte) (*AbciResponse, error) {
	q, err := c.conn.ABCIQuery(path, data)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "query %s: %s", path, err)
	}
	resp := q.Response
	if resp.IsErr() {
		return nil, errors.ABCIError(resp.Code, resp.Log)
	}

	out := AbciResponse{Height: resp.Height}
	if len(resp.Key) == 0 {
		return &out, nil
	}

	var keys, vals app.ResultSet
	if err := keys.Unmarshal(resp.Key); err != nil {
		return nil, errors.Wrap(err, "keys")
	}
	if err := vals.Unmarshal(resp.Value); err != nil {
		return nil, errors.Wrap(err, "values")
	}
	out.Models, err = app.JoinResults(&keys, &vals)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CommitResult is returned from the block (DeliverTx)
type CommitResult struct {
	Hash   cmn.HexBytes
	Height int64
	Result *escrowd.DeliverResult
}

// BroadcastTx serializes a signed transaction and writes it to the
// blockchain. It returns when the transaction is committed in a block.
// A transaction rejected by CheckTx or DeliverTx is returned as the
// application error, so callers can test it with the registered errors.
func (c *Client) BroadcastTx(tx escrowd.Tx) (*CommitResult, error) {
	raw, err := tx.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "cannot serialize transaction")
	}
	res, err := c.conn.BroadcastTxCommit(raw)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "broadcast: %s", err)
	}
	if res.CheckTx.IsErr() {
		return nil, errors.Wrap(errors.ABCIError(res.CheckTx.Code, res.CheckTx.Log), "check")
	}
	result, err := escrowd.ParseDeliverOrError(res.DeliverTx)
	if err != nil {
		return nil, errors.Wrap(err, "deliver")
	}
	return &CommitResult{
		Hash:   res.Hash,
		Height: res.Height,
		Result: result,
	}, nil
}
