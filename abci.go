package escrowd

import (
	"github.com/iov-one/escrowd/errors"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/common"
)

// DeliverResult is the outcome of a successfully delivered transaction.
// Failures are returned as errors, never as a result.
type DeliverResult struct {
	// Data is returned to the client, for example the id of a created
	// escrow.
	Data []byte
	// Log is a human readable summary.
	Log string
	// Tags are indexed by tendermint and forwarded to the event sink.
	Tags    []common.KVPair
	GasUsed int64
}

func (d DeliverResult) ToABCI() abci.ResponseDeliverTx {
	return abci.ResponseDeliverTx{
		Data:    d.Data,
		Log:     d.Log,
		Tags:    d.Tags,
		GasUsed: d.GasUsed,
	}
}

// CheckResult is the outcome of a transaction that passed CheckTx.
type CheckResult struct {
	Data []byte
	Log  string
	// GasAllocated is the work a handler expects to perform on delivery.
	GasAllocated int64
}

// NewCheck returns a result allocating given gas.
func NewCheck(gasAllocated int64, log string) CheckResult {
	return CheckResult{GasAllocated: gasAllocated, Log: log}
}

func (c CheckResult) ToABCI() abci.ResponseCheckTx {
	return abci.ResponseCheckTx{
		Data:      c.Data,
		Log:       c.Log,
		GasWanted: c.GasAllocated,
	}
}

// DeliverOrError converts the return values of a Deliverer into the
// ABCI response.
func DeliverOrError(result *DeliverResult, err error, debug bool) abci.ResponseDeliverTx {
	if err != nil {
		return DeliverTxError(err, debug)
	}
	return result.ToABCI()
}

// CheckOrError converts the return values of a Checker into the ABCI
// response.
func CheckOrError(result *CheckResult, err error, debug bool) abci.ResponseCheckTx {
	if err != nil {
		return CheckTxError(err, debug)
	}
	return result.ToABCI()
}

// DeliverTxError builds a failed DeliverTx response. Internal errors are
// redacted unless debug is set.
func DeliverTxError(err error, debug bool) abci.ResponseDeliverTx {
	code, log := errors.ABCIInfo(err, debug)
	return abci.ResponseDeliverTx{Code: code, Log: failureLog("deliver", code, log)}
}

// CheckTxError builds a failed CheckTx response. Internal errors are
// redacted unless debug is set.
func CheckTxError(err error, debug bool) abci.ResponseCheckTx {
	code, log := errors.ABCIInfo(err, debug)
	return abci.ResponseCheckTx{Code: code, Log: failureLog("check", code, log)}
}

func failureLog(phase string, code uint32, log string) string {
	if code == errors.SuccessABCICode {
		return log
	}
	return "cannot " + phase + " tx: " + log
}

// ParseDeliverOrError reverses DeliverOrError on the client side. A
// failed response is returned as an error carrying the registered root
// error of its code.
func ParseDeliverOrError(res abci.ResponseDeliverTx) (*DeliverResult, error) {
	if res.Code != errors.SuccessABCICode {
		return nil, errors.ABCIError(res.Code, res.Log)
	}
	return &DeliverResult{
		Data:    res.Data,
		Log:     res.Log,
		Tags:    res.Tags,
		GasUsed: res.GasUsed,
	}, nil
}
