package escrowd

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/tendermint/tendermint/libs/log"
)

type contextKey int

const (
	contextKeyHeight contextKey = iota
	contextKeyChainID
	contextKeyLogger
	contextKeyBlockTime
	contextKeyTxHash
)

var (
	// DefaultLogger is returned by GetLogger when no logger was set.
	DefaultLogger = log.NewNopLogger()

	// IsValidChainID accepts 6 to 20 characters of [a-zA-Z0-9_-].
	IsValidChainID = regexp.MustCompile(`^[a-zA-Z0-9_\-]{6,20}$`).MatchString
)

// Context carries the block information and the logger to handlers.
// Block values can be set only once, as a handler must never see them
// change while processing a transaction.
type Context = context.Context

// WithHeight sets the height of the block being processed. It panics if
// the height is already set.
func WithHeight(ctx Context, height int64) Context {
	if _, ok := GetHeight(ctx); ok {
		panic("block height already set")
	}
	return context.WithValue(ctx, contextKeyHeight, height)
}

// GetHeight returns the block height, and false if it is not set.
func GetHeight(ctx Context) (int64, bool) {
	h, ok := ctx.Value(contextKeyHeight).(int64)
	return h, ok
}

// WithBlockTime sets the time of the block being processed. It panics if
// the time is already set.
func WithBlockTime(ctx Context, t time.Time) Context {
	if _, ok := BlockTime(ctx); ok {
		panic("block time already set")
	}
	return context.WithValue(ctx, contextKeyBlockTime, t)
}

// BlockTime returns the block time, and false if it is not set.
func BlockTime(ctx Context) (time.Time, bool) {
	t, ok := ctx.Value(contextKeyBlockTime).(time.Time)
	return t, ok
}

// WithTxHash sets the hash of the transaction being delivered. It panics
// if the hash is already set.
func WithTxHash(ctx Context, hash []byte) Context {
	if _, ok := TxHash(ctx); ok {
		panic("transaction hash already set")
	}
	return context.WithValue(ctx, contextKeyTxHash, hash)
}

// TxHash returns the transaction hash, and false if it is not set.
func TxHash(ctx Context) ([]byte, bool) {
	h, ok := ctx.Value(contextKeyTxHash).([]byte)
	return h, ok
}

// WithChainID sets the chain id. It panics if the id is already set or
// is not valid.
func WithChainID(ctx Context, chainID string) Context {
	if ctx.Value(contextKeyChainID) != nil {
		panic("chain id already set")
	}
	if !IsValidChainID(chainID) {
		panic(fmt.Sprintf("invalid chain id %q", chainID))
	}
	return context.WithValue(ctx, contextKeyChainID, chainID)
}

// GetChainID returns the chain id. The application sets it before any
// transaction is processed, so a missing id is a programming error and
// panics.
func GetChainID(ctx Context) string {
	id, ok := ctx.Value(contextKeyChainID).(string)
	if !ok {
		panic("chain id not set")
	}
	return id
}

func WithLogger(ctx Context, logger log.Logger) Context {
	return context.WithValue(ctx, contextKeyLogger, logger)
}

// GetLogger returns the logger of ctx, or DefaultLogger.
func GetLogger(ctx Context) log.Logger {
	if l, ok := ctx.Value(contextKeyLogger).(log.Logger); ok {
		return l
	}
	return DefaultLogger
}

// WithLogInfo adds key value pairs to every message logged through the
// returned context.
func WithLogInfo(ctx Context, keyvals ...interface{}) Context {
	return WithLogger(ctx, GetLogger(ctx).With(keyvals...))
}
