/*
Package app links together all the various components
to construct the escrowd application.
*/
package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/app"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store/iavl"
	"github.com/iov-one/escrowd/x"
	"github.com/iov-one/escrowd/x/cash"
	"github.com/iov-one/escrowd/x/escrow"
	"github.com/iov-one/escrowd/x/sigs"
	"github.com/iov-one/escrowd/x/utils"
	"github.com/tendermint/tendermint/libs/log"
)

// Name is used for the application and its database.
const Name = "escrowd"

// Authenticator returns the typical authentication,
// just using public key signatures
func Authenticator() x.Authenticator {
	return x.ChainAuth(sigs.Authenticate{})
}

// Chain returns a chain of decorators, to handle authentication,
// logging, and recovery
func Chain() app.Decorators {
	return app.ChainDecorators(
		utils.NewLogging(),
		utils.NewRecovery(),
		// on CheckTx, bad tx don't affect state
		utils.NewSavepoint().OnCheck(),
		sigs.NewDecorator(),
		utils.NewActionTagger(),
		// on DeliverTx, bad tx will increment nonce
		// even if the message fails
		utils.NewSavepoint().OnDeliver(),
	)
}

// Router returns a default router, dispatching the escrow messages.
func Router(authFn x.Authenticator) *app.Router {
	r := app.NewRouter()
	escrow.RegisterRoutes(r, authFn, cash.NewController(cash.NewBucket()))
	return r
}

// Executor delivers escrow messages to db from many goroutines, for
// in-process use. Signatures are not verified: authFn alone decides who
// signed. A node serving ABCI delivers through Application instead.
func Executor(db escrowd.KVStore, authFn x.Authenticator) *app.Executor {
	return app.NewExecutor(db, Router(authFn))
}

// QueryRouter returns a default query router,
// allowing access to "/escrows", "/wallets" and "/auth"
func QueryRouter() escrowd.QueryRouter {
	r := escrowd.NewQueryRouter()
	r.RegisterAll(
		escrow.RegisterQuery,
		cash.RegisterQuery,
		sigs.RegisterQuery,
	)
	return r
}

// Stack wires up a standard router with a standard decorator
// chain. This can be passed into BaseApp.
func Stack() escrowd.Handler {
	return Chain().WithHandler(Router(Authenticator()))
}

// Initializers returns the genesis loaders of all extensions.
func Initializers() escrowd.Initializer {
	return escrowd.ChainInitializers(
		cash.Initializer{},
		&escrow.Initializer{Minter: cash.NewController(cash.NewBucket())},
	)
}

// Application constructs a basic ABCI application with
// the given arguments.
func Application(kv escrowd.CommitKVStore, logger log.Logger, debug bool) app.BaseApp {
	store := app.NewStoreApp(Name, kv, QueryRouter(), context.Background()).
		WithInit(Initializers()).
		WithLogger(logger)
	return app.NewBaseApp(store, TxDecoder, Stack(), debug)
}

// CommitKVStore returns an initialized KVStore that persists
// the data to the named path. An empty path means a memory store.
func CommitKVStore(dbPath string) (iavl.CommitStore, error) {
	if dbPath == "" {
		return iavl.NewMemCommitStore(), nil
	}

	path, err := filepath.Abs(dbPath)
	if err != nil {
		return iavl.CommitStore{}, errors.Wrapf(errors.ErrInvalidInput, "database path %q: %s", dbPath, err)
	}
	// some callers add a ".db" suffix, which leveldb adds itself
	path = strings.TrimSuffix(path, filepath.Ext(path))
	return iavl.NewCommitStore(filepath.Dir(path), filepath.Base(path)), nil
}

// GenerateApp builds the application stored under home. The event sink
// is optional.
func GenerateApp(home string, logger log.Logger, debug bool, sink escrowd.EventSink) (app.BaseApp, error) {
	var dbPath string
	if home != "" {
		dbPath = filepath.Join(home, Name+".db")
	}
	kv, err := CommitKVStore(dbPath)
	if err != nil {
		return app.BaseApp{}, err
	}
	base := Application(kv, logger, debug)
	if sink != nil {
		base = base.WithEventSink(sink)
	}
	return base, nil
}
