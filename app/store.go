package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

// StoreApp implements the ABCI calls that deal with state only: Info,
// InitChain, BeginBlock, EndBlock, Commit and Query. BaseApp embeds it
// and adds transaction processing.
//
// Failures in calls that carry no user input cannot be reported to
// tendermint, so they panic and stop the node.
type StoreApp struct {
	name        string
	logger      log.Logger
	store       *CommitStore
	initializer escrowd.Initializer
	queryRouter escrowd.QueryRouter

	// chainID is empty until the genesis was loaded.
	chainID string

	// baseContext lives as long as the application, blockContext is
	// rebuilt from it for every block.
	baseContext  escrowd.Context
	blockContext escrowd.Context
}

// NewStoreApp loads the latest committed version of kv. It panics if the
// stored state cannot be read.
func NewStoreApp(name string, kv escrowd.CommitKVStore, queryRouter escrowd.QueryRouter, baseContext escrowd.Context) *StoreApp {
	s := &StoreApp{
		name:        name,
		store:       NewCommitStore(kv),
		queryRouter: queryRouter,
		baseContext: baseContext,
	}
	s.WithLogger(log.NewNopLogger())

	chainID, err := loadChainID(s.DeliverStore())
	if err != nil {
		panic(err)
	}
	if s.chainID = chainID; chainID != "" {
		s.baseContext = escrowd.WithChainID(s.baseContext, chainID)
	}
	info, err := s.store.CommitInfo()
	if err != nil {
		panic(err)
	}
	s.blockContext = escrowd.WithHeight(s.baseContext, info.Version)
	return s
}

// WithInit sets the initializer run on the genesis app_state.
func (s *StoreApp) WithInit(init escrowd.Initializer) *StoreApp {
	s.initializer = init
	return s
}

// WithLogger sets the logger of the application and of every context
// it creates.
func (s *StoreApp) WithLogger(logger log.Logger) *StoreApp {
	s.logger = logger
	s.baseContext = escrowd.WithLogger(s.baseContext, logger)
	return s
}

func (s *StoreApp) GetChainID() string {
	return s.chainID
}

func (s *StoreApp) Logger() log.Logger {
	return s.logger
}

// BlockContext returns the context of the block being processed.
func (s *StoreApp) BlockContext() escrowd.Context {
	return s.blockContext
}

// DeliverStore returns the state DeliverTx writes to.
func (s *StoreApp) DeliverStore() escrowd.CacheableKVStore {
	return s.store.DeliverStore()
}

// CheckStore returns the state CheckTx writes to. It is reset on Commit.
func (s *StoreApp) CheckStore() escrowd.CacheableKVStore {
	return s.store.CheckStore()
}

// Info reports the last committed height and app hash, so tendermint can
// replay the blocks the application missed.
func (s *StoreApp) Info(req abci.RequestInfo) abci.ResponseInfo {
	info, err := s.store.CommitInfo()
	if err != nil {
		panic(err)
	}
	s.logger.Info("Info synced", "height", info.Version, "hash", fmt.Sprintf("%X", info.Hash))
	return abci.ResponseInfo{
		Data:             s.name,
		Version:          escrowd.Version(),
		LastBlockHeight:  info.Version,
		LastBlockAppHash: info.Hash,
	}
}

func (s *StoreApp) SetOption(abci.RequestSetOption) abci.ResponseSetOption {
	return abci.ResponseSetOption{Log: "Not Implemented"}
}

// InitChain stores the chain id and runs the initializer on the genesis
// app_state. It is called once in the life of a chain.
func (s *StoreApp) InitChain(req abci.RequestInitChain) abci.ResponseInitChain {
	if err := s.loadGenesis(req.ChainId, req.AppStateBytes); err != nil {
		panic(err)
	}
	return abci.ResponseInitChain{}
}

func (s *StoreApp) loadGenesis(chainID string, appState []byte) error {
	if s.chainID != "" {
		return errors.Wrapf(errors.ErrInvalidState, "genesis already loaded for chain %s", s.chainID)
	}
	if len(appState) == 0 {
		return errors.Wrap(errors.ErrInvalidState, "app_state missing in genesis, run init first")
	}
	var opts escrowd.Options
	if err := json.Unmarshal(appState, &opts); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	if err := saveChainID(s.DeliverStore(), chainID); err != nil {
		return err
	}
	s.chainID = chainID
	s.baseContext = escrowd.WithChainID(s.baseContext, chainID)

	if s.initializer == nil {
		return nil
	}
	return s.initializer.FromGenesis(opts, s.DeliverStore())
}

// BeginBlock builds the context shared by all transactions of the block.
func (s *StoreApp) BeginBlock(req abci.RequestBeginBlock) abci.ResponseBeginBlock {
	ctx := escrowd.WithHeight(s.baseContext, req.Header.GetHeight())
	s.blockContext = escrowd.WithBlockTime(ctx, req.Header.GetTime())
	return abci.ResponseBeginBlock{}
}

func (s *StoreApp) EndBlock(abci.RequestEndBlock) abci.ResponseEndBlock {
	return abci.ResponseEndBlock{}
}

// Commit persists the delivered state and returns the new app hash.
func (s *StoreApp) Commit() abci.ResponseCommit {
	id, err := s.store.Commit()
	if err != nil {
		panic(err)
	}
	s.logger.Debug("Commit synced", "height", id.Version, "hash", fmt.Sprintf("%X", id.Hash))
	return abci.ResponseCommit{Data: id.Hash}
}

// Query reads the last committed state. The path names a registered
// handler, for example "/escrows" or "/escrows/receiver", optionally
// followed by "?prefix" for a prefix scan. Key and Value of the response
// are ResultSets of equal length.
func (s *StoreApp) Query(req abci.RequestQuery) abci.ResponseQuery {
	path, mod := splitPath(req.Path)
	h := s.queryRouter.Handler(path)
	if h == nil {
		return queryError(errors.Wrapf(errors.ErrNotFound, "query path %q", req.Path))
	}
	info, err := s.store.CommitInfo()
	if err != nil {
		return queryError(err)
	}
	models, err := h.Query(s.store.Committed(), mod, req.Data)
	if err != nil {
		return queryError(err)
	}

	res := abci.ResponseQuery{Height: info.Version}
	if res.Key, err = ResultsFromKeys(models).Marshal(); err != nil {
		return queryError(err)
	}
	if res.Value, err = ResultsFromValues(models).Marshal(); err != nil {
		return queryError(err)
	}
	return res
}

// splitPath separates the query modifier following "?" from the path.
func splitPath(path string) (string, string) {
	if i := strings.Index(path, "?"); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

func queryError(err error) abci.ResponseQuery {
	code, log := errors.ABCIInfo(err, false)
	return abci.ResponseQuery{Code: code, Log: log}
}
