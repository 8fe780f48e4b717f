package app

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
)

// CommitStore keeps two cache layers above the committed state. DeliverTx
// writes to the deliver layer, which becomes the next version on Commit.
// CheckTx writes to the check layer, which is dropped on Commit.
type CommitStore struct {
	committed escrowd.CommitKVStore
	deliver   escrowd.KVCacheWrap
	check     escrowd.KVCacheWrap
}

// NewCommitStore loads the latest version of kv. It panics if the version
// cannot be loaded, as no transaction could be processed.
func NewCommitStore(kv escrowd.CommitKVStore) *CommitStore {
	if err := kv.LoadLatestVersion(); err != nil {
		panic(err)
	}
	cs := &CommitStore{committed: kv}
	cs.reset()
	return cs
}

func (cs *CommitStore) reset() {
	cs.deliver = cs.committed.CacheWrap()
	cs.check = cs.committed.CacheWrap()
}

// CommitInfo returns the version and hash of the last commit.
func (cs *CommitStore) CommitInfo() (escrowd.CommitID, error) {
	return cs.committed.LatestVersion()
}

// Commit persists every delivered change as a new version and starts
// fresh cache layers above it.
func (cs *CommitStore) Commit() (escrowd.CommitID, error) {
	if err := cs.deliver.Write(); err != nil {
		return escrowd.CommitID{}, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	cs.check.Discard()

	id, err := cs.committed.Commit()
	if err != nil {
		return id, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	cs.reset()
	return id, nil
}

func (cs *CommitStore) CheckStore() escrowd.CacheableKVStore {
	return cs.check
}

func (cs *CommitStore) DeliverStore() escrowd.CacheableKVStore {
	return cs.deliver
}

// Committed returns a view of the last committed state. Queries use it so
// that they never observe changes of the block in progress.
func (cs *CommitStore) Committed() escrowd.ReadOnlyKVStore {
	return cs.committed.CacheWrap()
}

// chainIDKey is not part of any bucket used by the application.
const chainIDKey = "_esc:chainID"

// loadChainID returns the stored chain id, or an empty string before
// genesis.
func loadChainID(kv escrowd.ReadOnlyKVStore) (string, error) {
	raw, err := kv.Get([]byte(chainIDKey))
	if err != nil {
		return "", errors.Wrap(err, "load chain id")
	}
	return string(raw), nil
}

// saveChainID stores the chain id once. It can never be changed.
func saveChainID(kv escrowd.KVStore, chainID string) error {
	if !escrowd.IsValidChainID(chainID) {
		return errors.Wrapf(errors.ErrInvalidInput, "chain id %q", chainID)
	}
	switch existing, err := loadChainID(kv); {
	case err != nil:
		return err
	case existing != "":
		return errors.Wrapf(errors.ErrUnauthorized, "chain id already set to %q", existing)
	}
	if err := kv.Set([]byte(chainIDKey), []byte(chainID)); err != nil {
		return errors.Wrap(err, "save chain id")
	}
	return nil
}
