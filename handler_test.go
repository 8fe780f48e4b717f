package escrowd_test

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store"
	"github.com/iov-one/escrowd/weavetest/assert"
)

func TestReadOptions(t *testing.T) {
	var opts escrowd.Options
	assert.Nil(t, json.Unmarshal([]byte(`{"list": [{"key": 1}, {"key": 2}], "bad": "x"}`), &opts))

	var list []struct{ Key int }
	assert.Nil(t, opts.ReadOptions("list", &list))
	assert.Equal(t, 2, len(list))
	assert.Equal(t, 2, list[1].Key)

	var missing []struct{ Key int }
	assert.Nil(t, opts.ReadOptions("missing", &missing))
	assert.Equal(t, 0, len(missing))

	var bad []struct{ Key int }
	assert.Equal(t, true, opts.ReadOptions("bad", &bad) != nil)
}

type recordingInit struct {
	name  string
	calls *[]string
	err   error
}

func (r recordingInit) FromGenesis(escrowd.Options, escrowd.KVStore) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func TestChainInitializers(t *testing.T) {
	var calls []string
	db := store.MemStore()

	ok := escrowd.ChainInitializers(
		recordingInit{name: "a", calls: &calls},
		recordingInit{name: "b", calls: &calls},
	)
	assert.Nil(t, ok.FromGenesis(nil, db))
	assert.Equal(t, []string{"a", "b"}, calls)

	calls = nil
	failing := escrowd.ChainInitializers(
		recordingInit{name: "a", calls: &calls, err: errors.ErrInvalidState},
		recordingInit{name: "b", calls: &calls},
	)
	assert.IsErr(t, errors.ErrInvalidState, failing.FromGenesis(nil, db))
	assert.Equal(t, []string{"a"}, calls)
}
