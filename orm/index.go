package orm

import (
	"bytes"
	"encoding/binary"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
)

const idxPrefix = "_i."

// Indexer calculates the secondary index key for a given model. Returning
// a nil key means the model is not indexed.
type Indexer func(Model) ([]byte, error)

// index is a secondary index of a model bucket. Every reference is stored
// under its own key:
//
//	_i.<name>:<uvarint len(value)><value><primary key> -> <primary key>
//
// so that adding or removing a reference never rewrites other references.
type index struct {
	name    string
	id      []byte
	unique  bool
	indexer Indexer
	bucket  *modelBucket
}

var _ escrowd.QueryHandler = (*index)(nil)

func newIndex(name string, indexer Indexer, unique bool, mb *modelBucket) *index {
	return &index{
		name:    name,
		id:      []byte(idxPrefix + name + ":"),
		unique:  unique,
		indexer: indexer,
		bucket:  mb,
	}
}

// valuePrefix returns the db key prefix of all references stored under
// given index value.
func (i *index) valuePrefix(value []byte) []byte {
	var size [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(size[:], uint64(len(value)))
	out := make([]byte, 0, len(i.id)+n+len(value))
	out = append(out, i.id...)
	out = append(out, size[:n]...)
	return append(out, value...)
}

func (i *index) refKey(value, pk []byte) []byte {
	prefix := i.valuePrefix(value)
	out := make([]byte, len(prefix)+len(pk))
	copy(out, prefix)
	copy(out[len(prefix):], pk)
	return out
}

// update moves the reference of the primary key from the index value of
// prev to the index value of next. Either may be nil.
func (i *index) update(db escrowd.KVStore, pk []byte, prev, next Model) error {
	var prevVal, nextVal []byte
	var err error
	if prev != nil {
		if prevVal, err = i.indexer(prev); err != nil {
			return err
		}
	}
	if next != nil {
		if nextVal, err = i.indexer(next); err != nil {
			return err
		}
	}
	if prev != nil && next != nil && bytes.Equal(prevVal, nextVal) {
		return nil
	}

	if prevVal != nil {
		if err := db.Delete(i.refKey(prevVal, pk)); err != nil {
			return err
		}
	}
	if nextVal == nil {
		return nil
	}
	return db.Set(i.refKey(nextVal, pk), pk)
}

// checkUnique returns ErrDuplicate if the index is unique and the index
// value of next is already referenced by an entity other than pk.
func (i *index) checkUnique(db escrowd.ReadOnlyKVStore, pk []byte, next Model) error {
	if !i.unique || next == nil {
		return nil
	}
	val, err := i.indexer(next)
	if err != nil || val == nil {
		return err
	}
	refs, err := i.refs(db, val)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if !bytes.Equal(ref, pk) {
			return errors.Wrapf(errors.ErrDuplicate, "unique index %q", i.name)
		}
	}
	return nil
}

// refs returns all primary keys referenced by given index value.
func (i *index) refs(db escrowd.ReadOnlyKVStore, value []byte) ([][]byte, error) {
	it, err := db.Iterator(prefixRange(i.valuePrefix(value)))
	if err != nil {
		return nil, err
	}
	models, err := consumeIterator(it)
	if err != nil {
		return nil, err
	}
	refs := make([][]byte, len(models))
	for n, m := range models {
		refs[n] = m.Value
	}
	return refs, nil
}

// Query returns all entities referenced by the index value given as data.
// Only the exact key query is supported.
func (i *index) Query(db escrowd.ReadOnlyKVStore, mod string, data []byte) ([]escrowd.Model, error) {
	if mod != escrowd.KeyQueryMod {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "index %q supports only key queries", i.name)
	}
	refs, err := i.refs(db, data)
	if err != nil {
		return nil, err
	}
	res := make([]escrowd.Model, 0, len(refs))
	for _, pk := range refs {
		key := i.bucket.b.DBKey(pk)
		value, err := db.Get(key)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, errors.Wrapf(errors.ErrInvalidState, "index %q references missing %X", i.name, pk)
		}
		res = append(res, escrowd.Pair(key, value))
	}
	return res, nil
}
