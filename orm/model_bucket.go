package orm

import (
	"fmt"
	"reflect"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
)

// Model is implemented by any entity that can be stored using ModelBucket.
type Model interface {
	escrowd.Persistent
	Validate() error
}

// ModelSlicePtr represents a pointer to a slice of models. Think of it as
// *[]Model. Because of Go type system, using []Model type would not work
// for us. Instead we use a placeholder type and the validation is done
// during the runtime.
type ModelSlicePtr interface{}

// ModelBucket is implemented by buckets that operates on Models.
type ModelBucket interface {
	// One query the database for a single model instance. Lookup is done
	// by the primary index key. Result is loaded into given destination
	// model.
	// This method returns ErrNotFound if the entity does not exist in the
	// database.
	// If given model type cannot be used to contain stored entity, ErrInvalidType
	// is returned.
	One(db escrowd.ReadOnlyKVStore, key []byte, dest Model) error

	// Has returns nil if an entity with given primary key value exists. It
	// returns ErrNotFound if no entity can be found.
	Has(db escrowd.ReadOnlyKVStore, key []byte) error

	// Create saves given model under a key that must not be in use yet.
	// ErrDuplicate is returned otherwise.
	Create(db escrowd.KVStore, key []byte, m Model) error

	// Put saves given model in the database, overwriting any previous
	// value stored under the key.
	Put(db escrowd.KVStore, key []byte, m Model) error

	// Delete removes an entity with given primary key from the database.
	// It returns ErrNotFound if an entity with given key does not exist.
	Delete(db escrowd.KVStore, key []byte) error

	// ByIndex returns all objects that secondary index with given name and
	// given key. Main index is always unique but secondary indexes can
	// return more than one value for the same key.
	// All matching entities are appended to given destination slice.
	ByIndex(db escrowd.ReadOnlyKVStore, indexName string, key []byte, dest ModelSlicePtr) error

	// ByPrefix appends to the destination all entities whose primary key
	// starts with given prefix, in key order.
	ByPrefix(db escrowd.ReadOnlyKVStore, prefix []byte, dest ModelSlicePtr) error

	// Register registers this bucket and all its indexes in the query
	// router. Name is the query path, bucket name is used if empty.
	Register(name string, r escrowd.QueryRouter)
}

// ModelBucketOption is implemented by any function that can configure
// ModelBucket during creation.
type ModelBucketOption func(mb *modelBucket)

// WithIndex configures the bucket to build an index with given name. All
// entities stored in the bucket are indexed using value returned by the
// indexer function. If an index is unique, there can be only one entity
// referenced per index value.
func WithIndex(name string, indexer Indexer, unique bool) ModelBucketOption {
	return func(mb *modelBucket) {
		if _, ok := mb.indexes[name]; ok {
			panic(fmt.Sprintf("index %q registered twice", name))
		}
		mb.indexes[name] = newIndex(mb.b.name+"_"+name, indexer, unique, mb)
	}
}

// NewModelBucket returns a ModelBucket instance storing models of the
// same type as the given prototype.
func NewModelBucket(name string, proto Model, opts ...ModelBucketOption) ModelBucket {
	tp := reflect.TypeOf(proto)
	if tp.Kind() != reflect.Ptr {
		panic("model prototype must be a pointer")
	}
	mb := &modelBucket{
		b:       NewBucket(name),
		model:   tp.Elem(),
		indexes: make(map[string]*index),
	}
	for _, fn := range opts {
		fn(mb)
	}
	return mb
}

type modelBucket struct {
	b       Bucket
	model   reflect.Type
	indexes map[string]*index
}

var _ ModelBucket = (*modelBucket)(nil)

func (mb *modelBucket) One(db escrowd.ReadOnlyKVStore, key []byte, dest Model) error {
	raw, err := db.Get(mb.b.DBKey(key))
	if err != nil {
		return errors.Wrap(err, "cannot read from the database")
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%T not in the store", dest)
	}
	if reflect.TypeOf(dest) != reflect.PtrTo(mb.model) {
		return errors.Wrapf(errors.ErrInvalidType, "%T cannot be represented as %T", dest, reflect.New(mb.model).Interface())
	}
	if err := dest.Unmarshal(raw); err != nil {
		return errors.Wrapf(err, "cannot unmarshal %T", dest)
	}
	return nil
}

func (mb *modelBucket) Has(db escrowd.ReadOnlyKVStore, key []byte) error {
	if len(key) == 0 {
		return errors.Wrap(errors.ErrNotFound, "empty key")
	}
	ok, err := db.Has(mb.b.DBKey(key))
	if err != nil {
		return errors.Wrap(err, "cannot read from the database")
	}
	if !ok {
		return errors.ErrNotFound
	}
	return nil
}

func (mb *modelBucket) Create(db escrowd.KVStore, key []byte, m Model) error {
	switch err := mb.Has(db, key); {
	case err == nil:
		return errors.Wrapf(errors.ErrDuplicate, "key %X", key)
	case !errors.ErrNotFound.Is(err):
		return err
	}
	return mb.Put(db, key, m)
}

func (mb *modelBucket) Put(db escrowd.KVStore, key []byte, m Model) error {
	if len(key) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "empty key")
	}
	if reflect.TypeOf(m) != reflect.PtrTo(mb.model) {
		return errors.Wrapf(errors.ErrInvalidType, "cannot store %T in %q bucket", m, mb.b.name)
	}
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	raw, err := m.Marshal()
	if err != nil {
		return errors.Wrap(err, "cannot marshal")
	}
	if err := mb.updateIndexes(db, key, m); err != nil {
		return errors.Wrap(err, "cannot update indexes")
	}
	if err := db.Set(mb.b.DBKey(key), raw); err != nil {
		return errors.Wrap(err, "cannot store in the database")
	}
	return nil
}

func (mb *modelBucket) Delete(db escrowd.KVStore, key []byte) error {
	if err := mb.Has(db, key); err != nil {
		return err
	}
	if err := mb.updateIndexes(db, key, nil); err != nil {
		return errors.Wrap(err, "cannot update indexes")
	}
	if err := db.Delete(mb.b.DBKey(key)); err != nil {
		return errors.Wrap(err, "cannot delete from the database")
	}
	return nil
}

// updateIndexes moves the references of all indexes from the currently
// stored version of the entity to the next one. A nil next means delete.
func (mb *modelBucket) updateIndexes(db escrowd.KVStore, key []byte, next Model) error {
	if len(mb.indexes) == 0 {
		return nil
	}
	var prev Model
	switch raw, err := db.Get(mb.b.DBKey(key)); {
	case err != nil:
		return err
	case raw != nil:
		prev = reflect.New(mb.model).Interface().(Model)
		if err := prev.Unmarshal(raw); err != nil {
			return errors.Wrap(err, "cannot unmarshal previous value")
		}
	}
	// All constraints are verified before the first reference is written.
	for _, idx := range mb.indexes {
		if err := idx.checkUnique(db, key, next); err != nil {
			return errors.Wrapf(err, "index %q", idx.name)
		}
	}
	for _, idx := range mb.indexes {
		if err := idx.update(db, key, prev, next); err != nil {
			return errors.Wrapf(err, "index %q", idx.name)
		}
	}
	return nil
}

func (mb *modelBucket) ByIndex(db escrowd.ReadOnlyKVStore, indexName string, key []byte, dest ModelSlicePtr) error {
	idx, ok := mb.indexes[indexName]
	if !ok {
		return errors.Wrapf(ErrInvalidIndex, "name %s", indexName)
	}
	refs, err := idx.refs(db, key)
	if err != nil {
		return err
	}
	values := make([][]byte, 0, len(refs))
	for _, ref := range refs {
		raw, err := db.Get(mb.b.DBKey(ref))
		if err != nil {
			return errors.Wrap(err, "cannot read referenced entity")
		}
		if raw == nil {
			return errors.Wrapf(errors.ErrInvalidState, "index %q references missing %X", indexName, ref)
		}
		values = append(values, raw)
	}
	return mb.appendAll(dest, values)
}

func (mb *modelBucket) ByPrefix(db escrowd.ReadOnlyKVStore, prefix []byte, dest ModelSlicePtr) error {
	it, err := db.Iterator(prefixRange(mb.b.DBKey(prefix)))
	if err != nil {
		return errors.Wrap(err, "cannot iterate")
	}
	models, err := consumeIterator(it)
	if err != nil {
		return err
	}
	values := make([][]byte, len(models))
	for i, m := range models {
		values[i] = m.Value
	}
	return mb.appendAll(dest, values)
}

// appendAll unmarshals all values and appends them to the destination
// slice, that must be a pointer to a slice of the bucket model (or model
// pointer) type.
func (mb *modelBucket) appendAll(dest ModelSlicePtr, values [][]byte) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.Elem().Kind() != reflect.Slice {
		return errors.Wrapf(errors.ErrInvalidType, "destination must be a pointer to a slice, got %T", dest)
	}
	slice := dv.Elem()
	elem := slice.Type().Elem()
	byPointer := elem == reflect.PtrTo(mb.model)
	if !byPointer && elem != mb.model {
		return errors.Wrapf(errors.ErrInvalidType, "cannot store %s in %T", mb.model, dest)
	}
	for _, raw := range values {
		m := reflect.New(mb.model)
		if err := m.Interface().(Model).Unmarshal(raw); err != nil {
			return errors.Wrap(err, "cannot unmarshal")
		}
		if byPointer {
			slice = reflect.Append(slice, m)
		} else {
			slice = reflect.Append(slice, m.Elem())
		}
	}
	dv.Elem().Set(slice)
	return nil
}

func (mb *modelBucket) Register(name string, r escrowd.QueryRouter) {
	if name == "" {
		name = mb.b.name
	}
	root := "/" + name
	r.Register(root, mb.b)
	for iname, idx := range mb.indexes {
		r.Register(root+"/"+iname, idx)
	}
}
