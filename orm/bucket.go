package orm

import (
	"fmt"
	"regexp"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
)

var (
	isBucketName = regexp.MustCompile(`^[a-z_]{3,10}$`).MatchString
)

// Bucket is a prefixed subspace of the DB. It stores raw values, use
// ModelBucket for a typed access.
type Bucket struct {
	name   string
	prefix []byte
}

var _ escrowd.QueryHandler = Bucket{}

// NewBucket creates a bucket to store data
func NewBucket(name string) Bucket {
	if !isBucketName(name) {
		panic(fmt.Sprintf("Illegal bucket: %s", name))
	}

	return Bucket{
		name:   name,
		prefix: append([]byte(name), ':'),
	}
}

// Name returns the name of the bucket.
func (b Bucket) Name() string {
	return b.name
}

// DBKey is the full key we store in the db, including prefix
// We copy into a new array rather than use append, as we don't
// want consecutive calls to overwrite the same byte array.
func (b Bucket) DBKey(key []byte) []byte {
	l := len(b.prefix)
	out := make([]byte, l+len(key))
	copy(out, b.prefix)
	copy(out[l:], key)
	return out
}

// Query handles queries from the QueryRouter
func (b Bucket) Query(db escrowd.ReadOnlyKVStore, mod string, data []byte) ([]escrowd.Model, error) {
	switch mod {
	case escrowd.KeyQueryMod:
		key := b.DBKey(data)
		value, err := db.Get(key)
		if err != nil {
			return nil, err
		}
		// return nothing on miss
		if value == nil {
			return nil, nil
		}
		return []escrowd.Model{escrowd.Pair(key, value)}, nil
	case escrowd.PrefixQueryMod:
		prefix := b.DBKey(data)
		it, err := db.Iterator(prefixRange(prefix))
		if err != nil {
			return nil, err
		}
		return consumeIterator(it)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown mod: %s", mod)
	}
}

// prefixRange turns a prefix into (start, end) to create
// and iterator
func prefixRange(prefix []byte) ([]byte, []byte) {
	// special case: no prefix is whole range
	if len(prefix) == 0 {
		return nil, nil
	}

	// copy the prefix and update last byte
	end := make([]byte, len(prefix))
	copy(end, prefix)
	l := len(end) - 1
	end[l]++

	// wait, what if that overflowed?....
	for end[l] == 0 && l > 0 {
		l--
		end[l]++
	}

	// okay, funny guy, you gave us FFF, no end to this range...
	if l == 0 && end[0] == 0 {
		end = nil
	}
	return prefix, end
}

// consumeIterator will read all remaining data into an
// array and release the iterator
func consumeIterator(it escrowd.Iterator) ([]escrowd.Model, error) {
	defer it.Release()

	var res []escrowd.Model
	for {
		switch k, v, err := it.Next(); {
		case err == nil:
			res = append(res, escrowd.Pair(k, v))
		case errors.ErrIteratorDone.Is(err):
			return res, nil
		default:
			return nil, err
		}
	}
}
