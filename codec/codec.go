/*
Package codec provides the binary and JSON encoding used for every
persisted model, message and transaction.

All encoding is done with go-amino. Types that are stored behind an
interface (for example the message carried by a transaction) must be
registered on the shared Amino codec before use.
*/
package codec

import (
	"reflect"

	"github.com/iov-one/escrowd/errors"
	amino "github.com/tendermint/go-amino"
)

// Amino is the codec shared by the whole application. Register interfaces
// and concrete implementations during program startup only.
var Amino = amino.NewCodec()

// Marshal serializes given object into its binary representation.
func Marshal(o interface{}) ([]byte, error) {
	bz, err := Amino.MarshalBinaryBare(o)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidModel, err.Error())
	}
	return bz, nil
}

// Unmarshal deserializes given binary representation into the object
// that ptr points to.
//
// A value with only default fields is encoded as zero bytes, so empty
// input resets ptr to its zero value.
func Unmarshal(bz []byte, ptr interface{}) error {
	if len(bz) == 0 {
		rv := reflect.ValueOf(ptr)
		if rv.Kind() != reflect.Ptr || rv.IsNil() {
			return errors.Wrapf(errors.ErrInvalidType, "%T is not a pointer", ptr)
		}
		rv.Elem().Set(reflect.Zero(rv.Elem().Type()))
		return nil
	}
	if err := Amino.UnmarshalBinaryBare(bz, ptr); err != nil {
		return errors.Wrap(errors.ErrInvalidModel, err.Error())
	}
	return nil
}

// MarshalJSON returns the JSON representation of given object. Interface
// values are encoded together with their registered name.
func MarshalJSON(o interface{}) ([]byte, error) {
	bz, err := Amino.MarshalJSONIndent(o, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidModel, err.Error())
	}
	return bz, nil
}

// UnmarshalJSON is the inverse of MarshalJSON.
func UnmarshalJSON(bz []byte, ptr interface{}) error {
	if err := Amino.UnmarshalJSON(bz, ptr); err != nil {
		return errors.Wrap(errors.ErrInvalidModel, err.Error())
	}
	return nil
}
