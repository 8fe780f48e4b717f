package escrowd

import (
	"reflect"

	"github.com/iov-one/escrowd/errors"
)

// setPtr assigns the value of src to the variable dest points to. Both
// must be of the same type.
func setPtr(dest, src interface{}) error {
	if dest == nil {
		return errors.Wrap(errors.ErrHuman, "destination cannot be nil")
	}
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr {
		return errors.Wrap(errors.ErrHuman, "destination must be a pointer")
	}
	sv := reflect.ValueOf(src)
	if sv.Kind() == reflect.Ptr {
		if sv.IsNil() {
			return errors.Wrap(errors.ErrHuman, "source cannot be nil")
		}
		sv = sv.Elem()
	}
	if !sv.Type().AssignableTo(dv.Elem().Type()) {
		return errors.Wrapf(errors.ErrInvalidType, "%T cannot be represented as %T", src, dest)
	}
	dv.Elem().Set(sv)
	return nil
}
