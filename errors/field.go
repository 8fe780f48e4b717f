package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Field attaches the name of a message or model field to err, so that a
// client can tell which input was rejected. Use the Go name of the field,
// for example Receiver or Amount. A nil err returns nil.
func Field(fieldName string, err error, description string, args ...interface{}) error {
	if errIsNil(err) {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	if len(args) > 0 {
		description = fmt.Sprintf(description, args...)
	}
	return &fieldError{parent: err, field: fieldName, desc: description}
}

// AppendField appends the error of fieldName to errs. Validate methods
// collect all field errors this way before returning.
func AppendField(errs error, fieldName string, fieldErr error) error {
	return Append(errs, Field(fieldName, fieldErr, ""))
}

type fieldError struct {
	parent error
	field  string
	desc   string
}

func (e *fieldError) Error() string {
	if e.desc == "" {
		return fmt.Sprintf("field %q: %s", e.field, e.parent)
	}
	return fmt.Sprintf("field %q: %s: %s", e.field, e.desc, e.parent)
}

func (e *fieldError) Cause() error {
	return e.parent
}

func (e *fieldError) Field() string {
	return e.field
}

// FieldErrors returns every error attached to fieldName within err.
func FieldErrors(err error, fieldName string) []error {
	var found []error
	for !errIsNil(err) {
		if f, ok := err.(interface{ Field() string }); ok && f.Field() == fieldName {
			return append(found, err)
		}
		if u, ok := err.(unpacker); ok {
			for _, e := range u.Unpack() {
				found = append(found, FieldErrors(e, fieldName)...)
			}
			return found
		}
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return found
}

// Append groups errs into a single error, skipping nils. It returns nil
// when nothing is left and the error itself when only one is left.
func Append(errs ...error) error {
	var all multiErr
	for _, e := range errs {
		switch e := e.(type) {
		case nil:
		case multiErr:
			all = append(all, e...)
		default:
			if !errIsNil(e) {
				all = append(all, e)
			}
		}
	}
	switch len(all) {
	case 0:
		return nil
	case 1:
		return all[0]
	}
	return all
}

// multiErr reports the ABCI code and the cause of its first error.
type multiErr []error

func (m multiErr) Error() string {
	lines := make([]string, len(m))
	for i, err := range m {
		lines[i] = "* " + err.Error()
	}
	return fmt.Sprintf("%d errors occurred:\n\t%s\n", len(m), strings.Join(lines, "\n\t"))
}

func (m multiErr) ABCICode() uint32 {
	return abciCode(m[0])
}

func (m multiErr) Cause() error {
	return m[0]
}

func (m multiErr) Unpack() []error {
	return m
}
