/*
Package assert provides the small set of assertions used across escrowd
tests. It understands registered errors, field errors and values that are
nil behind an interface. Every assertion stops the test on failure.
*/
package assert

import (
	"reflect"
	"testing"

	"github.com/iov-one/escrowd/errors"
	"github.com/stretchr/testify/assert"
)

// Tester is the part of testing.TB the assertions need.
type Tester interface {
	Helper()
	Fatal(...interface{})
	Fatalf(string, ...interface{})
}

// Nil fails unless value is nil, including a nil pointer stored in an
// interface.
func Nil(t Tester, value interface{}) {
	t.Helper()
	if !isNil(value) {
		// %+v prints the stack trace of escrowd errors.
		t.Fatalf("want nil, got %+v", value)
	}
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// Equal fails unless want and got are deeply equal and of the same type.
func Equal(t Tester, want, got interface{}) {
	t.Helper()
	if !assert.ObjectsAreEqual(want, got) {
		t.Fatalf("values not equal\nwant %T %v\n got %T %v", want, want, got, got)
	}
}

// Panics fails unless fn panics.
func Panics(t Tester, fn func()) {
	t.Helper()
	if didPanic(fn) {
		return
	}
	t.Fatal("panic expected")
}

func didPanic(fn func()) (panicked bool) {
	defer func() {
		if recover() != nil {
			panicked = true
		}
	}()
	fn()
	return false
}

// IsErr fails unless got is want or, when want is a registered error,
// got is rooted in it.
func IsErr(t Tester, want, got error) {
	t.Helper()
	if want == got {
		return
	}
	if root, ok := want.(interface{ Is(error) bool }); ok && root.Is(got) {
		return
	}
	t.Fatalf("want %q, got %+v", want, got)
}

// FieldError fails unless err holds exactly one error for fieldName and
// that error is rooted in want. A nil want asserts that the field has no
// error at all.
func FieldError(t testing.TB, err error, fieldName string, want *errors.Error) {
	t.Helper()
	errs := errors.FieldErrors(err, fieldName)

	switch {
	case want == nil && len(errs) == 0:
		return
	case want != nil && len(errs) == 1:
		if !want.Is(errs[0]) {
			t.Fatalf("%q: want %q, got %q", fieldName, want, errs[0])
		}
		return
	case len(errs) == 0:
		t.Fatalf("no error found for %q", fieldName)
		return
	}
	for i, e := range errs {
		t.Logf("\terror %d: %q", i+1, e)
	}
	t.Fatalf("%q: want %d errors, got %d", fieldName, boolToInt(want != nil), len(errs))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
