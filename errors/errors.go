package errors

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Root errors shared by all extensions. The number is the ABCI code a
// client receives, so it must never change once released.
var (
	// ErrUnauthorized means the transaction lacks a required signature.
	ErrUnauthorized = Register(2, "unauthorized")

	// ErrNotFound means the addressed record does not exist.
	ErrNotFound = Register(3, "not found")

	// ErrInvalidMsg means the transaction carries no usable message.
	ErrInvalidMsg = Register(4, "invalid message")

	// ErrInvalidModel means a record failed validation before being stored.
	ErrInvalidModel = Register(5, "invalid model")

	// ErrDuplicate means a record with the same key already exists.
	ErrDuplicate = Register(6, "duplicate")

	// ErrHuman marks a code path a correct program never takes.
	ErrHuman = Register(7, "coding error")

	ErrEmpty        = Register(9, "value is empty")
	ErrInvalidState = Register(10, "invalid state")
	ErrInvalidType  = Register(11, "invalid type")

	// ErrInsufficientAmount means a wallet or a custody account holds
	// less than the amount to move.
	ErrInsufficientAmount = Register(12, "insufficient amount")

	ErrInvalidAmount = Register(13, "invalid amount")
	ErrInvalidInput  = Register(14, "invalid input")

	// ErrOverflow means a balance would exceed the uint64 range.
	ErrOverflow = Register(16, "an operation cannot be completed due to value overflow")

	// ErrDatabase wraps failures of the underlying storage.
	ErrDatabase = Register(17, "database")

	// ErrIteratorDone is returned by an iterator with nothing left to read.
	ErrIteratorDone = Register(18, "iterator done")

	// ErrNetwork means a node could not be reached or answered garbage.
	ErrNetwork = Register(19, "network")

	// ErrPanic replaces a recovered panic, whose message may expose
	// details of the host.
	ErrPanic = Register(111222, "panic")
)

// Register declares a root error for code. Extensions call it from a
// package level var block. It panics when the code is taken.
func Register(code uint32, description string) *Error {
	if e, ok := usedCodes[code]; ok {
		panic(fmt.Sprintf("error with code %d is already registered: %q", code, e.desc))
	}
	e := &Error{code: code, desc: description}
	usedCodes[code] = e
	return e
}

// usedCodes maps every registered code to its root error. Code 1 is
// reserved for internal errors.
var usedCodes = map[uint32]*Error{
	internalABCICode: {code: internalABCICode, desc: internalABCILog},
}

// Error is a root error. Errors created at runtime wrap one of them, so
// callers test the kind with Is and clients get a stable ABCI code.
type Error struct {
	code uint32
	desc string
}

func (e Error) Error() string {
	return e.desc
}

func (e Error) ABCICode() uint32 {
	return e.code
}

// New is a shortcut for Wrap(e, description).
func (e *Error) New(description string) error {
	return Wrap(e, description)
}

// Newf is New with formatting.
func (e *Error) Newf(description string, args ...interface{}) error {
	return e.New(fmt.Sprintf(description, args...))
}

// Is reports whether err is this root error or wraps it. A nil kind
// matches only a nil error.
func (kind *Error) Is(err error) bool {
	if kind == nil {
		return err == nil || reflect.ValueOf(err).IsNil()
	}
	for err != nil {
		if err == kind {
			return true
		}
		if u, ok := err.(unpacker); ok {
			for _, e := range u.Unpack() {
				if kind.Is(e) {
					return true
				}
			}
		}
		c, ok := err.(causer)
		if !ok {
			return false
		}
		err = c.Cause()
	}
	return false
}

// Wrap describes err with additional context. A stack trace is recorded
// at the innermost wrap. Wrapping nil returns nil.
func Wrap(err error, description string) error {
	if err == nil {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	return &wrappedError{parent: err, msg: description}
}

// Wrapf is Wrap with formatting.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

type wrappedError struct {
	msg    string
	parent error
}

func (e *wrappedError) Error() string {
	return fmt.Sprintf("%s: %s", e.msg, e.parent.Error())
}

func (e *wrappedError) Cause() error {
	return e.parent
}

func (e *wrappedError) Unwrap() error {
	return e.parent
}

// Recover turns a panic into an ErrPanic assigned to err. Call it
// deferred.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = Wrapf(ErrPanic, "%v", r)
	}
}

// WithType wraps err with the type name of obj.
func WithType(err error, obj interface{}) error {
	return Wrap(err, fmt.Sprintf("%T", obj))
}

type causer interface {
	Cause() error
}

// unpacker is implemented by errors grouping several errors.
type unpacker interface {
	Unpack() []error
}
