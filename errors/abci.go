package errors

import (
	"errors"
	"fmt"
	"reflect"
)

const (
	// SuccessABCICode is the code of a successful ABCI response.
	SuccessABCICode = 0

	// Errors that do not carry a registered code are reported with
	// internalABCICode. Their message is replaced with internalABCILog
	// outside of debug mode.
	internalABCICode uint32 = 1
	internalABCILog         = "internal error"
)

// ABCIInfo returns the code and log of an ABCI response reporting err.
// Only registered errors expose their message. Any other error becomes
// code 1 with a generic log, unless debug is set in which case the full
// message and stack trace are returned.
func ABCIInfo(err error, debug bool) (uint32, string) {
	if errIsNil(err) {
		return SuccessABCICode, ""
	}
	code := abciCode(err)
	switch {
	case debug:
		return code, fmt.Sprintf("%+v", err)
	case code == internalABCICode:
		return code, internalABCILog
	default:
		return code, err.Error()
	}
}

// ABCIError rebuilds an error out of the code and log of an ABCI response,
// so that clients can test it with the Is method of a registered error.
// Codes that are not registered become internal errors.
func ABCIError(code uint32, log string) error {
	if code == SuccessABCICode {
		return nil
	}
	root, ok := usedCodes[code]
	if !ok {
		root = usedCodes[internalABCICode]
	}
	return &wrappedError{parent: root, msg: log}
}

type coder interface {
	ABCICode() uint32
}

// abciCode walks the cause chain of err and returns the first code found.
func abciCode(err error) uint32 {
	if errIsNil(err) {
		return SuccessABCICode
	}
	for err != nil {
		if c, ok := err.(coder); ok {
			return c.ABCICode()
		}
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return internalABCICode
}

// errIsNil reports whether err is nil or a typed nil pointer.
func errIsNil(err error) bool {
	if err == nil {
		return true
	}
	val := reflect.ValueOf(err)
	return val.Kind() == reflect.Ptr && val.IsNil()
}

// Redact replaces every error that is not registered, and every panic,
// with a generic internal error. It returns err unchanged in debug mode.
func Redact(err error, debug bool) error {
	if debug {
		return err
	}
	if ErrPanic.Is(err) || abciCode(err) == internalABCICode {
		return errors.New(internalABCILog)
	}
	return err
}
