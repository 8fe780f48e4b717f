package errors

import (
	"io"
	"testing"
)

func TestABCInfo(t *testing.T) {
	cases := map[string]struct {
		err      error
		debug    bool
		wantCode uint32
		wantLog  string
	}{
		"plain registered error": {
			err:      ErrNotFound,
			debug:    false,
			wantLog:  "not found",
			wantCode: ErrNotFound.code,
		},
		"wrapped registered error": {
			err:      Wrap(Wrap(ErrNotFound, "foo"), "bar"),
			debug:    false,
			wantLog:  "bar: foo: not found",
			wantCode: ErrNotFound.code,
		},
		"nil is empty message": {
			err:      nil,
			debug:    false,
			wantLog:  "",
			wantCode: 0,
		},
		"nil registered error is not an error": {
			err:      (*Error)(nil),
			debug:    false,
			wantLog:  "",
			wantCode: 0,
		},
		"stdlib is generic message": {
			err:      io.EOF,
			debug:    false,
			wantLog:  "internal error",
			wantCode: 1,
		},
		"stdlib returns error message in debug mode": {
			err:      io.EOF,
			debug:    true,
			wantLog:  "EOF",
			wantCode: 1,
		},
		"wrapped stdlib is only a generic message": {
			err:      Wrap(io.EOF, "cannot read file"),
			debug:    false,
			wantLog:  "internal error",
			wantCode: 1,
		},
		"custom error": {
			err:      customErr{},
			debug:    false,
			wantLog:  "custom",
			wantCode: 999,
		},
		"custom error in debug mode": {
			err:      customErr{},
			debug:    true,
			wantLog:  "custom",
			wantCode: 999,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			code, log := ABCIInfo(tc.err, tc.debug)
			if code != tc.wantCode {
				t.Errorf("want %d code, got %d", tc.wantCode, code)
			}
			if log != tc.wantLog {
				t.Errorf("want %q log, got %q", tc.wantLog, log)
			}
		})
	}
}

func TestABCIError(t *testing.T) {
	cases := map[string]struct {
		code     uint32
		log      string
		wantRoot *Error
		wantNil  bool
	}{
		"success is not an error": {
			code:    SuccessABCICode,
			wantNil: true,
		},
		"registered code": {
			code:     ErrUnauthorized.ABCICode(),
			log:      "cannot deliver tx: unauthorized",
			wantRoot: ErrUnauthorized,
		},
		"unknown code is internal": {
			code:     987654,
			log:      "whatever",
			wantRoot: usedCodes[internalABCICode],
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := ABCIError(tc.code, tc.log)
			if tc.wantNil {
				if err != nil {
					t.Fatalf("want nil, got %v", err)
				}
				return
			}
			if !tc.wantRoot.Is(err) {
				t.Fatalf("want %v, got %v", tc.wantRoot, err)
			}
			// Formatting an error without a stacktrace must not panic.
			_ = formatted(err)
		})
	}
}

func TestRedact(t *testing.T) {
	if err := Redact(ErrPanic, false); ErrPanic.Is(err) {
		t.Error("panic must be redacted")
	}
	if err := Redact(io.EOF, false); err.Error() != "internal error" {
		t.Errorf("stdlib error must be redacted, got %q", err)
	}
	if err := Redact(ErrNotFound, false); !ErrNotFound.Is(err) {
		t.Error("registered error must not be redacted")
	}
	if err := Redact(io.EOF, true); err != io.EOF {
		t.Error("debug mode must not redact")
	}
}

// customErr is a custom implementation of an error that provides an ABCICode
// method.
type customErr struct{}

func (customErr) ABCICode() uint32 { return 999 }

func (customErr) Error() string { return "custom" }
