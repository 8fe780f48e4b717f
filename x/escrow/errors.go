package escrow

import "github.com/iov-one/escrowd/errors"

var (
	// ErrAlreadyReleased is returned for any mutation of a settled escrow.
	ErrAlreadyReleased = errors.Register(1010, "escrow already released")

	// ErrNotFunded is returned when settling an escrow whose custody
	// account holds nothing.
	ErrNotFunded = errors.Register(1011, "escrow not funded")
)
