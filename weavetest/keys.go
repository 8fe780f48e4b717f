package weavetest

import (
	"crypto/rand"
	"testing"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/crypto"
)

// NewKey returns a fresh ed25519 private key.
func NewKey() crypto.Signer {
	return crypto.GenPrivKeyEd25519()
}

// NewCondition returns the condition of a fresh ed25519 key.
func NewCondition() escrowd.Condition {
	return NewKey().PublicKey().Condition()
}

// RandomAddr returns an address of random bytes. It is not bound to any
// key.
func RandomAddr(t testing.TB) escrowd.Address {
	t.Helper()
	raw := make([]byte, escrowd.AddressLength)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("random address: %s", err)
	}
	return escrowd.Address(raw)
}
