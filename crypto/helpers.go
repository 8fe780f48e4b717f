/*
Package crypto provides the keys and signatures used to authenticate
transactions. Only ed25519 is supported.
*/
package crypto

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/codec"
)

// ExtensionName is used for the Conditions we get from signatures
const ExtensionName = "sigs"

// PubKey represents a crypto public key we use
type PubKey interface {
	Verify(message []byte, sig *Signature) bool
	Condition() escrowd.Condition
}

// Signer is the functionality we use from a private key
// No serializing to support hardware devices as well.
type Signer interface {
	Sign(message []byte) (*Signature, error)
	PublicKey() *PublicKey
}

// PublicKey is the public half of a key pair.
type PublicKey struct {
	Ed25519 []byte `json:"ed25519"`
}

// PrivateKey holds the secret used to sign transactions.
type PrivateKey struct {
	Ed25519 []byte `json:"ed25519"`
}

// Signature is a signature created with a PrivateKey.
type Signature struct {
	Ed25519 []byte `json:"ed25519"`
}

var (
	_ PubKey = (*PublicKey)(nil)
	_ Signer = (*PrivateKey)(nil)
)

// Address is a shortcut for Condition().Address(). Returns nil for an
// empty public key.
func (p *PublicKey) Address() escrowd.Address {
	c := p.Condition()
	if c == nil {
		return nil
	}
	return c.Address()
}

// GetEd25519 returns the raw key bytes.
func (p *PublicKey) GetEd25519() []byte {
	if p == nil {
		return nil
	}
	return p.Ed25519
}

func (p *PublicKey) Marshal() ([]byte, error) {
	return codec.Marshal(p)
}

func (p *PublicKey) Unmarshal(bz []byte) error {
	return codec.Unmarshal(bz, p)
}

// GetEd25519 returns the raw key bytes.
func (p *PrivateKey) GetEd25519() []byte {
	if p == nil {
		return nil
	}
	return p.Ed25519
}

func (p *PrivateKey) Marshal() ([]byte, error) {
	return codec.Marshal(p)
}

func (p *PrivateKey) Unmarshal(bz []byte) error {
	return codec.Unmarshal(bz, p)
}

// GetEd25519 returns the raw signature bytes.
func (s *Signature) GetEd25519() []byte {
	if s == nil {
		return nil
	}
	return s.Ed25519
}

func (s *Signature) Marshal() ([]byte, error) {
	return codec.Marshal(s)
}

func (s *Signature) Unmarshal(bz []byte) error {
	return codec.Unmarshal(bz, s)
}
