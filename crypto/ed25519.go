package crypto

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"golang.org/x/crypto/ed25519"
)

// Verify verifies the signature was created with this message and public key
func (p *PublicKey) Verify(message []byte, sig *Signature) bool {
	if p == nil || len(p.Ed25519) != ed25519.PublicKeySize {
		return false
	}
	if len(sig.GetEd25519()) != ed25519.SignatureSize {
		return false
	}
	publicKey := ed25519.PublicKey(p.Ed25519)
	return ed25519.Verify(publicKey, message, sig.Ed25519)
}

// Condition encodes the public key into a signature condition. Returns nil
// for an empty key.
func (p *PublicKey) Condition() escrowd.Condition {
	if p == nil || len(p.Ed25519) == 0 {
		return nil
	}
	return escrowd.NewCondition(ExtensionName, "ed25519", p.Ed25519)
}

// Sign returns a matching signature for this private key
func (p *PrivateKey) Sign(message []byte) (*Signature, error) {
	if len(p.GetEd25519()) != ed25519.PrivateKeySize {
		return nil, errors.Wrap(errors.ErrInvalidState, "missing private key")
	}
	privateKey := ed25519.PrivateKey(p.Ed25519)
	bz := ed25519.Sign(privateKey, message)
	return &Signature{Ed25519: bz}, nil
}

// PublicKey returns the corresponding PublicKey
func (p *PrivateKey) PublicKey() *PublicKey {
	if len(p.GetEd25519()) != ed25519.PrivateKeySize {
		return &PublicKey{}
	}
	privateKey := ed25519.PrivateKey(p.Ed25519)
	pub := privateKey.Public().(ed25519.PublicKey)
	return &PublicKey{Ed25519: pub}
}

// GenPrivKeyEd25519 returns a random new private key, read from
// crypto/rand.
func GenPrivKeyEd25519() *PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	return &PrivateKey{Ed25519: priv}
}

// PrivKeyEd25519FromSeed will deterministically generate a private key from
// a given seed. Use if you have a strong source of external randomness,
// or for deterministic keys in test cases.
func PrivKeyEd25519FromSeed(seed []byte) *PrivateKey {
	priv := ed25519.NewKeyFromSeed(seed)
	return &PrivateKey{Ed25519: priv}
}
