package sigs

import (
	"crypto/sha512"
	"encoding/binary"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/crypto"
	"github.com/iov-one/escrowd/errors"
)

// SignCodeV1 prefixes every payload before it is hashed and signed.
var SignCodeV1 = []byte{0, 0xCA, 0xFE, 0}

// VerifyTxSignatures verifies every signature of tx and advances the
// sequence of each signer. It returns the conditions of all signers, in
// signature order. A single invalid signature fails the whole call.
func VerifyTxSignatures(db escrowd.KVStore, tx SignedTx, chainID string) ([]escrowd.Condition, error) {
	payload, err := tx.GetSignBytes()
	if err != nil {
		return nil, errors.Wrap(err, "sign bytes")
	}
	sigs := tx.GetSignatures()
	signers := make([]escrowd.Condition, 0, len(sigs))
	for i, sig := range sigs {
		cond, err := VerifySignature(db, sig, payload, chainID)
		if err != nil {
			return nil, errors.Wrapf(err, "signature %d", i)
		}
		signers = append(signers, cond)
	}
	return signers, nil
}

// VerifySignature verifies a single signature of payload. On success the
// sequence of the signer is incremented in db and the signer condition is
// returned.
func VerifySignature(db escrowd.KVStore, sig *StdSignature, payload []byte, chainID string) (escrowd.Condition, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	digest, err := BuildSignBytes(payload, chainID, sig.Sequence)
	if err != nil {
		return nil, err
	}
	if !sig.Pubkey.Verify(digest, sig.Signature) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "invalid signature")
	}

	bucket := NewBucket()
	user, err := bucket.GetOrCreate(db, sig.Pubkey)
	if err != nil {
		return nil, err
	}
	if err := user.CheckAndIncrementSequence(sig.Sequence); err != nil {
		return nil, err
	}
	if err := bucket.Save(db, user); err != nil {
		return nil, errors.Wrap(err, "save signer")
	}
	return user.Pubkey.Condition(), nil
}

// BuildSignBytes returns the sha512 digest that is signed for payload.
// The digest binds the payload to the chain and the signer sequence:
//
//	SignCodeV1 (4) | len(chainID) (1) | chainID | sequence (8, big endian) | payload
func BuildSignBytes(payload []byte, chainID string, seq int64) ([]byte, error) {
	if seq < 0 {
		return nil, errors.Wrap(ErrInvalidSequence, "negative")
	}
	if !escrowd.IsValidChainID(chainID) {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "chain id %q", chainID)
	}

	buf := make([]byte, 0, len(SignCodeV1)+1+len(chainID)+8+len(payload))
	buf = append(buf, SignCodeV1...)
	buf = append(buf, byte(len(chainID)))
	buf = append(buf, chainID...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(seq))
	buf = append(buf, payload...)

	digest := sha512.Sum512(buf)
	return digest[:], nil
}

// BuildSignBytesTx returns the digest a signer with given sequence signs
// for tx.
func BuildSignBytesTx(tx SignedTx, chainID string, seq int64) ([]byte, error) {
	payload, err := tx.GetSignBytes()
	if err != nil {
		return nil, err
	}
	return BuildSignBytes(payload, chainID, seq)
}

// SignTx signs tx with signer. The signature is valid only for given
// chain and sequence.
func SignTx(signer crypto.Signer, tx SignedTx, chainID string, seq int64) (*StdSignature, error) {
	digest, err := BuildSignBytesTx(tx, chainID, seq)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(digest)
	if err != nil {
		return nil, errors.Wrap(err, "sign")
	}
	return &StdSignature{
		Pubkey:    signer.PublicKey(),
		Signature: sig,
		Sequence:  seq,
	}, nil
}
