/*
Package sigs authenticates transactions by their ed25519 signatures. Every
signer has a sequence that the next signature must carry, which protects
against replays. Verified signers are stored in the context for the
handlers.
*/
package sigs

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
)

// signatureVerifyCost is the gas a CheckTx is charged per signature.
const signatureVerifyCost = 500

// RegisterQuery exposes the signer sequences under "/auth".
func RegisterQuery(qr escrowd.QueryRouter) {
	NewBucket().Register("auth", qr)
}

// Decorator verifies every signature of the transaction before passing it
// on. By default a transaction without signatures is rejected.
type Decorator struct {
	allowMissingSigs bool
}

var _ escrowd.Decorator = Decorator{}

func NewDecorator() Decorator {
	return Decorator{}
}

// AllowMissingSigs lets transactions without signatures through, with no
// signer in the context.
func (d Decorator) AllowMissingSigs() Decorator {
	d.allowMissingSigs = true
	return d
}

func (d Decorator) Check(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx, next escrowd.Checker) (*escrowd.CheckResult, error) {
	ctx, signers, err := d.verify(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	res, err := next.Check(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	res.GasAllocated += int64(signers) * signatureVerifyCost
	return res, nil
}

func (d Decorator) Deliver(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx, next escrowd.Deliverer) (*escrowd.DeliverResult, error) {
	ctx, _, err := d.verify(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	return next.Deliver(ctx, db, tx)
}

// verify returns ctx extended with the signers of tx and their count.
func (d Decorator) verify(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (escrowd.Context, int, error) {
	signed, ok := tx.(SignedTx)
	if !ok {
		if d.allowMissingSigs {
			return ctx, 0, nil
		}
		return nil, 0, errors.Wrapf(errors.ErrUnauthorized, "%T carries no signatures", tx)
	}
	signers, err := VerifyTxSignatures(db, signed, escrowd.GetChainID(ctx))
	if err != nil {
		return nil, 0, errors.Wrap(err, "verify signatures")
	}
	if len(signers) == 0 && !d.allowMissingSigs {
		return nil, 0, errors.Wrap(errors.ErrUnauthorized, "missing signature")
	}
	return withSigners(ctx, signers), len(signers), nil
}
