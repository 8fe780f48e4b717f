package weavetest

import (
	"context"
	"fmt"

	"github.com/iov-one/escrowd"
)

// Auth authenticates a fixed set of conditions, no matter the context.
// Signer and Signers are both taken into account.
type Auth struct {
	Signer  escrowd.Condition
	Signers []escrowd.Condition
}

func (a *Auth) GetConditions(escrowd.Context) []escrowd.Condition {
	conds := append([]escrowd.Condition(nil), a.Signers...)
	if a.Signer != nil {
		conds = append(conds, a.Signer)
	}
	return conds
}

func (a *Auth) HasAddress(ctx escrowd.Context, addr escrowd.Address) bool {
	return hasAddress(a.GetConditions(ctx), addr)
}

// CtxAuth authenticates the conditions stored in the context under Key.
// Use SetConditions to grant them.
type CtxAuth struct {
	Key string
}

func (a *CtxAuth) SetConditions(ctx escrowd.Context, conds ...escrowd.Condition) escrowd.Context {
	return context.WithValue(ctx, a.Key, conds)
}

func (a *CtxAuth) GetConditions(ctx escrowd.Context) []escrowd.Condition {
	switch conds := ctx.Value(a.Key).(type) {
	case nil:
		return nil
	case []escrowd.Condition:
		return conds
	default:
		panic(fmt.Sprintf("context key %q holds %T", a.Key, conds))
	}
}

func (a *CtxAuth) HasAddress(ctx escrowd.Context, addr escrowd.Address) bool {
	return hasAddress(a.GetConditions(ctx), addr)
}

func hasAddress(conds []escrowd.Condition, addr escrowd.Address) bool {
	for _, c := range conds {
		if addr.Equals(c.Address()) {
			return true
		}
	}
	return false
}
