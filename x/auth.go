package x

import (
	"github.com/iov-one/escrowd"
)

// Authenticator tells handlers who authorized the transaction being
// processed. Handlers receive it in their constructor so that the signature
// scheme can be replaced without touching them.
type Authenticator interface {
	// GetConditions returns every condition fulfilled in ctx.
	GetConditions(escrowd.Context) []escrowd.Condition
	// HasAddress reports whether any fulfilled condition maps to addr.
	HasAddress(escrowd.Context, escrowd.Address) bool
}

// MultiAuth merges the conditions of several authenticators.
type MultiAuth struct {
	impls []Authenticator
}

var _ Authenticator = MultiAuth{}

func ChainAuth(impls ...Authenticator) MultiAuth {
	return MultiAuth{impls: impls}
}

// GetConditions returns the conditions of every authenticator in order.
// A condition reported more than once appears once.
func (m MultiAuth) GetConditions(ctx escrowd.Context) []escrowd.Condition {
	var all []escrowd.Condition
	for _, impl := range m.impls {
		for _, c := range impl.GetConditions(ctx) {
			if !containsCondition(all, c) {
				all = append(all, c)
			}
		}
	}
	return all
}

func (m MultiAuth) HasAddress(ctx escrowd.Context, addr escrowd.Address) bool {
	for _, impl := range m.impls {
		if impl.HasAddress(ctx, addr) {
			return true
		}
	}
	return false
}

// MainSigner returns the first fulfilled condition, or nil. The escrow
// handlers use it as the default initializer.
func MainSigner(ctx escrowd.Context, auth Authenticator) escrowd.Condition {
	if conds := auth.GetConditions(ctx); len(conds) > 0 {
		return conds[0]
	}
	return nil
}

// AnySigner returns the first candidate that is authenticated in ctx. Empty
// candidates are skipped.
func AnySigner(ctx escrowd.Context, auth Authenticator, candidates ...escrowd.Address) escrowd.Address {
	for _, c := range candidates {
		if len(c) > 0 && auth.HasAddress(ctx, c) {
			return c
		}
	}
	return nil
}

func containsCondition(conds []escrowd.Condition, c escrowd.Condition) bool {
	for _, have := range conds {
		if have.Equals(c) {
			return true
		}
	}
	return false
}
