package app

import (
	"reflect"

	"github.com/iov-one/escrowd"
)

// Decorators is an ordered stack of decorators waiting for the handler
// they will wrap.
type Decorators struct {
	chain []escrowd.Decorator
}

// ChainDecorators starts a stack. The first decorator given is the
// outermost one and sees every transaction first. Nil decorators are
// skipped, so optional middleware can be passed unconditionally.
//
//	app.ChainDecorators(
//		utils.NewLogging(),
//		utils.NewRecovery(),
//		sigs.NewDecorator(),
//	).WithHandler(router)
func ChainDecorators(chain ...escrowd.Decorator) Decorators {
	return Decorators{}.Chain(chain...)
}

// Chain returns a stack extended with given decorators.
func (d Decorators) Chain(chain ...escrowd.Decorator) Decorators {
	next := make([]escrowd.Decorator, 0, len(d.chain)+len(chain))
	next = append(next, d.chain...)
	for _, dec := range chain {
		if !isNilDecorator(dec) {
			next = append(next, dec)
		}
	}
	return Decorators{chain: next}
}

func isNilDecorator(d escrowd.Decorator) bool {
	if d == nil {
		return true
	}
	v := reflect.ValueOf(d)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// WithHandler closes the stack around h.
func (d Decorators) WithHandler(h escrowd.Handler) escrowd.Handler {
	for i := len(d.chain) - 1; i >= 0; i-- {
		h = link{dec: d.chain[i], next: h}
	}
	return h
}

// link binds one decorator to the rest of the stack.
type link struct {
	dec  escrowd.Decorator
	next escrowd.Handler
}

func (l link) Check(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	return l.dec.Check(ctx, db, tx, l.next)
}

func (l link) Deliver(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	return l.dec.Deliver(ctx, db, tx, l.next)
}
