package weavetest

import (
	"sync/atomic"

	"github.com/iov-one/escrowd"
)

// Decorator counts the calls passing through it. When CheckErr or
// DeliverErr is set it returns that error instead of calling the next
// handler.
type Decorator struct {
	checkCall   int64
	deliverCall int64

	CheckErr   error
	DeliverErr error
}

var _ escrowd.Decorator = (*Decorator)(nil)

func (d *Decorator) Check(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx, next escrowd.Checker) (*escrowd.CheckResult, error) {
	atomic.AddInt64(&d.checkCall, 1)
	if d.CheckErr != nil {
		return nil, d.CheckErr
	}
	return next.Check(ctx, db, tx)
}

func (d *Decorator) Deliver(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx, next escrowd.Deliverer) (*escrowd.DeliverResult, error) {
	atomic.AddInt64(&d.deliverCall, 1)
	if d.DeliverErr != nil {
		return nil, d.DeliverErr
	}
	return next.Deliver(ctx, db, tx)
}

func (d *Decorator) CheckCallCount() int {
	return int(atomic.LoadInt64(&d.checkCall))
}

func (d *Decorator) DeliverCallCount() int {
	return int(atomic.LoadInt64(&d.deliverCall))
}

func (d *Decorator) CallCount() int {
	return d.CheckCallCount() + d.DeliverCallCount()
}

// Decorate returns a handler that passes every call through d before
// reaching h.
func Decorate(h escrowd.Handler, d escrowd.Decorator) escrowd.Handler {
	return decorated{next: h, dec: d}
}

type decorated struct {
	next escrowd.Handler
	dec  escrowd.Decorator
}

func (d decorated) Check(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	return d.dec.Check(ctx, db, tx, d.next)
}

func (d decorated) Deliver(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	return d.dec.Deliver(ctx, db, tx, d.next)
}
