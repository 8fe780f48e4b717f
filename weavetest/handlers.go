package weavetest

import (
	"sync/atomic"

	"github.com/iov-one/escrowd"
)

// Handler is a mock implementation of the escrowd.Handler interface.
//
// Set CheckErr or DeliverErr to force an error response. When Write is
// set, its key/value pair is written to the store before returning. Call
// counters are safe for concurrent use.
type Handler struct {
	checkCall   int64
	CheckResult escrowd.CheckResult
	CheckErr    error

	deliverCall   int64
	DeliverResult escrowd.DeliverResult
	DeliverErr    error

	// Write if set is stored in the database on every call.
	Write *escrowd.Model
}

var _ escrowd.Handler = (*Handler)(nil)

func (h *Handler) Check(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	atomic.AddInt64(&h.checkCall, 1)
	if err := h.write(db); err != nil {
		return nil, err
	}
	res := h.CheckResult
	return &res, h.CheckErr
}

func (h *Handler) Deliver(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	atomic.AddInt64(&h.deliverCall, 1)
	if err := h.write(db); err != nil {
		return nil, err
	}
	res := h.DeliverResult
	return &res, h.DeliverErr
}

func (h *Handler) write(db escrowd.KVStore) error {
	if h.Write == nil {
		return nil
	}
	return db.Set(h.Write.Key, h.Write.Value)
}

func (h *Handler) CheckCallCount() int {
	return int(atomic.LoadInt64(&h.checkCall))
}

func (h *Handler) DeliverCallCount() int {
	return int(atomic.LoadInt64(&h.deliverCall))
}

func (h *Handler) CallCount() int {
	return h.CheckCallCount() + h.DeliverCallCount()
}
