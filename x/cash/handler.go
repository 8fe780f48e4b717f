package cash

import (
	"github.com/iov-one/escrowd"
)

// RegisterQuery will register this bucket as "/wallets"
func RegisterQuery(qr escrowd.QueryRouter) {
	NewBucket().Register("wallets", qr)
}
