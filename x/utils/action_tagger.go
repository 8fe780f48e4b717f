package utils

import (
	"github.com/iov-one/escrowd"
	"github.com/tendermint/tendermint/libs/common"
)

// ActionKey is the tag under which the message path is published, for
// example action=escrow/release. Clients subscribe to it.
const ActionKey = "action"

// ActionTagger tags every delivered transaction with the path of its
// message. A handler that sets the action tag itself keeps its value.
type ActionTagger struct{}

var _ escrowd.Decorator = ActionTagger{}

func NewActionTagger() ActionTagger {
	return ActionTagger{}
}

func (ActionTagger) Check(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx, next escrowd.Checker) (*escrowd.CheckResult, error) {
	return next.Check(ctx, db, tx)
}

func (ActionTagger) Deliver(ctx escrowd.Context, db escrowd.KVStore, tx escrowd.Tx, next escrowd.Deliverer) (*escrowd.DeliverResult, error) {
	// A transaction without a message fails before reaching the handler.
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, err
	}
	res, err := next.Deliver(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if !hasTag(res.Tags, ActionKey) {
		res.Tags = append(res.Tags, common.KVPair{Key: []byte(ActionKey), Value: []byte(msg.Path())})
	}
	return res, nil
}

func hasTag(tags []common.KVPair, key string) bool {
	for _, t := range tags {
		if string(t.Key) == key {
			return true
		}
	}
	return false
}
