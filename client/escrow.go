package client

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/x/cash"
	"github.com/iov-one/escrowd/x/escrow"
	"github.com/iov-one/escrowd/x/sigs"
)

// Escrow returns the escrow stored under given id. ErrNotFound is
// returned when there is none.
func (c *Client) Escrow(id []byte) (*escrow.Escrow, error) {
	if _, _, err := escrow.SplitID(id); err != nil {
		return nil, err
	}
	resp, err := c.AbciQuery("/escrows", id)
	if err != nil {
		return nil, err
	}
	if len(resp.Models) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "escrow %X", id)
	}
	var e escrow.Escrow
	if err := e.Unmarshal(resp.Models[0].Value); err != nil {
		return nil, err
	}
	return &e, nil
}

// EscrowsOf returns all escrows created by given initializer.
func (c *Client) EscrowsOf(initializer escrowd.Address) ([]*escrow.Escrow, error) {
	if err := initializer.Validate(); err != nil {
		return nil, err
	}
	resp, err := c.AbciQuery("/escrows?"+escrowd.PrefixQueryMod, initializer)
	if err != nil {
		return nil, err
	}
	return escrows(resp.Models)
}

// EscrowsTo returns all escrows paying out to given receiver.
func (c *Client) EscrowsTo(receiver escrowd.Address) ([]*escrow.Escrow, error) {
	if err := receiver.Validate(); err != nil {
		return nil, err
	}
	resp, err := c.AbciQuery("/escrows/receiver", receiver)
	if err != nil {
		return nil, err
	}
	return escrows(resp.Models)
}

func escrows(models []escrowd.Model) ([]*escrow.Escrow, error) {
	res := make([]*escrow.Escrow, len(models))
	for i, m := range models {
		var e escrow.Escrow
		if err := e.Unmarshal(m.Value); err != nil {
			return nil, errors.Wrapf(err, "escrow %d", i)
		}
		res[i] = &e
	}
	return res, nil
}

// Balance returns the balance of given address. A missing wallet holds
// nothing.
func (c *Client) Balance(addr escrowd.Address) (uint64, error) {
	if err := addr.Validate(); err != nil {
		return 0, err
	}
	resp, err := c.AbciQuery("/wallets", addr)
	if err != nil {
		return 0, err
	}
	if len(resp.Models) == 0 {
		return 0, nil
	}
	var w cash.Wallet
	if err := w.Unmarshal(resp.Models[0].Value); err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// Nonce returns the sequence the next signature of given signer must
// carry.
func (c *Client) Nonce(signer escrowd.Address) (int64, error) {
	if err := signer.Validate(); err != nil {
		return 0, err
	}
	resp, err := c.AbciQuery("/auth", signer)
	if err != nil {
		return 0, err
	}
	if len(resp.Models) == 0 {
		return 0, nil
	}
	var user sigs.UserData
	if err := user.Unmarshal(resp.Models[0].Value); err != nil {
		return 0, err
	}
	return user.Sequence, nil
}
