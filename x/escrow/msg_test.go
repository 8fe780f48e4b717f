package escrow

import (
	"testing"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/weavetest"
	"github.com/iov-one/escrowd/weavetest/assert"
	"github.com/stretchr/testify/require"
)

func TestMsgValidate(t *testing.T) {
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	id := EscrowID(alice, bob)

	cases := map[string]struct {
		msg       escrowd.Msg
		wantErrs  map[string]*errors.Error
		wantValid bool
	}{
		"create with initializer": {
			msg:       &CreateMsg{Initializer: alice, Receiver: bob, Amount: 1},
			wantValid: true,
		},
		"create with default initializer": {
			msg:       &CreateMsg{Receiver: bob, Amount: 1},
			wantValid: true,
		},
		"create without anything": {
			msg: &CreateMsg{},
			wantErrs: map[string]*errors.Error{
				"Initializer": nil,
				"Receiver":    errors.ErrInvalidInput,
				"Amount":      errors.ErrInvalidAmount,
			},
		},
		"create to self": {
			msg: &CreateMsg{Initializer: alice, Receiver: alice, Amount: 1},
			wantErrs: map[string]*errors.Error{
				"Initializer": nil,
				"Receiver":    errors.ErrInvalidInput,
			},
		},
		"create with bad initializer": {
			msg: &CreateMsg{Initializer: escrowd.Address("x"), Receiver: bob, Amount: 1},
			wantErrs: map[string]*errors.Error{
				"Initializer": errors.ErrInvalidInput,
				"Receiver":    nil,
				"Amount":      nil,
			},
		},
		"fund": {
			msg:       &FundMsg{EscrowID: id},
			wantValid: true,
		},
		"fund with short id": {
			msg:      &FundMsg{EscrowID: alice},
			wantErrs: map[string]*errors.Error{"EscrowID": errors.ErrInvalidInput},
		},
		"fund own escrow id": {
			msg:      &FundMsg{EscrowID: EscrowID(alice, alice)},
			wantErrs: map[string]*errors.Error{"EscrowID": errors.ErrInvalidInput},
		},
		"release": {
			msg:       &ReleaseMsg{EscrowID: id, Receiver: bob},
			wantValid: true,
		},
		"release with bad receiver": {
			msg: &ReleaseMsg{EscrowID: id, Receiver: escrowd.Address("x")},
			wantErrs: map[string]*errors.Error{
				"EscrowID": nil,
				"Receiver": errors.ErrInvalidInput,
			},
		},
		"cancel": {
			msg:       &CancelMsg{EscrowID: id},
			wantValid: true,
		},
		"cancel without id": {
			msg:      &CancelMsg{},
			wantErrs: map[string]*errors.Error{"EscrowID": errors.ErrInvalidInput},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantValid {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			for field, want := range tc.wantErrs {
				assert.FieldError(t, err, field, want)
			}
		})
	}
}

func TestExclusiveKeys(t *testing.T) {
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	id := EscrowID(alice, bob)

	want := [][]byte{
		append([]byte("esc:"), id...),
		alice,
		bob,
		Condition(id).Address(),
	}
	for _, m := range []escrowd.Exclusive{
		&CreateMsg{Initializer: alice, Receiver: bob, Amount: 1},
		&FundMsg{EscrowID: id},
		&ReleaseMsg{EscrowID: id},
		&CancelMsg{EscrowID: id},
	} {
		assert.Equal(t, want, m.ExclusiveKeys())
	}

	// Without a known initializer the transaction must run alone.
	assert.Nil(t, (&CreateMsg{Receiver: bob, Amount: 1}).ExclusiveKeys())
	assert.Nil(t, (&FundMsg{EscrowID: alice}).ExclusiveKeys())
}

func TestMsgEncoding(t *testing.T) {
	id := EscrowID(weavetest.NewCondition().Address(), weavetest.NewCondition().Address())
	msg := &ReleaseMsg{EscrowID: id, Receiver: weavetest.NewCondition().Address()}

	raw, err := msg.Marshal()
	require.NoError(t, err)
	var got ReleaseMsg
	require.NoError(t, got.Unmarshal(raw))
	assert.Equal(t, msg, &got)
}
