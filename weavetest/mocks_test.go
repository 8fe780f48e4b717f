package weavetest

import (
	"context"
	"testing"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store"
)

func TestAuth(t *testing.T) {
	alice := NewCondition()
	bob := NewCondition()
	carol := NewCondition()

	cases := map[string]struct {
		auth     Auth
		wantAuth []escrowd.Condition
		wantDeny []escrowd.Condition
	}{
		"nobody": {
			wantDeny: []escrowd.Condition{alice},
		},
		"single signer": {
			auth:     Auth{Signer: alice},
			wantAuth: []escrowd.Condition{alice},
			wantDeny: []escrowd.Condition{bob},
		},
		"signer and signers": {
			auth:     Auth{Signer: alice, Signers: []escrowd.Condition{bob}},
			wantAuth: []escrowd.Condition{alice, bob},
			wantDeny: []escrowd.Condition{carol},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			ctx := context.Background()
			if got := len(tc.auth.GetConditions(ctx)); got != len(tc.wantAuth) {
				t.Fatalf("want %d conditions, got %d", len(tc.wantAuth), got)
			}
			for _, c := range tc.wantAuth {
				if !tc.auth.HasAddress(ctx, c.Address()) {
					t.Errorf("%s not authenticated", c)
				}
			}
			for _, c := range tc.wantDeny {
				if tc.auth.HasAddress(ctx, c.Address()) {
					t.Errorf("%s authenticated", c)
				}
			}
		})
	}
}

func TestCtxAuth(t *testing.T) {
	alice := NewCondition()
	auth := &CtxAuth{Key: "signers"}

	ctx := context.Background()
	if auth.HasAddress(ctx, alice.Address()) {
		t.Fatal("empty context authenticated an address")
	}
	ctx = auth.SetConditions(ctx, alice)
	if !auth.HasAddress(ctx, alice.Address()) {
		t.Fatal("granted condition not authenticated")
	}
	if got := auth.GetConditions(ctx); len(got) != 1 {
		t.Fatalf("want one condition, got %d", len(got))
	}
}

func TestDecoratedHandler(t *testing.T) {
	ctx := context.Background()
	db := store.MemStore()

	h := &Handler{DeliverResult: escrowd.DeliverResult{Data: []byte("escrow-id")}}
	d := &Decorator{CheckErr: errors.ErrUnauthorized}
	stack := Decorate(h, d)

	if _, err := stack.Check(ctx, db, &Tx{}); !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("want unauthorized, got %v", err)
	}
	res, err := stack.Deliver(ctx, db, &Tx{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if string(res.Data) != "escrow-id" {
		t.Fatalf("unexpected data: %q", res.Data)
	}

	if d.CheckCallCount() != 1 || d.DeliverCallCount() != 1 || d.CallCount() != 2 {
		t.Fatalf("unexpected decorator calls: check %d, deliver %d", d.CheckCallCount(), d.DeliverCallCount())
	}
	// the failed check never reached the handler
	if h.CheckCallCount() != 0 || h.DeliverCallCount() != 1 {
		t.Fatalf("unexpected handler calls: check %d, deliver %d", h.CheckCallCount(), h.DeliverCallCount())
	}
}
