/*
Package escrowd defines interfaces used throughout the app, such as: storage,
transactions, handlers etc. It also contains helpers to work with errors,
context, authentication and abci.

We pass context through context.Context between app, middleware, and
handlers. To do so, escrowd defines some common keys to store info, such as
block height and chain id. Each extension, such as sigs, may add its own
keys to enrich the context with specific data.

There should exist two functions for every XYZ of type T that we want to
support in Context:

	WithXYZ(Context, T) Context
	GetXYZ(Context) (val T, ok bool)

WithXYZ may panic if the value was previously set to avoid lower-level
modules overwriting the value (eg. height, chain id).

The escrow state machine itself lives in x/escrow; it relies on x/cash for
balances and x/sigs for caller identity.
*/
package escrowd
