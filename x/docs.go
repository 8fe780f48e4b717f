/*
Package x holds the extensions the escrowd application is built from.

Extensions implement common functionality (Handler, Decorator,
Initializer) and are combined together in cmd/escrowd/app:

	sigs    verifies signatures and tracks signer nonces
	cash    keeps the wallet balances
	escrow  creates, funds and settles escrows
	utils   logging, recovery and savepoint decorators

This package defines the Authenticator every extension uses to learn
who signed the transaction being processed.
*/
package x
