/*
Package escrow implements a two-party escrow on top of the cash ledger.

An escrow is identified by its (initializer, receiver) pair. The
initializer creates it with a fixed amount, moves that amount into the
custody account owned by the escrow and later settles it exactly once,
either by releasing the funds to the receiver or by cancelling and taking
them back. A settled escrow is terminal and keeps its record so that the
pair can never be reused.

The custody account is the address of the condition
"escrow/pair/<initializer||receiver>". No private key exists for it, so
only this extension can move funds out of it.
*/
package escrow
