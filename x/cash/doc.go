/*
Package cash is the balance ledger of the application: a single asset
held in wallets keyed by address.

There is no logic in the coins, except that the balance of any wallet
may not go below zero or overflow. Escrow custody accounts are plain
wallets owned by an address that no key can sign for.
*/
package cash
