package ledgerstore

import (
	"context"
	"errors"
)

// ErrAccountNotFound is returned by any operation reading an account that
// does not exist.
var ErrAccountNotFound = errors.New("account not found")

// ErrInsufficientFunds is returned when the authoritative in-transaction
// balance check fails (spec §4.6 step 9, §4.7, §4.8).
var ErrInsufficientFunds = errors.New("insufficient funds")

// Store is the persistent store contract spec §2/§9 describes: per-document
// serializable transactions with optimistic concurrency and ordered writes
// to dependent collections. Every method here is expected to be atomic as
// described — a partial write is never observable.
type Store interface {
	// CreateAccount creates a new account with all balances zero.
	CreateAccount(ctx context.Context, id, email string) (*Account, error)

	// GetAccount reads an account by id. Returns ErrAccountNotFound if absent.
	GetAccount(ctx context.Context, id string) (*Account, error)

	// ListTransactions returns up to limit transactions for accountID, most
	// recent first, optionally starting after a given transaction id.
	ListTransactions(ctx context.Context, accountID string, limit int, startAfter string) ([]Transaction, error)

	// Debit atomically re-reads accountID's balance in currency; if it is
	// below amount, returns ErrInsufficientFunds and writes nothing. Else it
	// subtracts amount and appends one journal entry of txType. Returns the
	// balance after the debit.
	Debit(ctx context.Context, accountID string, currency Currency, amount int64, txType TxType, description string, metadata map[string]interface{}) (balanceAfter int64, err error)

	// Credit atomically adds amount to accountID's balance in currency and
	// appends one journal entry of txType. Returns the balance after.
	Credit(ctx context.Context, accountID string, currency Currency, amount int64, txType TxType, description string, metadata map[string]interface{}) (balanceAfter int64, err error)

	// Transfer atomically moves amount in currency from fromID to toID,
	// appending a transfer_out entry on fromID and a transfer_in entry on
	// toID with matching amount and counterparty metadata (spec §4.7). If
	// fromID's balance is insufficient, returns ErrInsufficientFunds and
	// writes nothing to either account.
	Transfer(ctx context.Context, fromID, toID string, currency Currency, amount int64, description string) (fromBalance, toBalance int64, err error)

	// Convert atomically debits fromAmount of `from` and credits toAmount of
	// `to` on the same account, appending a single conversion journal entry
	// (spec §4.8). If the `from` balance is insufficient, returns
	// ErrInsufficientFunds and writes nothing.
	Convert(ctx context.Context, accountID string, from, to Currency, fromAmount, toAmount int64, rateUsed float64) (balances map[Currency]int64, err error)

	// CountAccounts returns the number of accounts currently known to the
	// store, for the gateway_accounts gauge.
	CountAccounts(ctx context.Context) (int, error)
}
