// Package ledgerstore defines the persistent store contract (§3, §9): the
// Account and Transaction data model, the closed currency enumeration, and
// the Store interface every atomic operation in internal/ledger and
// internal/admin is built on.
package ledgerstore

import "time"

// Currency is one of the closed set of supported currencies (spec §3).
type Currency string

const (
	USD  Currency = "USD"
	USDC Currency = "USDC"
	ETH  Currency = "ETH"
	BTC  Currency = "BTC"
	SOL  Currency = "SOL"
)

// SupportedCurrencies is bit-exact to clients, per spec §6.
var SupportedCurrencies = []Currency{USD, USDC, ETH, BTC, SOL}

// smallestUnitPerWhole holds each currency's smallest-unit factor (spec §3).
var smallestUnitPerWhole = map[Currency]int64{
	USD:  1_000_000,
	USDC: 1_000_000,
	ETH:  1_000_000_000,
	BTC:  100_000_000,
	SOL:  1_000_000_000,
}

// SmallestUnitPerWhole returns c's unit scale factor and whether c is
// supported.
func SmallestUnitPerWhole(c Currency) (int64, bool) {
	v, ok := smallestUnitPerWhole[c]
	return v, ok
}

// IsSupported reports whether c is one of the five supported currencies.
func IsSupported(c Currency) bool {
	_, ok := smallestUnitPerWhole[c]
	return ok
}

// TxType is a journal entry's type tag (spec §3).
type TxType string

const (
	TxDeposit     TxType = "deposit"
	TxLLMUsage    TxType = "llm_usage"
	TxTransferOut TxType = "transfer_out"
	TxTransferIn  TxType = "transfer_in"
	TxConversion  TxType = "conversion"
)

// Account is keyed by the verified identifier of an agent (spec §3).
type Account struct {
	ID        string           `bson:"_id"`
	Balances  map[Currency]int64 `bson:"balances"`
	Status    string           `bson:"status"`
	Email     string           `bson:"email"`
	CreatedAt time.Time        `bson:"createdAt"`
	Version   int64            `bson:"version"`
}

// BalanceOf returns a's balance in c, treating an absent key as 0.
func (a *Account) BalanceOf(c Currency) int64 {
	if a.Balances == nil {
		return 0
	}
	return a.Balances[c]
}

// Transaction is an append-only journal entry describing a balance-changing
// event (spec §3).
type Transaction struct {
	ID            string                 `bson:"_id"`
	AccountID     string                 `bson:"accountId"`
	Type          TxType                 `bson:"type"`
	Currency      Currency               `bson:"currency"`
	Amount        int64                  `bson:"amount"`
	BalanceBefore int64                  `bson:"balanceBefore"`
	BalanceAfter  int64                  `bson:"balanceAfter"`
	Description   string                 `bson:"description"`
	Metadata      map[string]interface{} `bson:"metadata,omitempty"`
	CreatedAt     time.Time              `bson:"createdAt"`
}
