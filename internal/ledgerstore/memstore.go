package ledgerstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// accountRecord pairs an account's data with the mutex that serializes
// every balance-changing operation against it — the "per-account mutex
// keyed by id plus write-ahead journal" fallback spec §9 describes for
// stores without native serializable single-row transactions.
type accountRecord struct {
	mu           sync.Mutex
	account      Account
	transactions []Transaction
}

// MemStore is an in-memory Store used by every unit and concurrency test in
// this repo, and as a reference implementation of the Store contract.
type MemStore struct {
	mu       sync.RWMutex
	accounts map[string]*accountRecord
}

// NewMemStore builds an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{accounts: make(map[string]*accountRecord)}
}

func (s *MemStore) record(id string) (*accountRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.accounts[id]
	return r, ok
}

func (s *MemStore) CreateAccount(ctx context.Context, id, email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.accounts[id]; ok {
		cp := r.account
		return &cp, nil
	}
	acct := Account{
		ID:        id,
		Balances:  make(map[Currency]int64),
		Status:    "active",
		Email:     email,
		CreatedAt: time.Now(),
	}
	s.accounts[id] = &accountRecord{account: acct}
	cp := acct
	return &cp, nil
}

func (s *MemStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	r, ok := s.record(id)
	if !ok {
		return nil, ErrAccountNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := r.account
	cp.Balances = cloneBalances(r.account.Balances)
	return &cp, nil
}

func (s *MemStore) CountAccounts(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts), nil
}

func (s *MemStore) ListTransactions(ctx context.Context, accountID string, limit int, startAfter string) ([]Transaction, error) {
	r, ok := s.record(accountID)
	if !ok {
		return nil, ErrAccountNotFound
	}
	r.mu.Lock()
	all := make([]Transaction, len(r.transactions))
	copy(all, r.transactions)
	r.mu.Unlock()

	// Most recent first.
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if startAfter != "" {
		idx := -1
		for i, tx := range all {
			if tx.ID == startAfter {
				idx = i
				break
			}
		}
		if idx >= 0 {
			all = all[idx+1:]
		}
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemStore) Debit(ctx context.Context, accountID string, currency Currency, amount int64, txType TxType, description string, metadata map[string]interface{}) (int64, error) {
	r, ok := s.record(accountID)
	if !ok {
		return 0, ErrAccountNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	before := r.account.Balances[currency]
	if before < amount {
		return before, ErrInsufficientFunds
	}
	after := before - amount
	r.account.Balances[currency] = after
	r.account.Version++
	r.transactions = append(r.transactions, Transaction{
		ID: uuid.NewString(), AccountID: accountID, Type: txType, Currency: currency,
		Amount: amount, BalanceBefore: before, BalanceAfter: after,
		Description: description, Metadata: metadata, CreatedAt: time.Now(),
	})
	return after, nil
}

func (s *MemStore) Credit(ctx context.Context, accountID string, currency Currency, amount int64, txType TxType, description string, metadata map[string]interface{}) (int64, error) {
	r, ok := s.record(accountID)
	if !ok {
		return 0, ErrAccountNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	before := r.account.Balances[currency]
	after := before + amount
	r.account.Balances[currency] = after
	r.account.Version++
	r.transactions = append(r.transactions, Transaction{
		ID: uuid.NewString(), AccountID: accountID, Type: txType, Currency: currency,
		Amount: amount, BalanceBefore: before, BalanceAfter: after,
		Description: description, Metadata: metadata, CreatedAt: time.Now(),
	})
	return after, nil
}

func (s *MemStore) Transfer(ctx context.Context, fromID, toID string, currency Currency, amount int64, description string) (int64, int64, error) {
	fromRec, ok := s.record(fromID)
	if !ok {
		return 0, 0, ErrAccountNotFound
	}
	toRec, ok := s.record(toID)
	if !ok {
		return 0, 0, ErrAccountNotFound
	}

	// Lock accounts in lexicographic id order, a deadlock-free ordering
	// (spec §5), so two transfers moving opposite directions never deadlock.
	first, second := fromRec, toRec
	if toID < fromID {
		first, second = toRec, fromRec
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	if second != first {
		second.mu.Lock()
		defer second.mu.Unlock()
	}

	sBal := fromRec.account.Balances[currency]
	if sBal < amount {
		return 0, 0, ErrInsufficientFunds
	}
	rBal := toRec.account.Balances[currency]

	newS := sBal - amount
	newR := rBal + amount
	fromRec.account.Balances[currency] = newS
	toRec.account.Balances[currency] = newR
	fromRec.account.Version++
	toRec.account.Version++

	now := time.Now()
	fromRec.transactions = append(fromRec.transactions, Transaction{
		ID: uuid.NewString(), AccountID: fromID, Type: TxTransferOut, Currency: currency,
		Amount: amount, BalanceBefore: sBal, BalanceAfter: newS, Description: description,
		Metadata: map[string]interface{}{"counterparty": toID}, CreatedAt: now,
	})
	toRec.transactions = append(toRec.transactions, Transaction{
		ID: uuid.NewString(), AccountID: toID, Type: TxTransferIn, Currency: currency,
		Amount: amount, BalanceBefore: rBal, BalanceAfter: newR, Description: description,
		Metadata: map[string]interface{}{"counterparty": fromID}, CreatedAt: now,
	})
	return newS, newR, nil
}

func (s *MemStore) Convert(ctx context.Context, accountID string, from, to Currency, fromAmount, toAmount int64, rateUsed float64) (map[Currency]int64, error) {
	r, ok := s.record(accountID)
	if !ok {
		return nil, ErrAccountNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fromBefore := r.account.Balances[from]
	if fromBefore < fromAmount {
		return nil, ErrInsufficientFunds
	}
	toBefore := r.account.Balances[to]

	fromAfter := fromBefore - fromAmount
	toAfter := toBefore + toAmount
	r.account.Balances[from] = fromAfter
	r.account.Balances[to] = toAfter
	r.account.Version++

	r.transactions = append(r.transactions, Transaction{
		ID: uuid.NewString(), AccountID: accountID, Type: TxConversion, Currency: from,
		Amount: fromAmount, BalanceBefore: fromBefore, BalanceAfter: fromAfter,
		Description: "currency conversion",
		Metadata: map[string]interface{}{
			"fromCurrency": string(from), "toCurrency": string(to),
			"fromAmount": fromAmount, "toAmount": toAmount, "rateUsed": rateUsed,
		},
		CreatedAt: time.Now(),
	})

	return cloneBalances(r.account.Balances), nil
}

func cloneBalances(in map[Currency]int64) map[Currency]int64 {
	out := make(map[Currency]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
