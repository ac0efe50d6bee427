package admin

import (
	"context"
	"testing"

	"github.com/often-run/gateway/internal/apierr"
	"github.com/often-run/gateway/internal/ledgerstore"
)

func TestCheckKeyRejectsEveryNonMatchingKey(t *testing.T) {
	h := New(ledgerstore.NewMemStore(), "correct-horse-battery-staple")

	cases := []string{
		"",
		"wrong",
		"correct-horse-battery-staplex",
		"' OR 1=1 --",
		"correct-horse-battery-stapl",
	}
	for _, c := range cases {
		if h.CheckKey(c) {
			t.Errorf("CheckKey(%q) = true, want false", c)
		}
	}
	if !h.CheckKey("correct-horse-battery-staple") {
		t.Fatal("CheckKey with the correct key should succeed")
	}
}

func TestDepositS1RoundTrip(t *testing.T) {
	store := ledgerstore.NewMemStore()
	store.CreateAccount(context.Background(), "acct1", "a@example.com")
	h := New(store, "admin-secret")

	balance, err := h.Deposit(context.Background(), "admin-secret", "acct1", 10_000_000, ledgerstore.USD)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 10_000_000 {
		t.Fatalf("balance = %d, want 10000000", balance)
	}

	acct, _ := store.GetAccount(context.Background(), "acct1")
	if acct.BalanceOf(ledgerstore.USD) != 10_000_000 {
		t.Fatalf("account balance = %d, want 10000000", acct.BalanceOf(ledgerstore.USD))
	}

	txs, _ := store.ListTransactions(context.Background(), "acct1", 10, "")
	if len(txs) != 1 || txs[0].Type != ledgerstore.TxDeposit || txs[0].Amount != 10_000_000 {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
}

func TestDepositS6AdminHardeningProducesNoJournalEntry(t *testing.T) {
	store := ledgerstore.NewMemStore()
	store.CreateAccount(context.Background(), "acct1", "a@example.com")
	h := New(store, "admin-secret")

	_, err := h.Deposit(context.Background(), "' OR 1=1 --", "acct1", 100, ledgerstore.USD)
	apiErr, ok := err.(*apierr.Error)
	if !ok || apiErr.Kind != apierr.ForbiddenAdmin {
		t.Fatalf("err = %v, want ForbiddenAdmin", err)
	}

	txs, _ := store.ListTransactions(context.Background(), "acct1", 10, "")
	if len(txs) != 0 {
		t.Fatalf("expected no journal entries, got %d", len(txs))
	}
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	store := ledgerstore.NewMemStore()
	store.CreateAccount(context.Background(), "acct1", "a@example.com")
	h := New(store, "admin-secret")

	_, err := h.Deposit(context.Background(), "admin-secret", "acct1", 0, ledgerstore.USD)
	apiErr, ok := err.(*apierr.Error)
	if !ok || apiErr.Kind != apierr.Validation {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestDepositUnknownAccount(t *testing.T) {
	store := ledgerstore.NewMemStore()
	h := New(store, "admin-secret")

	_, err := h.Deposit(context.Background(), "admin-secret", "ghost", 100, ledgerstore.USD)
	apiErr, ok := err.(*apierr.Error)
	if !ok || apiErr.Kind != apierr.AccountNotFound {
		t.Fatalf("err = %v, want AccountNotFound", err)
	}
}
