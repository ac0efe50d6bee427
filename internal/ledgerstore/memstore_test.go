package ledgerstore

import (
	"context"
	"sync"
	"testing"
)

func TestDebitInsufficientFundsLeavesBalanceUnchanged(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	s.CreateAccount(ctx, "a1", "a@example.com")
	s.Credit(ctx, "a1", USD, 500, TxDeposit, "seed", nil)

	_, err := s.Debit(ctx, "a1", USD, 1000, TxLLMUsage, "usage", nil)
	if err != ErrInsufficientFunds {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	acct, _ := s.GetAccount(ctx, "a1")
	if acct.BalanceOf(USD) != 500 {
		t.Fatalf("balance = %d, want unchanged 500", acct.BalanceOf(USD))
	}
}

func TestCreditThenDebitJournalInvariant(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	s.CreateAccount(ctx, "a1", "a@example.com")
	s.Credit(ctx, "a1", USD, 10_000_000, TxDeposit, "seed", nil)

	after, err := s.Debit(ctx, "a1", USD, 4_000_000, TxLLMUsage, "usage", nil)
	if err != nil {
		t.Fatal(err)
	}
	if after != 6_000_000 {
		t.Fatalf("after = %d, want 6000000", after)
	}

	txs, _ := s.ListTransactions(ctx, "a1", 10, "")
	if len(txs) != 2 {
		t.Fatalf("expected 2 journal entries, got %d", len(txs))
	}
	// Most recent first: the debit.
	if txs[0].BalanceAfter != txs[0].BalanceBefore-txs[0].Amount {
		t.Fatalf("debit entry violates invariant 2")
	}
	if txs[1].BalanceAfter != txs[1].BalanceBefore+txs[1].Amount {
		t.Fatalf("deposit entry violates invariant 2")
	}
}

func TestTransferS2Scenario(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	s.CreateAccount(ctx, "A", "a@example.com")
	s.CreateAccount(ctx, "B", "b@example.com")
	s.Credit(ctx, "A", USD, 5_000_000, TxDeposit, "seed", nil)

	aBal, bBal, err := s.Transfer(ctx, "A", "B", USD, 1_000_000, "payment")
	if err != nil {
		t.Fatal(err)
	}
	if aBal != 4_000_000 || bBal != 1_000_000 {
		t.Fatalf("aBal=%d bBal=%d, want 4000000/1000000", aBal, bBal)
	}

	aTxs, _ := s.ListTransactions(ctx, "A", 10, "")
	bTxs, _ := s.ListTransactions(ctx, "B", 10, "")
	if len(aTxs) != 1 || aTxs[0].Type != TxTransferOut || aTxs[0].Metadata["counterparty"] != "B" {
		t.Fatalf("unexpected sender journal entries: %+v", aTxs)
	}
	if len(bTxs) != 1 || bTxs[0].Type != TxTransferIn || bTxs[0].Metadata["counterparty"] != "A" {
		t.Fatalf("unexpected recipient journal entries: %+v", bTxs)
	}
}

func TestTransferInsufficientFundsWritesNothing(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	s.CreateAccount(ctx, "A", "a@example.com")
	s.CreateAccount(ctx, "B", "b@example.com")

	_, _, err := s.Transfer(ctx, "A", "B", USD, 1, "payment")
	if err != ErrInsufficientFunds {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	aTxs, _ := s.ListTransactions(ctx, "A", 10, "")
	bTxs, _ := s.ListTransactions(ctx, "B", 10, "")
	if len(aTxs) != 0 || len(bTxs) != 0 {
		t.Fatalf("expected no journal entries on failed transfer")
	}
}

func TestConvertDebitsFromAndCreditsTo(t *testing.T) {
	// Store.Convert applies the amounts the caller computed: it debits
	// fromAmount of `from` and credits toAmount of `to`. It doesn't itself
	// forbid from == to; internal/ledger's Convert rejects that before
	// calling the store.
	s := NewMemStore()
	ctx := context.Background()
	s.CreateAccount(ctx, "A", "a@example.com")
	s.Credit(ctx, "A", USD, 1_000_000, TxDeposit, "seed", nil)

	balances, err := s.Convert(ctx, "A", USD, ETH, 500_000, 200, 2500.0)
	if err != nil {
		t.Fatal(err)
	}
	if balances[USD] != 500_000 || balances[ETH] != 200 {
		t.Fatalf("balances = %+v", balances)
	}
}

// TestConcurrentDebitsNeverOverdraft is the S3 race scenario: under N
// concurrent debits on one account with initial balance B and per-call cost
// c, the gateway must end in state balance = B - k*c, k = min(N, B/c), with
// exactly k successful debits and no negative balance ever observed.
func TestConcurrentDebitsNeverOverdraft(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	s.CreateAccount(ctx, "race", "a@example.com")
	s.Credit(ctx, "race", USD, 10_000, TxDeposit, "seed", nil)

	const n = 50
	const cost = 10_000

	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Debit(ctx, "race", USD, cost, TxLLMUsage, "usage", nil)
			results[i] = err
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else if err != ErrInsufficientFunds {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want 1 (min(50, 10000/10000))", successes)
	}

	acct, _ := s.GetAccount(ctx, "race")
	if acct.BalanceOf(USD) != 0 {
		t.Fatalf("final balance = %d, want 0", acct.BalanceOf(USD))
	}

	txs, _ := s.ListTransactions(ctx, "race", 100, "")
	usageCount := 0
	for _, tx := range txs {
		if tx.Type == TxLLMUsage {
			usageCount++
		}
	}
	if usageCount != 1 {
		t.Fatalf("llm_usage journal entries = %d, want 1", usageCount)
	}
}
