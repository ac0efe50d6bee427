package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/often-run/gateway/internal/admin"
	"github.com/often-run/gateway/internal/identity"
	"github.com/often-run/gateway/internal/ledger"
	"github.com/often-run/gateway/internal/ledgerstore"
	"github.com/often-run/gateway/internal/observability"
	"github.com/often-run/gateway/internal/pricing"
	"github.com/often-run/gateway/internal/provider"
	"github.com/often-run/gateway/internal/rateoracle"
	"github.com/often-run/gateway/internal/secretcache"
)

// fakeVerifier treats the bearer token itself as the account id, so tests
// can authenticate as any account without a real Firebase round trip.
type fakeVerifier struct{}

func (fakeVerifier) Verify(ctx context.Context, token string) (string, error) {
	return token, nil
}

func testRouter(t *testing.T, store *ledgerstore.MemStore) http.Handler {
	registry := provider.NewRegistry()
	engine := ledger.New(
		store,
		pricing.NewTable(),
		registry,
		provider.NewDispatcher(),
		secretcache.New(secretcache.EnvStore{}),
		rateoracle.New(""),
		observability.NewMetrics(zerolog.Nop()),
		zerolog.Nop(),
	)
	return NewRouter(Deps{
		Logger:       zerolog.Nop(),
		Engine:       engine,
		Store:        store,
		Pricing:      engine.Pricing,
		Admin:        admin.New(store, "admin-secret"),
		Verifier:     fakeVerifier{},
		Toolkit:      identity.NewIdentityToolkitClient(""),
		MaxBodyBytes: 1 << 20,
	})
}

func TestHealthz(t *testing.T) {
	r := testRouter(t, ledgerstore.NewMemStore())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rw.Code)
	}
}

func TestModelsIsUnauthenticated(t *testing.T) {
	r := testRouter(t, ledgerstore.NewMemStore())

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rw.Code)
	}

	var body modelsResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Models) == 0 {
		t.Fatal("expected at least one model in the catalog")
	}
}

func TestChatCompletionsRejectsMissingBearer(t *testing.T) {
	r := testRouter(t, ledgerstore.NewMemStore())

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader([]byte(`{}`)))
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rw.Code)
	}
}

// TestS1DepositGetAccountGetTransactions exercises the S1 scenario across
// the HTTP surface: deposit, then getAccount and getTransactions confirm it.
func TestS1DepositGetAccountGetTransactions(t *testing.T) {
	store := ledgerstore.NewMemStore()
	store.CreateAccount(context.Background(), "acct1", "a@example.com")
	r := testRouter(t, store)

	depositBody, _ := json.Marshal(map[string]interface{}{
		"accountId": "acct1", "amount": 10_000_000, "currency": "USD",
	})
	req := httptest.NewRequest(http.MethodPost, "/deposit", bytes.NewReader(depositBody))
	req.Header.Set("X-Admin-Key", "admin-secret")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("deposit status = %d, want 200, body=%s", rw.Code, rw.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/getAccount", nil)
	req.Header.Set("Authorization", "Bearer acct1")
	rw = httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("getAccount status = %d, want 200", rw.Code)
	}
	var acctResp accountResponse
	if err := json.NewDecoder(rw.Body).Decode(&acctResp); err != nil {
		t.Fatal(err)
	}
	if acctResp.Balances[ledgerstore.USD] != 10_000_000 {
		t.Fatalf("balances.USD = %d, want 10000000", acctResp.Balances[ledgerstore.USD])
	}

	req = httptest.NewRequest(http.MethodGet, "/getTransactions", nil)
	req.Header.Set("Authorization", "Bearer acct1")
	rw = httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	var txResp transactionsResponse
	if err := json.NewDecoder(rw.Body).Decode(&txResp); err != nil {
		t.Fatal(err)
	}
	if len(txResp.Transactions) != 1 || txResp.Transactions[0].Amount != 10_000_000 {
		t.Fatalf("unexpected transactions: %+v", txResp.Transactions)
	}
}

func TestDepositRejectsWrongAdminKey(t *testing.T) {
	store := ledgerstore.NewMemStore()
	store.CreateAccount(context.Background(), "acct1", "a@example.com")
	r := testRouter(t, store)

	body, _ := json.Marshal(map[string]interface{}{"accountId": "acct1", "amount": 1, "currency": "USD"})
	req := httptest.NewRequest(http.MethodPost, "/deposit", bytes.NewReader(body))
	req.Header.Set("X-Admin-Key", "wrong")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rw.Code)
	}
}

func TestTransferHTTPRoundTrip(t *testing.T) {
	store := ledgerstore.NewMemStore()
	store.CreateAccount(context.Background(), "A", "a@example.com")
	store.CreateAccount(context.Background(), "B", "b@example.com")
	store.Credit(context.Background(), "A", ledgerstore.USD, 5_000_000, ledgerstore.TxDeposit, "seed", nil)
	r := testRouter(t, store)

	body, _ := json.Marshal(map[string]interface{}{"toAccountId": "B", "amount": 1_000_000, "currency": "USD"})
	req := httptest.NewRequest(http.MethodPost, "/transfer", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer A")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rw.Code, rw.Body.String())
	}

	var resp balanceResponse
	_ = json.NewDecoder(rw.Body).Decode(&resp)
	if resp.Balance != 4_000_000 {
		t.Fatalf("balance = %d, want 4000000", resp.Balance)
	}
}

func TestGetAccountUnknownAccountIs404(t *testing.T) {
	r := testRouter(t, ledgerstore.NewMemStore())

	req := httptest.NewRequest(http.MethodGet, "/getAccount", nil)
	req.Header.Set("Authorization", "Bearer ghost")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rw.Code)
	}
}
