package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/often-run/gateway/internal/apierr"
)

type fakeVerifier struct {
	accountID string
	err       error
}

func (f fakeVerifier) Verify(ctx context.Context, token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.accountID, nil
}

func TestMiddlewareRejectsMissingAuthHeader(t *testing.T) {
	mw := NewMiddleware(fakeVerifier{accountID: "acct_1"})
	called := false
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/getAccount", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if called {
		t.Fatal("handler must not run before successful verification")
	}
}

func TestMiddlewareRejectsNonBearerScheme(t *testing.T) {
	mw := NewMiddleware(fakeVerifier{accountID: "acct_1"})
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/getAccount", nil)
	req.Header.Set("Authorization", "Basic deadbeef")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareRejectsVerifierFailure(t *testing.T) {
	mw := NewMiddleware(fakeVerifier{err: apierr.InvalidTokenf("bad token")})
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/getAccount", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareAttachesAccountIDOnSuccess(t *testing.T) {
	mw := NewMiddleware(fakeVerifier{accountID: "acct_42"})
	var gotID string
	var gotOK bool
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = AccountID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/getAccount", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !gotOK || gotID != "acct_42" {
		t.Fatalf("AccountID = (%q, %v), want (acct_42, true)", gotID, gotOK)
	}
}
