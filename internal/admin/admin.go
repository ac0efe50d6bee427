// Package admin implements the admin deposit entry point (C9): a
// shared-secret-gated credit to an account's balance.
package admin

import (
	"context"
	"crypto/subtle"

	"github.com/often-run/gateway/internal/apierr"
	"github.com/often-run/gateway/internal/ledgerstore"
)

// Handler gates deposits behind a constant-time comparison of the
// X-Admin-Key header against a process-local shared secret.
type Handler struct {
	store       ledgerstore.Store
	adminAPIKey string
}

// New builds a Handler holding the configured admin shared secret.
func New(store ledgerstore.Store, adminAPIKey string) *Handler {
	return &Handler{store: store, adminAPIKey: adminAPIKey}
}

// CheckKey compares presented against the configured admin key in constant
// time, so mismatched lengths and injection payloads don't create a timing
// oracle (spec §4.9, §9, invariant 7).
func (h *Handler) CheckKey(presented string) bool {
	want := []byte(h.adminAPIKey)
	got := []byte(presented)
	if len(want) != len(got) {
		// Compare against a same-length dummy so the early return doesn't
		// itself leak length via timing; the comparison result is discarded.
		subtle.ConstantTimeCompare(want, want)
		return false
	}
	return subtle.ConstantTimeCompare(want, got) == 1
}

// Deposit implements C9: validates like C8/C7, then credits the account.
func (h *Handler) Deposit(ctx context.Context, presentedKey, accountID string, amount int64, currency ledgerstore.Currency) (int64, error) {
	if !h.CheckKey(presentedKey) {
		return 0, apierr.ForbiddenAdminf("invalid admin key")
	}
	if amount <= 0 {
		return 0, apierr.Validationf("amount must be positive")
	}
	if !ledgerstore.IsSupported(currency) {
		return 0, apierr.Validationf("unsupported currency " + string(currency))
	}

	if _, err := h.store.GetAccount(ctx, accountID); err != nil {
		if err == ledgerstore.ErrAccountNotFound {
			return 0, apierr.NotFound("account not found")
		}
		return 0, apierr.Internalf("read account: " + err.Error())
	}

	balance, err := h.store.Credit(ctx, accountID, currency, amount, ledgerstore.TxDeposit, "admin deposit", nil)
	if err != nil {
		return 0, apierr.Internalf("credit: " + err.Error())
	}
	return balance, nil
}
