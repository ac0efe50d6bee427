package httpapi

import (
	"net/http"

	"github.com/often-run/gateway/internal/apierr"
	"github.com/often-run/gateway/internal/ledgerstore"
)

type depositRequest struct {
	AccountID string               `json:"accountId"`
	Amount    int64                `json:"amount"`
	Currency  ledgerstore.Currency `json:"currency"`
}

// deposit implements POST /deposit (spec §4.9, §6): gated on the
// X-Admin-Key header rather than a bearer token, since this is an
// operator-only entry point, not an agent-facing one.
func (h *api) deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}

	balance, err := h.d.Admin.Deposit(r.Context(), r.Header.Get("X-Admin-Key"), req.AccountID, req.Amount, req.Currency)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Currency: req.Currency, Balance: balance})
}
