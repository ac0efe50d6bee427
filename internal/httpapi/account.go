package httpapi

import (
	"net/http"
	"strconv"

	"github.com/often-run/gateway/internal/apierr"
	"github.com/often-run/gateway/internal/identity"
	"github.com/often-run/gateway/internal/ledgerstore"
)

type accountResponse struct {
	UID                 string                         `json:"uid"`
	Balances             map[ledgerstore.Currency]int64 `json:"balances"`
	Status               string                         `json:"status"`
	SupportedCurrencies []ledgerstore.Currency         `json:"supportedCurrencies"`
}

// getAccount implements GET /getAccount: an authenticated caller can only
// ever read their own account, since accountID comes straight off the
// verified bearer, not a query parameter (spec §7: "no error path leaks
// whether an account exists versus is unreadable").
func (h *api) getAccount(w http.ResponseWriter, r *http.Request) {
	accountID, _ := identity.AccountID(r.Context())

	acct, err := h.d.Store.GetAccount(r.Context(), accountID)
	if err == ledgerstore.ErrAccountNotFound {
		apierr.Write(w, apierr.NotFound("account not found"))
		return
	}
	if err != nil {
		apierr.Write(w, apierr.Internalf("read account: "+err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		UID:                 acct.ID,
		Balances:             acct.Balances,
		Status:               acct.Status,
		SupportedCurrencies: ledgerstore.SupportedCurrencies,
	})
}

type transactionsResponse struct {
	Transactions []ledgerstore.Transaction `json:"transactions"`
}

const maxTransactionsLimit = 100

// getTransactions implements GET /getTransactions?limit=&startAfter=.
func (h *api) getTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, _ := identity.AccountID(r.Context())

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			apierr.Write(w, apierr.Validationf("limit must be a positive integer"))
			return
		}
		limit = n
	}
	if limit > maxTransactionsLimit {
		limit = maxTransactionsLimit
	}
	startAfter := r.URL.Query().Get("startAfter")

	txs, err := h.d.Store.ListTransactions(r.Context(), accountID, limit, startAfter)
	if err != nil {
		apierr.Write(w, apierr.Internalf("list transactions: "+err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, transactionsResponse{Transactions: txs})
}
