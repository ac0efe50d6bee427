package httpapi

import (
	"net/http"

	"github.com/often-run/gateway/internal/apierr"
	"github.com/often-run/gateway/internal/identity"
	"github.com/often-run/gateway/internal/ledgerstore"
)

type transferRequest struct {
	ToAccountID string               `json:"toAccountId"`
	Amount      int64                `json:"amount"`
	Currency    ledgerstore.Currency `json:"currency"`
	Description string               `json:"description"`
}

type balanceResponse struct {
	Currency ledgerstore.Currency `json:"currency"`
	Balance  int64                `json:"balance"`
}

// transfer implements POST /transfer (spec §4.7, §6).
func (h *api) transfer(w http.ResponseWriter, r *http.Request) {
	senderID, _ := identity.AccountID(r.Context())

	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}

	result, err := h.d.Engine.Transfer(r.Context(), senderID, req.ToAccountID, req.Amount, req.Currency, req.Description)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Currency: result.Currency, Balance: result.SenderBalance})
}

type convertRequest struct {
	From   ledgerstore.Currency `json:"from"`
	To     ledgerstore.Currency `json:"to"`
	Amount int64                `json:"amount"`
}

type convertedAmount struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type convertResponse struct {
	Converted convertedAmount                `json:"converted"`
	Balances  map[ledgerstore.Currency]int64 `json:"balances"`
}

// convert implements POST /convert (spec §4.8, §6).
func (h *api) convert(w http.ResponseWriter, r *http.Request) {
	accountID, _ := identity.AccountID(r.Context())

	var req convertRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}

	result, err := h.d.Engine.Convert(r.Context(), accountID, req.From, req.To, req.Amount)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{
		Converted: convertedAmount{From: req.Amount, To: result.Converted},
		Balances:  result.Balances,
	})
}
