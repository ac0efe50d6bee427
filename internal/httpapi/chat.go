package httpapi

import (
	"net/http"
	"strconv"

	"github.com/often-run/gateway/internal/apierr"
	"github.com/often-run/gateway/internal/identity"
	"github.com/often-run/gateway/internal/provider"
)

// chatCompletions implements POST /v1/chat/completions (spec §4.6, §6):
// decode, delegate the whole pipeline to ledger.Engine.Complete, and stamp
// the billing headers spec §4.6 step 10 calls for before writing the
// canonical response body.
func (h *api) chatCompletions(w http.ResponseWriter, r *http.Request) {
	accountID, _ := identity.AccountID(r.Context())

	var req provider.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}

	result, err := h.d.Engine.Complete(r.Context(), accountID, &req)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	w.Header().Set("X-Often-Cost-Micros", strconv.FormatInt(int64(result.CostMicros), 10))
	w.Header().Set("X-Often-Balance-Micros", strconv.FormatInt(result.BalanceMicros, 10))
	w.Header().Set("X-Often-Provider", string(result.Provider))
	writeJSON(w, http.StatusOK, result.Response)
}
