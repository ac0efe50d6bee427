package httpapi

import (
	"net/http"
	"sort"

	"github.com/often-run/gateway/internal/provider"
)

type modelPricing struct {
	InputPer1MUSD  float64 `json:"input_per_million_tokens_usd"`
	OutputPer1MUSD float64 `json:"output_per_million_tokens_usd"`
}

type modelEntry struct {
	ID       string       `json:"id"`
	Provider string       `json:"provider"`
	Pricing  modelPricing `json:"pricing"`
}

type modelsResponse struct {
	Models []modelEntry `json:"models"`
}

// listModels implements GET /v1/models: the rate table's catalog, each
// entry's provider derived the same way a completion request would be
// routed.
func (h *api) listModels(w http.ResponseWriter, r *http.Request) {
	entries := h.d.Pricing.Models()
	out := make([]modelEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, modelEntry{
			ID:       e.ID,
			Provider: string(provider.Route(e.ID)),
			Pricing: modelPricing{
				InputPer1MUSD:  float64(e.Rate.InputPer1M) / 1e6,
				OutputPer1MUSD: float64(e.Rate.OutputPer1M) / 1e6,
			},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, modelsResponse{Models: out})
}
