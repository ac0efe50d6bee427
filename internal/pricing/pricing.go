// Package pricing implements the cost engine (C1): a static per-model rate
// table and a deterministic cost computation from reported token usage.
package pricing

// Microdollars is 10⁻⁶ USD, the canonical unit for balances and costs.
type Microdollars int64

// Rate is a model's {input, output} price in microdollars per one million
// tokens.
type Rate struct {
	InputPer1M  Microdollars
	OutputPer1M Microdollars
}

// defaultModel is the fallback rate used for any model not present in the
// table. Per spec §4.1 it is "currently identical to gpt-4o".
const defaultModel = "gpt-4o"

// Table holds the immutable model → rate mapping. Built once at startup
// and never mutated afterward, so reads need no synchronization.
type Table struct {
	rates map[string]Rate
}

// NewTable builds the table with the gateway's supported models. Keys are
// bare model ids (not "provider/model") — model ids are unique across the
// five supported providers in this deployment's catalog.
func NewTable() *Table {
	return &Table{rates: map[string]Rate{
		// OpenAI
		"gpt-4o":        {InputPer1M: 2_500_000, OutputPer1M: 10_000_000},
		"gpt-4o-mini":   {InputPer1M: 150_000, OutputPer1M: 600_000},
		"gpt-4-turbo":   {InputPer1M: 10_000_000, OutputPer1M: 30_000_000},
		"gpt-4":         {InputPer1M: 30_000_000, OutputPer1M: 60_000_000},
		"gpt-3.5-turbo": {InputPer1M: 500_000, OutputPer1M: 1_500_000},
		"o1":            {InputPer1M: 15_000_000, OutputPer1M: 60_000_000},
		"o1-mini":       {InputPer1M: 1_100_000, OutputPer1M: 4_400_000},

		// Anthropic
		"claude-3-5-sonnet-20241022": {InputPer1M: 3_000_000, OutputPer1M: 15_000_000},
		"claude-3-5-haiku-20241022":  {InputPer1M: 800_000, OutputPer1M: 4_000_000},
		"claude-3-opus-20240229":     {InputPer1M: 15_000_000, OutputPer1M: 75_000_000},
		"claude-3-sonnet-20240229":   {InputPer1M: 3_000_000, OutputPer1M: 15_000_000},
		"claude-3-haiku-20240307":    {InputPer1M: 250_000, OutputPer1M: 1_250_000},

		// Google
		"gemini-2.0-flash":     {InputPer1M: 100_000, OutputPer1M: 400_000},
		"gemini-2.0-flash-lite": {InputPer1M: 75_000, OutputPer1M: 300_000},
		"gemini-1.5-pro":       {InputPer1M: 1_250_000, OutputPer1M: 5_000_000},
		"gemini-1.5-flash":     {InputPer1M: 75_000, OutputPer1M: 300_000},

		// Mistral
		"mistral-large-latest": {InputPer1M: 2_000_000, OutputPer1M: 6_000_000},
		"mistral-small-latest": {InputPer1M: 200_000, OutputPer1M: 600_000},

		// Together (arbitrary open-source catalog, a representative entry)
		"meta-llama/Llama-3.3-70B-Instruct-Turbo": {InputPer1M: 880_000, OutputPer1M: 880_000},
	}}
}

// ModelEntry describes one catalog entry for the /v1/models listing.
type ModelEntry struct {
	ID   string
	Rate Rate
}

// Models returns every model the rate table knows about, for the /v1/models
// endpoint (spec §6). Order is unspecified — callers sort if they need
// determinism.
func (t *Table) Models() []ModelEntry {
	out := make([]ModelEntry, 0, len(t.rates))
	for id, r := range t.rates {
		out = append(out, ModelEntry{ID: id, Rate: r})
	}
	return out
}

// rate resolves a model to its rate, falling back to defaultModel's rate
// (which is always present) for anything unrecognized.
func (t *Table) rate(model string) Rate {
	if r, ok := t.rates[model]; ok {
		return r
	}
	return t.rates[defaultModel]
}

// Cost computes ⌈(prompt·input_rate + completion·output_rate) / 10⁶⌉ in
// microdollars, per spec §4.1. All intermediate arithmetic is done in
// int64, which comfortably holds 10⁶ tokens × 6·10⁷ rate without overflow.
func (t *Table) Cost(model string, promptTokens, completionTokens int) Microdollars {
	r := t.rate(model)
	num := int64(promptTokens)*int64(r.InputPer1M) + int64(completionTokens)*int64(r.OutputPer1M)
	if num == 0 {
		return 0
	}
	const scale = 1_000_000
	return Microdollars((num + scale - 1) / scale)
}
