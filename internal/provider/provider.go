// Package provider implements the provider registry & router (C2) and the
// canonical chat-completion wire shapes shared by every upstream.
package provider

import (
	"encoding/json"
	"strings"
)

// Tag identifies one of the upstream LLM providers the gateway can dispatch to.
type Tag string

const (
	OpenAI    Tag = "openai"
	Anthropic Tag = "anthropic"
	Google    Tag = "google"
	Mistral   Tag = "mistral"
	Together  Tag = "together"
)

// rule is one prefix-match entry in the routing table. Rules are evaluated
// in order so new prefixes can be appended without touching Route itself.
type rule struct {
	prefixes []string
	tag      Tag
}

// defaultRules implements spec.md §4.2's classification order. Together is
// the explicit fallback — it is the only provider that serves arbitrary
// open-source model slugs, so anything unrecognized lands there.
var defaultRules = []rule{
	{prefixes: []string{"gpt-", "o1", "o3", "o4"}, tag: OpenAI},
	{prefixes: []string{"claude-"}, tag: Anthropic},
	{prefixes: []string{"gemini-"}, tag: Google},
	{prefixes: []string{"mistral-"}, tag: Mistral},
}

// Route classifies a model identifier into a provider tag, falling back to
// Together when no prefix rule matches.
func Route(model string) Tag {
	for _, r := range defaultRules {
		for _, p := range r.prefixes {
			if strings.HasPrefix(model, p) {
				return r.tag
			}
		}
	}
	return Together
}

// Record is the immutable per-provider configuration the registry holds:
// base URL, the secret cache key to resolve an API key under, how to turn
// that key into an auth header, and whether requests/responses need C3
// translation.
type Record struct {
	BaseURL          string
	SecretName       string
	AuthHeader       func(apiKey string) (name, value string)
	NeedsTranslation bool
}

// Registry maps provider tags to their immutable configuration. It is built
// once at startup and never mutated, so it is safe to read from any
// goroutine without locking (spec.md §5).
type Registry struct {
	records map[Tag]Record
}

// NewRegistry builds the registry with the default base URLs and auth-header
// recipes for every supported provider. Base URLs can be overridden (e.g.
// for testing against a stub server) via WithBaseURL.
func NewRegistry() *Registry {
	return &Registry{
		records: map[Tag]Record{
			OpenAI: {
				BaseURL:    "https://api.openai.com/v1",
				SecretName: "openai",
				AuthHeader: func(key string) (string, string) { return "Authorization", "Bearer " + key },
			},
			Anthropic: {
				BaseURL:          "https://api.anthropic.com/v1",
				SecretName:       "anthropic",
				AuthHeader:       func(key string) (string, string) { return "x-api-key", key },
				NeedsTranslation: true,
			},
			Google: {
				BaseURL:    "https://generativelanguage.googleapis.com/v1beta/openai",
				SecretName: "google",
				AuthHeader: func(key string) (string, string) { return "Authorization", "Bearer " + key },
			},
			Mistral: {
				BaseURL:    "https://api.mistral.ai/v1",
				SecretName: "mistral",
				AuthHeader: func(key string) (string, string) { return "Authorization", "Bearer " + key },
			},
			Together: {
				BaseURL:    "https://api.together.xyz/v1",
				SecretName: "together",
				AuthHeader: func(key string) (string, string) { return "Authorization", "Bearer " + key },
			},
		},
	}
}

// Get returns the Record for a tag. Returns false if the tag isn't one of
// the five supported providers, which cannot happen for tags produced by
// Route but can for a caller-supplied tag.
func (r *Registry) Get(tag Tag) (Record, bool) {
	rec, ok := r.records[tag]
	return rec, ok
}

// WithBaseURL returns a copy of the registry with one provider's base URL
// overridden — used by tests to point a provider at an httptest server.
func (r *Registry) WithBaseURL(tag Tag, baseURL string) *Registry {
	out := &Registry{records: make(map[Tag]Record, len(r.records))}
	for t, rec := range r.records {
		if t == tag {
			rec.BaseURL = baseURL
		}
		out.records[t] = rec
	}
	return out
}

// --- Canonical chat-completion shapes (OpenAI-compatible) ---

// ChatRequest is the canonical request shape the gateway accepts from
// callers and sends to providers that don't need translation.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stop        interface{}   `json:"stop,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Tools       []Tool        `json:"tools,omitempty"`
}

// ChatMessage is one message in a chat-completion conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool is an OpenAI-style function/tool definition. The gateway does not
// translate or interpret tool schemas; it only detects their presence to
// enforce spec.md §4.3's Anthropic restriction.
type Tool struct {
	Type     string          `json:"type"`
	Function json.RawMessage `json:"function"`
}

// ChatResponse is the canonical chat-completion response shape, returned to
// callers unchanged regardless of which upstream served the request.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is a single completion choice.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Usage carries the authoritative token counts the ledger bills from.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
