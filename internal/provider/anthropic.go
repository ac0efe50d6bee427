package provider

import (
	"strings"
	"time"
)

// anthropicMaxTokensDefault is the default when the caller specifies none
// and the model is not a recognized Claude family member.
const anthropicMaxTokensDefault = 4096

// anthropicClaudeFamilyMaxTokens is the Claude-family default per spec §4.3.
const anthropicClaudeFamilyMaxTokens = 8192

// anthropicRequest is Anthropic's native Messages API request shape.
type anthropicRequest struct {
	Model         string             `json:"model"`
	MaxTokens     int                `json:"max_tokens"`
	Messages      []anthropicMessage `json:"messages"`
	System        string             `json:"system,omitempty"`
	Temperature   *float64           `json:"temperature,omitempty"`
	TopP          *float64           `json:"top_p,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is Anthropic's native Messages API response shape.
type anthropicResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// stopReasonMap implements spec §4.3's stop_reason translation. Unknown
// values pass through verbatim.
var stopReasonMap = map[string]string{
	"end_turn":      "stop",
	"stop_sequence": "stop",
	"max_tokens":    "length",
	"tool_use":      "tool_calls",
}

// ToAnthropicRequest translates a canonical ChatRequest into Anthropic's
// wire shape (C3, canonical → Anthropic direction):
//
//   - messages with role "system" are pulled out and concatenated with "\n"
//     into the top-level System field;
//   - the remaining messages have adjacent same-role messages coalesced by
//     concatenating their content with "\n";
//   - max_tokens is the caller's value if present, else the Claude-family
//     default (8192), else 4096;
//   - stop (string or array) is renamed to stop_sequences, always an array.
func ToAnthropicRequest(req *ChatRequest) *anthropicRequest {
	var systemParts []string
	var rest []ChatMessage
	for _, m := range req.Messages {
		if m.Role == "system" {
			systemParts = append(systemParts, m.Content)
			continue
		}
		rest = append(rest, m)
	}

	coalesced := coalesceAdjacentRoles(rest)

	out := &anthropicRequest{
		Model:       req.Model,
		Messages:    make([]anthropicMessage, len(coalesced)),
		System:      strings.Join(systemParts, "\n"),
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	for i, m := range coalesced {
		out.Messages[i] = anthropicMessage{Role: m.Role, Content: m.Content}
	}

	switch {
	case req.MaxTokens != nil:
		out.MaxTokens = *req.MaxTokens
	case isClaudeFamily(req.Model):
		out.MaxTokens = anthropicClaudeFamilyMaxTokens
	default:
		out.MaxTokens = anthropicMaxTokensDefault
	}

	if req.Stop != nil {
		out.StopSequences = toStringSlice(req.Stop)
	}

	return out
}

// coalesceAdjacentRoles merges runs of consecutive messages sharing a role
// into a single message, joining their content with "\n".
func coalesceAdjacentRoles(msgs []ChatMessage) []ChatMessage {
	if len(msgs) == 0 {
		return nil
	}
	out := []ChatMessage{msgs[0]}
	for _, m := range msgs[1:] {
		last := &out[len(out)-1]
		if last.Role == m.Role {
			last.Content = last.Content + "\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	return out
}

func isClaudeFamily(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// toStringSlice normalizes spec §4.3's "stop (string or array)" into []string.
func toStringSlice(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// FromAnthropicResponse translates an Anthropic Messages API response back
// into the canonical ChatResponse shape (C3, Anthropic → canonical
// direction): concatenates all text-type content segments into the
// assistant message, maps stop_reason, and synthesizes token usage.
func FromAnthropicResponse(resp *anthropicResponse, now time.Time) *ChatResponse {
	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}

	finish, ok := stopReasonMap[resp.StopReason]
	if !ok {
		finish = resp.StopReason
	}

	usage := Usage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}

	return &ChatResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: now.Unix(),
		Model:   resp.Model,
		Choices: []Choice{{
			Index:        0,
			Message:      ChatMessage{Role: "assistant", Content: sb.String()},
			FinishReason: finish,
		}},
		Usage: usage,
	}
}
