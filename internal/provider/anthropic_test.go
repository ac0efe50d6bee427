package provider

import (
	"testing"
	"time"
)

func TestToAnthropicRequestCoalescesAndDefaultsMaxTokens(t *testing.T) {
	// S5: scenario from spec §8.
	req := &ChatRequest{
		Model: "claude-sonnet-4-20250514",
		Messages: []ChatMessage{
			{Role: "system", Content: "You are helpful."},
			{Role: "user", Content: "Part 1"},
			{Role: "user", Content: "Part 2"},
		},
	}

	out := ToAnthropicRequest(req)

	if out.System != "You are helpful." {
		t.Errorf("System = %q, want %q", out.System, "You are helpful.")
	}
	if len(out.Messages) != 1 {
		t.Fatalf("expected adjacent user messages coalesced into one, got %d messages", len(out.Messages))
	}
	if out.Messages[0].Content != "Part 1\nPart 2" {
		t.Errorf("coalesced content = %q, want %q", out.Messages[0].Content, "Part 1\nPart 2")
	}
	if out.MaxTokens != 8192 {
		t.Errorf("MaxTokens = %d, want 8192 (Claude family default)", out.MaxTokens)
	}
}

func TestToAnthropicRequestCallerMaxTokensWins(t *testing.T) {
	mt := 256
	req := &ChatRequest{
		Model:     "claude-3-5-haiku-20241022",
		Messages:  []ChatMessage{{Role: "user", Content: "hi"}},
		MaxTokens: &mt,
	}
	out := ToAnthropicRequest(req)
	if out.MaxTokens != 256 {
		t.Errorf("MaxTokens = %d, want caller-supplied 256", out.MaxTokens)
	}
}

func TestToAnthropicRequestNonClaudeFallsBackTo4096(t *testing.T) {
	req := &ChatRequest{
		Model:    "some-other-model",
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}
	out := ToAnthropicRequest(req)
	if out.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want 4096 default", out.MaxTokens)
	}
}

func TestToAnthropicRequestStopRenamedToArray(t *testing.T) {
	req := &ChatRequest{
		Model:    "claude-3-5-haiku-20241022",
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
		Stop:     "END",
	}
	out := ToAnthropicRequest(req)
	if len(out.StopSequences) != 1 || out.StopSequences[0] != "END" {
		t.Errorf("StopSequences = %v, want [END]", out.StopSequences)
	}
}

func TestFromAnthropicResponseMapsStopReasonAndUsage(t *testing.T) {
	resp := &anthropicResponse{
		ID:         "msg_123",
		Model:      "claude-3-5-sonnet-20241022",
		StopReason: "max_tokens",
	}
	resp.Content = []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{
		{Type: "text", Text: "hello "},
		{Type: "text", Text: "world"},
	}
	resp.Usage.InputTokens = 10
	resp.Usage.OutputTokens = 20

	out := FromAnthropicResponse(resp, time.Unix(0, 0))

	if out.Object != "chat.completion" {
		t.Errorf("Object = %q", out.Object)
	}
	if out.Choices[0].Message.Content != "hello world" {
		t.Errorf("content = %q, want %q", out.Choices[0].Message.Content, "hello world")
	}
	if out.Choices[0].FinishReason != "length" {
		t.Errorf("FinishReason = %q, want length", out.Choices[0].FinishReason)
	}
	if out.Usage.TotalTokens != 30 {
		t.Errorf("TotalTokens = %d, want 30", out.Usage.TotalTokens)
	}
}

func TestFromAnthropicResponseUnknownStopReasonPassesThrough(t *testing.T) {
	resp := &anthropicResponse{StopReason: "some_new_reason"}
	out := FromAnthropicResponse(resp, time.Unix(0, 0))
	if out.Choices[0].FinishReason != "some_new_reason" {
		t.Errorf("FinishReason = %q, want passthrough", out.Choices[0].FinishReason)
	}
}
