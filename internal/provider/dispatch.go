package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/often-run/gateway/internal/apierr"
)

// Dispatcher sends a canonical ChatRequest to whichever provider the
// Registry routed it to, translating request/response for providers that
// need it (C3) and reporting HTTP-layer failures using the apierr taxonomy
// spec §4.6 step 6 describes.
type Dispatcher struct {
	client *http.Client
}

// NewDispatcher builds a Dispatcher with a connection-pooling transport,
// matching the teacher's per-provider client shape but shared across
// providers since none of them need distinct connection behavior.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Complete dispatches req to rec's upstream with the given API key and a
// hard timeout, returning the canonical response. The caller is
// responsible for wrapping ctx with the 120-second deadline (spec §4.6
// step 6) before calling this.
func (d *Dispatcher) Complete(ctx context.Context, rec Record, apiKey string, req *ChatRequest) (*ChatResponse, error) {
	if rec.NeedsTranslation {
		return d.completeTranslated(ctx, rec, apiKey, req)
	}
	return d.completePassthrough(ctx, rec, apiKey, req)
}

func (d *Dispatcher) completePassthrough(ctx context.Context, rec Record, apiKey string, req *ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apierr.Internalf("encode request: " + err.Error())
	}

	var out ChatResponse
	if err := d.post(ctx, rec, apiKey, rec.BaseURL+"/chat/completions", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *Dispatcher) completeTranslated(ctx context.Context, rec Record, apiKey string, req *ChatRequest) (*ChatResponse, error) {
	anthropicReq := ToAnthropicRequest(req)
	body, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, apierr.Internalf("encode request: " + err.Error())
	}

	var raw anthropicResponse
	if err := d.post(ctx, rec, apiKey, rec.BaseURL+"/messages", body, &raw); err != nil {
		return nil, err
	}
	return FromAnthropicResponse(&raw, time.Now()), nil
}

func (d *Dispatcher) post(ctx context.Context, rec Record, apiKey string, url string, body []byte, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apierr.Internalf("build request: " + err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if rec.AuthHeader != nil {
		name, value := rec.AuthHeader(apiKey)
		httpReq.Header.Set(name, value)
	}
	if rec.NeedsTranslation {
		httpReq.Header.Set("anthropic-version", "2023-06-01")
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return apierr.UpstreamUnreachablef("upstream timeout: " + err.Error())
		}
		return apierr.UpstreamUnreachablef("upstream unreachable: " + err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierr.UpstreamUnreachablef("read upstream response: " + err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierr.Upstream(resp.StatusCode, redact(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return apierr.Internalf("decode upstream response: " + err.Error())
	}
	return nil
}

// redact trims an upstream error body to its first 256 bytes for the
// caller-facing error envelope. It does not inspect or strip the content it
// keeps.
func redact(body []byte) string {
	const maxLen = 256
	s := string(body)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return fmt.Sprintf("%s", s)
}
