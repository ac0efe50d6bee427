package ledger

import (
	"context"
	"time"

	"github.com/often-run/gateway/internal/apierr"
	"github.com/often-run/gateway/internal/ledgerstore"
	"github.com/often-run/gateway/internal/pricing"
	"github.com/often-run/gateway/internal/provider"
)

// upstreamTimeout is the hard cap on a single upstream LLM call, spec §4.6
// step 6 / §5.
const upstreamTimeout = 120 * time.Second

// CompletionResult is what Complete returns on success: the canonical
// response plus the billing facts the HTTP handler stamps into response
// headers (spec §4.6 step 10).
type CompletionResult struct {
	Response      *provider.ChatResponse
	CostMicros    pricing.Microdollars
	BalanceMicros int64
	Provider      provider.Tag
}

// Complete implements C6: pre-check, route, translate, dispatch, bill on
// the response's model, atomic debit + journal write.
func (e *Engine) Complete(ctx context.Context, accountID string, req *provider.ChatRequest) (*CompletionResult, error) {
	if req.Model == "" {
		return nil, apierr.Validationf("model is required")
	}

	tag := provider.Route(req.Model)
	rec, ok := e.Registry.Get(tag)
	if !ok {
		return nil, apierr.Internalf("no registry entry for provider " + string(tag))
	}
	if tag == provider.Anthropic && len(req.Tools) > 0 {
		return nil, apierr.Validationf("tool use not supported")
	}

	// Pre-check: advisory, prevents obvious waste of upstream quota. The
	// authoritative check happens inside Store.Debit below.
	acct, err := e.Store.GetAccount(ctx, accountID)
	if err == ledgerstore.ErrAccountNotFound {
		return nil, apierr.NotFound("account not found")
	}
	if err != nil {
		return nil, apierr.Internalf("read account: " + err.Error())
	}
	if acct.BalanceOf(ledgerstore.USD) < MinBalanceMicros {
		e.Metrics.TrackInsufficientFunds(accountID)
		return nil, apierr.InsufficientFundsf("insufficient USD balance")
	}

	apiKey, err := e.Secrets.Get(ctx, rec.SecretName)
	if err != nil {
		return nil, err
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()

	resp, err := e.Dispatcher.Complete(dispatchCtx, rec, apiKey, req)
	if err != nil {
		e.Metrics.TrackUpstreamError(string(tag))
		return nil, err
	}

	// Billed on the response's model, never the request's (spec §4.6 step 8:
	// defends against a provider upgrading/aliasing a cheap requested model).
	cost := e.Pricing.Cost(resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	balanceAfter, err := e.Store.Debit(ctx, accountID, ledgerstore.USD, int64(cost), ledgerstore.TxLLMUsage,
		"llm usage", map[string]interface{}{
			"provider":         string(tag),
			"model":            resp.Model,
			"promptTokens":     resp.Usage.PromptTokens,
			"completionTokens": resp.Usage.CompletionTokens,
		})
	if err == ledgerstore.ErrInsufficientFunds {
		// Accepted loss (spec §4.6, §9): upstream has already been paid, but
		// the gateway never charges without a committed debit.
		e.Metrics.TrackInsufficientFunds(accountID)
		return nil, apierr.InsufficientFundsf("insufficient USD balance at settlement")
	}
	if err != nil {
		return nil, apierr.Internalf("debit: " + err.Error())
	}

	e.Metrics.TrackCompletion(string(tag), resp.Model, int64(cost))

	return &CompletionResult{
		Response:      resp,
		CostMicros:    cost,
		BalanceMicros: balanceAfter,
		Provider:      tag,
	}, nil
}
