// Package rateoracle implements the rate oracle client (C10): USD prices
// for non-USD supported currencies, TTL-cached with stale-fallback.
package rateoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/often-run/gateway/internal/apierr"
)

// TTL is the snapshot lifetime, per spec §4.10.
const TTL = 60 * time.Second

// fetchTimeout bounds a single oracle HTTP call; spec §5 requires this
// timeout to be short (≤ 5s) so a slow oracle never blocks a conversion.
const fetchTimeout = 5 * time.Second

// snapshot is a mapping from currency code to USD price as a positive
// rational, along with when it was taken.
type snapshot struct {
	prices map[string]float64
	takenAt time.Time
}

// Client fetches and caches USD prices for the non-USD supported
// currencies. USD is pinned to 1 and never fetched.
type Client struct {
	url    string
	client *http.Client

	mu   sync.RWMutex
	last *snapshot
}

// New builds a Client pointed at the given oracle URL.
func New(url string) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// USDPrice returns currency's USD price. USD is pinned to 1 without a
// network call. On oracle failure, the last snapshot is served whatever its
// age; failure is only returned when no snapshot has ever been obtained.
func (c *Client) USDPrice(ctx context.Context, currency string) (float64, error) {
	if currency == "USD" {
		return 1, nil
	}

	c.mu.RLock()
	fresh := c.last != nil && time.Since(c.last.takenAt) < TTL
	c.mu.RUnlock()
	if fresh {
		return c.priceFromLast(currency)
	}

	if err := c.refresh(ctx); err != nil {
		c.mu.RLock()
		hasSnapshot := c.last != nil
		c.mu.RUnlock()
		if !hasSnapshot {
			return 0, apierr.ProviderUnconfiguredf("rate oracle unavailable and no snapshot exists")
		}
		// Stale data acceptable, per spec §9's availability-favoring CAP choice.
	}

	return c.priceFromLast(currency)
}

func (c *Client) priceFromLast(currency string) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return 0, apierr.ProviderUnconfiguredf("rate oracle has no snapshot")
	}
	p, ok := c.last.prices[currency]
	if !ok {
		return 0, apierr.Validationf("unsupported currency " + currency)
	}
	return p, nil
}

func (c *Client) refresh(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rate oracle returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var prices map[string]float64
	if err := json.Unmarshal(body, &prices); err != nil {
		return err
	}
	prices["USD"] = 1

	c.mu.Lock()
	c.last = &snapshot{prices: prices, takenAt: time.Now()}
	c.mu.Unlock()
	return nil
}
