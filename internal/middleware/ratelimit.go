// Package middleware holds the gateway's request-scoped HTTP middleware:
// Redis-backed per-account rate limiting. Identity
// verification lives in internal/identity since it's also usable outside
// an HTTP handler chain (e.g. by a future RPC surface).
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/often-run/gateway/internal/apierr"
	"github.com/often-run/gateway/internal/identity"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter limiter backed by Redis,
// keyed by verified account id so one agent's retry storm can't starve
// another's quota.
type RateLimiter struct {
	client *redis.Client
	rpm    int
	window time.Duration
}

// NewRateLimiter builds a limiter allowing rpm requests per window (one
// minute) per account.
func NewRateLimiter(client *redis.Client, rpm int) *RateLimiter {
	return &RateLimiter{client: client, rpm: rpm, window: time.Minute}
}

// Handler enforces the limit, keyed by the account id internal/identity's
// middleware already attached to the request context. Requests without a
// verified account id (should not happen once chained after identity
// middleware) are not rate-limited here — identity middleware already
// rejected them.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := identity.AccountID(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := fmt.Sprintf("ratelimit:%s", accountID)
		count, err := l.client.Incr(r.Context(), key).Result()
		if err != nil {
			// Fail open: a Redis outage must not take down the gateway's
			// primary traffic path.
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			l.client.Expire(r.Context(), key, l.window)
		}

		remaining := l.rpm - int(count)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.rpm))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > l.rpm {
			ttl, _ := l.client.TTL(r.Context(), key).Result()
			w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			apierr.Write(w, &apierr.Error{Kind: "RATE_LIMITED", Status: http.StatusTooManyRequests, Message: "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Ping verifies connectivity to Redis at startup.
func Ping(ctx context.Context, client *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(pingCtx).Err()
}
