// Package secretcache implements the secret cache (C4): a TTL-cached
// lookup of upstream API keys by logical name, with single-flight dedup of
// concurrent misses for the same key.
package secretcache

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/often-run/gateway/internal/apierr"
)

// TTL is the cache lifetime for a resolved secret, per spec §4.4.
const TTL = 5 * time.Minute

// Store is the secret backend contract: resolve a logical secret name to
// its current value. Spec §2 describes this only as a contract; the
// gateway's shipped implementation is EnvStore below.
type Store interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// EnvStore resolves a logical name like "openai" to the environment
// variable OPENAI_API_KEY. This is the same env-var fallback the teacher's
// Vault client uses when Vault is disabled, promoted here to the only
// backend since this deployment has no secret manager dependency to wire.
type EnvStore struct{}

func (EnvStore) Fetch(ctx context.Context, name string) (string, error) {
	key := strings.ToUpper(name) + "_API_KEY"
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", apierr.ProviderUnconfiguredf("no API key configured for provider " + name)
	}
	return v, nil
}

type entry struct {
	value  string
	expiry time.Time
}

// inflight tracks a fetch already in progress for a key, so concurrent
// misses on the same name share one backend call.
type inflight struct {
	done  chan struct{}
	value string
	err   error
}

// Cache is a concurrent-safe, TTL-bounded secret cache backed by a Store.
type Cache struct {
	store Store
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]entry
	calls   map[string]*inflight
}

// New builds a Cache over the given backend with the spec's default TTL.
func New(store Store) *Cache {
	return &Cache{
		store:   store,
		ttl:     TTL,
		entries: make(map[string]entry),
		calls:   make(map[string]*inflight),
	}
}

// Get returns the cached secret for name, fetching and repopulating on miss
// or expiry. Concurrent callers racing on the same expired/missing name
// share a single backend fetch.
func (c *Cache) Get(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	if e, ok := c.entries[name]; ok && time.Now().Before(e.expiry) {
		c.mu.Unlock()
		return e.value, nil
	}

	if call, ok := c.calls[name]; ok {
		c.mu.Unlock()
		<-call.done
		return call.value, call.err
	}

	call := &inflight{done: make(chan struct{})}
	c.calls[name] = call
	c.mu.Unlock()

	value, err := c.store.Fetch(ctx, name)

	c.mu.Lock()
	delete(c.calls, name)
	if err == nil {
		c.entries[name] = entry{value: value, expiry: time.Now().Add(c.ttl)}
	}
	c.mu.Unlock()

	call.value, call.err = value, err
	close(call.done)
	return value, err
}
