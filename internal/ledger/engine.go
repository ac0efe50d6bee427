// Package ledger implements the ledger core (C6), the double-entry
// transfer engine (C7), and the conversion engine (C8) — the atomic
// balance-debit pipeline spec §1 calls "the core".
package ledger

import (
	"github.com/often-run/gateway/internal/ledgerstore"
	"github.com/often-run/gateway/internal/observability"
	"github.com/often-run/gateway/internal/pricing"
	"github.com/often-run/gateway/internal/provider"
	"github.com/often-run/gateway/internal/rateoracle"
	"github.com/often-run/gateway/internal/secretcache"
	"github.com/rs/zerolog"
)

// MinBalanceMicros is the pre-check floor on USD balance (spec §4.6 step 3).
const MinBalanceMicros = 1000

// Engine wires the store, provider registry, pricing table, secret cache,
// and rate oracle into the three atomic operations this package exposes.
type Engine struct {
	Store      ledgerstore.Store
	Pricing    *pricing.Table
	Registry   *provider.Registry
	Dispatcher *provider.Dispatcher
	Secrets    *secretcache.Cache
	Rates      *rateoracle.Client
	Metrics    *observability.Metrics
	Logger     zerolog.Logger
}

// New builds an Engine from its component dependencies.
func New(store ledgerstore.Store, pricingTable *pricing.Table, registry *provider.Registry, dispatcher *provider.Dispatcher, secrets *secretcache.Cache, rates *rateoracle.Client, metrics *observability.Metrics, logger zerolog.Logger) *Engine {
	return &Engine{
		Store:      store,
		Pricing:    pricingTable,
		Registry:   registry,
		Dispatcher: dispatcher,
		Secrets:    secrets,
		Rates:      rates,
		Metrics:    metrics,
		Logger:     logger.With().Str("component", "ledger").Logger(),
	}
}
