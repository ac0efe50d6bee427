// Package observability implements a small hand-rolled Prometheus-text
// metrics registry, trimmed to the series this gateway actually emits.
package observability

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Counter is a monotonically increasing value.
type Counter struct {
	value int64
}

func (c *Counter) Inc()         { atomic.AddInt64(&c.value, 1) }
func (c *Counter) Add(n int64)  { atomic.AddInt64(&c.value, n) }
func (c *Counter) Value() int64 { return atomic.LoadInt64(&c.value) }

// Gauge is a value that can go up and down, stored as micros for
// float-like precision without a lock.
type Gauge struct {
	value int64
}

func (g *Gauge) Set(v float64)  { atomic.StoreInt64(&g.value, int64(v*1e6)) }
func (g *Gauge) Value() float64 { return float64(atomic.LoadInt64(&g.value)) / 1e6 }

// labelKey builds a stable, sorted label string for metric identification.
func labelKey(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return strings.Join(parts, ",")
}

// Metrics is the gateway's Prometheus-compatible metrics registry.
type Metrics struct {
	mu       sync.RWMutex
	logger   zerolog.Logger
	counters map[string]map[string]*Counter
	gauges   map[string]map[string]*Gauge
}

// NewMetrics creates an empty metrics registry.
func NewMetrics(logger zerolog.Logger) *Metrics {
	return &Metrics{
		logger:   logger.With().Str("component", "metrics").Logger(),
		counters: make(map[string]map[string]*Counter),
		gauges:   make(map[string]map[string]*Gauge),
	}
}

func (m *Metrics) CounterInc(name string, labels map[string]string) {
	m.getCounter(name, labels).Inc()
}

func (m *Metrics) CounterAdd(name string, labels map[string]string, n int64) {
	m.getCounter(name, labels).Add(n)
}

func (m *Metrics) getCounter(name string, labels map[string]string) *Counter {
	key := labelKey(labels)
	m.mu.RLock()
	if byLabel, ok := m.counters[name]; ok {
		if c, ok := byLabel[key]; ok {
			m.mu.RUnlock()
			return c
		}
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.counters[name]; !ok {
		m.counters[name] = make(map[string]*Counter)
	}
	if _, ok := m.counters[name][key]; !ok {
		m.counters[name][key] = &Counter{}
	}
	return m.counters[name][key]
}

func (m *Metrics) GaugeSet(name string, labels map[string]string, v float64) {
	m.getGauge(name, labels).Set(v)
}

func (m *Metrics) getGauge(name string, labels map[string]string) *Gauge {
	key := labelKey(labels)
	m.mu.RLock()
	if byLabel, ok := m.gauges[name]; ok {
		if g, ok := byLabel[key]; ok {
			m.mu.RUnlock()
			return g
		}
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gauges[name]; !ok {
		m.gauges[name] = make(map[string]*Gauge)
	}
	if _, ok := m.gauges[name][key]; !ok {
		m.gauges[name][key] = &Gauge{}
	}
	return m.gauges[name][key]
}

// TrackRequest records one completed HTTP request.
func (m *Metrics) TrackRequest(route string, status int) {
	m.CounterInc("gateway_requests_total", map[string]string{
		"route":  route,
		"status": fmt.Sprintf("%d", status),
	})
}

// TrackCompletion records a billed chat-completion call.
func (m *Metrics) TrackCompletion(provider, model string, costMicros int64) {
	labels := map[string]string{"provider": provider, "model": model}
	m.CounterInc("gateway_completions_total", labels)
	m.CounterAdd("gateway_completion_cost_micros_total", labels, costMicros)
}

// TrackInsufficientFunds records a rejected debit due to a low balance.
func (m *Metrics) TrackInsufficientFunds(accountID string) {
	m.CounterInc("gateway_insufficient_funds_total", nil)
}

// TrackUpstreamError records a failed upstream provider call.
func (m *Metrics) TrackUpstreamError(provider string) {
	m.CounterInc("gateway_upstream_errors_total", map[string]string{"provider": provider})
}

// SetOpenAccounts reports the current number of accounts known to the store.
func (m *Metrics) SetOpenAccounts(n int) {
	m.GaugeSet("gateway_accounts", nil, float64(n))
}

// Handler serves the registry in Prometheus text exposition format.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var sb strings.Builder
		m.mu.RLock()
		defer m.mu.RUnlock()

		for name, byLabel := range m.counters {
			sb.WriteString(fmt.Sprintf("# TYPE %s counter\n", name))
			for lk, c := range byLabel {
				if lk == "" {
					sb.WriteString(fmt.Sprintf("%s %d\n", name, c.Value()))
				} else {
					sb.WriteString(fmt.Sprintf("%s{%s} %d\n", name, lk, c.Value()))
				}
			}
		}
		for name, byLabel := range m.gauges {
			sb.WriteString(fmt.Sprintf("# TYPE %s gauge\n", name))
			for lk, g := range byLabel {
				if lk == "" {
					sb.WriteString(fmt.Sprintf("%s %f\n", name, g.Value()))
				} else {
					sb.WriteString(fmt.Sprintf("%s{%s} %f\n", name, lk, g.Value()))
				}
			}
		}

		_, _ = w.Write([]byte(sb.String()))
	}
}
