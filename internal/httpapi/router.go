// Package httpapi wires every component into the chi router spec §6
// describes: the public chat-completion proxy, the account/ledger
// endpoints, and the signup/login/refresh passthrough to the identity
// backend.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/often-run/gateway/internal/admin"
	"github.com/often-run/gateway/internal/identity"
	"github.com/often-run/gateway/internal/ledger"
	"github.com/often-run/gateway/internal/ledgerstore"
	gwmw "github.com/often-run/gateway/internal/middleware"
	"github.com/often-run/gateway/internal/observability"
	"github.com/often-run/gateway/internal/pricing"
)

// Deps is every dependency the router needs to mount its handlers. It is
// assembled once at startup by cmd/gateway/main.go.
type Deps struct {
	Logger      zerolog.Logger
	Engine      *ledger.Engine
	Store       ledgerstore.Store
	Pricing     *pricing.Table
	Admin       *admin.Handler
	Verifier    identity.Verifier
	Toolkit     *identity.IdentityToolkitClient
	RateLimiter *gwmw.RateLimiter
	Metrics     *observability.Metrics
	MaxBodyBytes int64
}

// NewRouter builds the full chi.Router: CORS-free (this is a server-to-
// server gateway, not a browser client), request id + panic recovery +
// structured request logging first, then body-size enforcement, then the
// route tree.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(d.Logger, d.Metrics))
	r.Use(maxBodyBytes(d.MaxBodyBytes))

	h := &api{d: d}

	r.Get("/healthz", h.healthz)
	if d.Metrics != nil {
		r.Get("/metrics", d.Metrics.Handler())
	}

	r.Get("/v1/models", h.listModels)

	idMW := identity.NewMiddleware(d.Verifier)

	r.Group(func(r chi.Router) {
		r.Use(idMW.Handler)
		if d.RateLimiter != nil {
			r.Use(d.RateLimiter.Handler)
		}
		r.Post("/v1/chat/completions", h.chatCompletions)
		r.Get("/getAccount", h.getAccount)
		r.Get("/getTransactions", h.getTransactions)
		r.Post("/transfer", h.transfer)
		r.Post("/convert", h.convert)
	})

	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)

	r.Post("/deposit", h.deposit)

	return r
}

// requestLogger emits one structured line per request, in the teacher's
// access-log shape: method, path, status, latency. It also feeds the
// gateway_requests_total counter when a metrics registry is configured.
func requestLogger(logger zerolog.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("latency", time.Since(start)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("request")
			if metrics != nil {
				metrics.TrackRequest(r.URL.Path, ww.Status())
			}
		})
	}
}

// maxBodyBytes caps every request body so a caller can't exhaust memory
// with an oversized payload (spec §5 resource model).
func maxBodyBytes(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = 1 * 1024 * 1024
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

type api struct {
	d Deps
}

func (h *api) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","service":"often-gateway"}`))
}
