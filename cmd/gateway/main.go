package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/often-run/gateway/internal/admin"
	"github.com/often-run/gateway/internal/config"
	"github.com/often-run/gateway/internal/httpapi"
	"github.com/often-run/gateway/internal/identity"
	"github.com/often-run/gateway/internal/ledger"
	"github.com/often-run/gateway/internal/ledgerstore"
	"github.com/often-run/gateway/internal/logger"
	gwmw "github.com/often-run/gateway/internal/middleware"
	"github.com/often-run/gateway/internal/observability"
	"github.com/often-run/gateway/internal/pricing"
	"github.com/often-run/gateway/internal/provider"
	"github.com/often-run/gateway/internal/rateoracle"
	"github.com/often-run/gateway/internal/secretcache"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("often gateway starting")

	store, err := connectStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("persistent store init failed")
	}

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	redisClient := redis.NewClient(redisOpt)
	if err := gwmw.Ping(context.Background(), redisClient); err != nil {
		log.Warn().Err(err).Msg("redis ping failed — rate limiting will fail open")
	} else {
		log.Info().Msg("redis connected")
	}

	registry := provider.NewRegistry()
	for tag, base := range cfg.ProviderBaseURLs {
		if base != "" {
			registry = registry.WithBaseURL(provider.Tag(tag), base)
		}
	}

	metrics := observability.NewMetrics(log)
	go pollOpenAccounts(store, metrics, log)

	engine := ledger.New(
		store,
		pricing.NewTable(),
		registry,
		provider.NewDispatcher(),
		secretcache.New(secretcache.EnvStore{}),
		rateoracle.New(cfg.RateOracleURL),
		metrics,
		log,
	)

	verifier := identity.NewFirebaseVerifier(cfg.GCPProject)
	toolkit := identity.NewIdentityToolkitClient(cfg.FirebaseWebAPIKey)
	adminHandler := admin.New(store, cfg.AdminAPIKey)
	rateLimiter := gwmw.NewRateLimiter(redisClient, cfg.RateLimitRPM)

	r := httpapi.NewRouter(httpapi.Deps{
		Logger:       log,
		Engine:       engine,
		Store:        store,
		Pricing:      engine.Pricing,
		Admin:        adminHandler,
		Verifier:     verifier,
		Toolkit:      toolkit,
		RateLimiter:  rateLimiter,
		Metrics:      metrics,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.DefaultTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("gateway stopped gracefully")
	}

	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		_ = closer.Close(ctx)
	}
}

// pollOpenAccounts refreshes the gateway_accounts gauge on a fixed interval,
// the same ticker-driven shape the provider health poller uses.
func pollOpenAccounts(store ledgerstore.Store, metrics *observability.Metrics, log zerolog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		n, err := store.CountAccounts(context.Background())
		if err != nil {
			log.Warn().Err(err).Msg("count accounts failed")
			continue
		}
		metrics.SetOpenAccounts(n)
	}
}

// connectStore builds the MongoDB-backed store when MONGO_URI is
// explicitly configured, falling back to the in-memory store for local
// development and CI — both satisfy ledgerstore.Store identically.
func connectStore(cfg *config.Config, log zerolog.Logger) (ledgerstore.Store, error) {
	if cfg.MongoURI == "" {
		log.Warn().Msg("MONGO_URI not set — using in-memory store, balances will not survive a restart")
		return ledgerstore.NewMemStore(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := ledgerstore.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	log.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongodb")
	return store, nil
}
