// Package config loads gateway configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every configuration value the gateway's components need.
type Config struct {
	// Server
	Addr            string
	Env             string
	GracefulTimeout time.Duration

	// Persistent store
	MongoURI      string
	MongoDatabase string

	// Redis (rate limiting)
	RedisURL string

	// Identity
	FirebaseWebAPIKey string
	GCPProject        string

	// Admin
	AdminAPIKey string

	// Rate oracle
	RateOracleURL string

	// Timeouts
	DefaultTimeout   time.Duration
	ProviderTimeouts map[string]time.Duration

	// Body limits
	MaxBodyBytes int64

	// Rate limiting
	RateLimitEnabled bool
	RateLimitRPM     int

	LogLevel string

	// Per-provider base URL overrides, keyed by provider tag; empty means
	// use the registry's built-in default.
	ProviderBaseURLs map[string]string
}

// Load reads configuration from environment variables and an optional
// .env file.
func Load() *Config {
	_ = godotenv.Load()

	gracefulSec := getEnvInt("GATEWAY_GRACEFUL_TIMEOUT_SEC", 15)
	defaultTimeoutSec := getEnvInt("GATEWAY_DEFAULT_TIMEOUT_SEC", 120)

	return &Config{
		Addr:              getEnv("PORT", getEnv("GATEWAY_ADDR", ":8080")),
		Env:               getEnv("ENV", "development"),
		GracefulTimeout:   time.Duration(gracefulSec) * time.Second,
		MongoURI:          getEnv("MONGO_URI", ""),
		MongoDatabase:     getEnv("MONGO_DATABASE", "often"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		FirebaseWebAPIKey: getEnv("FIREBASE_WEB_API_KEY", ""),
		GCPProject:        getEnv("GCP_PROJECT", ""),
		AdminAPIKey:       getEnv("ADMIN_API_KEY", ""),
		RateOracleURL:     getEnv("RATE_ORACLE_URL", ""),
		DefaultTimeout:    time.Duration(defaultTimeoutSec) * time.Second,
		MaxBodyBytes:      int64(getEnvInt("GATEWAY_MAX_BODY_BYTES", 1*1024*1024)),
		RateLimitEnabled:  getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPM:      getEnvInt("RATE_LIMIT_RPM", 60),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ProviderTimeouts: map[string]time.Duration{
			"openai":    time.Duration(getEnvInt("PROVIDER_TIMEOUT_OPENAI_SEC", 120)) * time.Second,
			"anthropic": time.Duration(getEnvInt("PROVIDER_TIMEOUT_ANTHROPIC_SEC", 120)) * time.Second,
			"google":    time.Duration(getEnvInt("PROVIDER_TIMEOUT_GOOGLE_SEC", 120)) * time.Second,
			"mistral":   time.Duration(getEnvInt("PROVIDER_TIMEOUT_MISTRAL_SEC", 120)) * time.Second,
			"together":  time.Duration(getEnvInt("PROVIDER_TIMEOUT_TOGETHER_SEC", 120)) * time.Second,
		},
		ProviderBaseURLs: map[string]string{
			"openai":    getEnv("OPENAI_BASE_URL", ""),
			"anthropic": getEnv("ANTHROPIC_BASE_URL", ""),
			"google":    getEnv("GOOGLE_BASE_URL", ""),
			"mistral":   getEnv("MISTRAL_BASE_URL", ""),
			"together":  getEnv("TOGETHER_BASE_URL", ""),
		},
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// ProviderTimeout returns the configured upstream timeout for a provider tag.
func (c *Config) ProviderTimeout(provider string) time.Duration {
	if t, ok := c.ProviderTimeouts[provider]; ok {
		return t
	}
	return c.DefaultTimeout
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
