// Package logger builds the gateway's process-wide zerolog.Logger.
package logger

import (
	"os"

	"github.com/often-run/gateway/internal/config"
	"github.com/rs/zerolog"
)

// New returns a configured zerolog.Logger: a human-readable console writer
// in development, compact JSON otherwise.
func New(cfg *config.Config) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if cfg.IsDevelopment() {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if cfg.IsDevelopment() {
		out := zerolog.ConsoleWriter{Out: os.Stderr}
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
