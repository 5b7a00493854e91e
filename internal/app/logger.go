package app

import (
	"io"
	"log/slog"
	"os"
)

// ServiceName tags every log record emitted by the ledger binaries.
const ServiceName = "odyssey-ledger"

// NewLogger returns a configured slog.Logger for a ledger component such as
// "api" or "worker".
func NewLogger(cfg *Config, component string) *slog.Logger {
	return newLogger(os.Stdout, cfg, component)
}

func newLogger(w io.Writer, cfg *Config, component string) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	}
	attrs := []any{slog.String("service", ServiceName), slog.String("component", component)}
	if cfg != nil {
		attrs = append(attrs, slog.String("env", cfg.AppEnv), slog.String("store", cfg.LedgerStore))
	}
	return slog.New(handler).With(attrs...)
}
