package app

import (
	"log/slog"
	"os"
)

// NewLogger returns a configured slog.Logger based on configuration.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg == nil || !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	env := "development"
	if cfg != nil {
		env = cfg.AppEnv
	}
	return slog.New(handler).With(slog.String("service", "scmdesk"), slog.String("env", env))
}
