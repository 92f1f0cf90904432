package runtime

import (
	"log/slog"
	"os"
	"strings"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// NewLogger builds the process logger for env. Local runs get a colored
// human-readable handler; everything else logs JSON to stdout.
func NewLogger(service, env string) *slog.Logger {
	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(env)) {
	case EnvLocal:
		h = NewPrettyHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	case EnvDev:
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(h).With("service", service)
}
