package observability

import (
	"log/slog"
	"os"

	"github.com/couchcryptid/bess-site-scout/internal/config"
)

// NewLogger builds the process logger from service settings. Format "text"
// selects the human-readable handler; anything else gets JSON. Unknown
// levels fall back to info.
func NewLogger(cfg config.Service) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
