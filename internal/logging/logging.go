// Package logging builds the structured logger emberdb's CLI and Engine
// share, the same log/slog JSON-handler setup the original server command
// used for its own request logging.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a JSON slog.Logger writing to stderr at the level named by
// levelName ("debug", "info", "warn"/"warning", "error"; anything else
// defaults to info).
func New(levelName string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
