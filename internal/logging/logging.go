// Package logging builds the slog logger shared by every command. Output
// goes to stderr so pipeline results on stdout stay machine-readable.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a logger for the given level ("debug", "info", "warn",
// "error") and format ("text" or "json"). Unknown values fall back to info
// level text output.
func New(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
