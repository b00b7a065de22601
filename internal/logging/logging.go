package logging

import (
	"log/slog"
	"os"
)

// New builds the process-wide logger. Text output on stderr, Debug level
// when DISPATCHCORE_DEBUG is set.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("DISPATCHCORE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
