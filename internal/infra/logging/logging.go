package logging

import (
	"log/slog"
	"os"
)

// SetupJSON sets slog's default logger to use JSON output at the given level.
// When debug is set the level is forced down to Debug regardless of level,
// matching the plugin's single debug toggle.
func SetupJSON(level slog.Level, debug bool) {
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	)
	slog.SetDefault(logger)
}
