package logging

import (
	"log/slog"
	"os"
)

// Setup installs the global JSON logger. It runs before config loads, so the
// level comes straight from the environment.
func Setup() {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler).With("service", "stoq-backend"))
}
