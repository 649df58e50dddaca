package logging

import (
	"log/slog"
	"os"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Configure initializes the shared JSON logger. It is safe to call multiple
// times; only the first call's level takes effect.
func Configure(level slog.Level) *slog.Logger {
	once.Do(func() {
		handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		logger = slog.New(handler)
	})
	return logger
}

// Logger returns the configured slog logger, configuring it at info level on
// first use if necessary.
func Logger() *slog.Logger {
	if logger == nil {
		return Configure(slog.LevelInfo)
	}
	return logger
}
