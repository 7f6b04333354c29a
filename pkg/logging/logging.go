// Package logging configures structured logging with log/slog.
//
// Two formats are supported: "pretty" (colored tint output for local
// development) and "json" (one JSON object per line for production).
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup builds a logger in the given format at the level specified by the
// LOG_LEVEL env var and installs it as the slog default.
func Setup(format string) *slog.Logger {
	return SetupWithLevel(format, levelFromEnv())
}

// SetupWithLevel builds a logger in the given format at an explicit level.
func SetupWithLevel(format string, level slog.Level) *slog.Logger {
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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
