package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/elee1766/mydrawer/src/config"
	"github.com/lmittmann/tint"
)

// createCLILogger writes to stderr with tint, or JSON lines when asked.
// A configured log file replaces stderr.
func createCLILogger(cfg config.LoggingConfig, debug bool) *slog.Logger {
	level := parseLogLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if cfg.File != "" {
		if f, err := openLogFile(cfg.File); err == nil {
			w = f
		}
	}

	if cfg.Format == "json" || w != os.Stderr {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level: level,
	}))
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
