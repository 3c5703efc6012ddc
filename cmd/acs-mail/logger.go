package main

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// setupLogger configures the global slog logger with the given level. The
// json format writes structured records; text renders them for terminals.
func setupLogger(w io.Writer, level, format string) {
	slog.SetDefault(slog.New(newHandler(w, level, format)))
}

func newHandler(w io.Writer, level, format string) slog.Handler {
	logLevel := parseLevel(level)

	if format == "text" {
		return log.NewWithOptions(w, log.Options{
			Level:           log.Level(logLevel),
			ReportTimestamp: true,
		})
	}

	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
