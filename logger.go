package main

import (
	"io"
	"log/slog"
)

// newLogger builds the JSON logger shared by all components and makes it the
// slog default.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
