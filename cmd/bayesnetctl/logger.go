package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

func newLogger(levelStr, formatStr string, outW io.Writer) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", levelStr)
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(formatStr) {
	case "json":
		return slog.New(slog.NewJSONHandler(outW, handlerOpts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(outW, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", formatStr)
	}
}
