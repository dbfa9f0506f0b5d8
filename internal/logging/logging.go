// Package logging configures structured logging for kernalinit
// components. The default logger writes a text handler to stderr;
// when a log directory is configured a JSON file handler is added
// alongside it.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Config controls logger construction.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Empty means info.
	Level string
	// LogDir, when set, enables a JSON log file <LogDir>/<Service>.log.
	LogDir string
	// Service names the component writing the log file.
	Service string
}

// Logger wraps slog with ownership of the optional log file.
type Logger struct {
	*slog.Logger
	file io.Closer
}

// New builds a Logger per cfg. Errors opening the log file degrade to
// stderr-only logging rather than failing the caller.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)
	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}

	var file *os.File
	if cfg.LogDir != "" {
		service := cfg.Service
		if service == "" {
			service = "kernalinit"
		}
		if err := os.MkdirAll(cfg.LogDir, 0755); err == nil {
			path := filepath.Join(cfg.LogDir, service+".log")
			f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err == nil {
				file = f
				handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
			} else {
				fmt.Fprintf(os.Stderr, "logging: cannot open %s: %v\n", path, err)
			}
		}
	}

	var h slog.Handler
	if len(handlers) == 1 {
		h = handlers[0]
	} else {
		h = &multiHandler{handlers: handlers}
	}
	return &Logger{Logger: slog.New(h), file: file}
}

// Default returns a stderr-only logger at info level.
func Default() *Logger {
	return New(Config{})
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch s {
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

// multiHandler fans one record out to every handler.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, r.Level) {
			if err := hh.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
