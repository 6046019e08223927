// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for unibotctl.
//
// Built on the standard library slog package. The default logger writes
// human-readable text to stderr (the CLI convention: stdout is reserved for
// command output). File logging can be enabled for troubleshooting long
// provisioning runs; file logs are always JSON.
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("recreating virtualenv", "path", venvDir)
//	logger.Warn("migration failed, continuing", "error", err)
//
// # File Logging
//
//	logger, err := logging.New(logging.Config{
//	    Level:   logging.LevelDebug,
//	    LogDir:  ".unibotctl/logs",
//	    Service: "setup",
//	})
//	defer logger.Close()
//
// # Log Levels
//
//   - Debug: development troubleshooting, verbose output
//   - Info: normal operations (step started, environment created)
//   - Warn: recoverable issues (migration failed, template missing)
//   - Error: operation failures (but the process continues)
//
// # Security Considerations
//
// This package does NOT automatically redact sensitive data. unibotctl
// handles a secrets file by path only; never log its contents.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents log severity levels, ordered Debug < Info < Warn < Error.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages.
	LevelInfo

	// LevelWarn is for potentially problematic situations the tool
	// can continue through.
	LevelWarn

	// LevelError is for operation failures.
	LevelError
)

// String returns the human-readable name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// toSlogLevel bridges our Level type to the standard library.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to a Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config configures Logger behavior. A zero-value Config creates a logger
// that writes Info+ messages to stderr in text format.
type Config struct {
	// Level sets the minimum log level. Messages below it are discarded.
	// Default: LevelInfo
	Level Level

	// LogDir enables file logging to the specified directory.
	//
	// When set, logs are written to both stderr and a file named
	// "{Service}_{YYYY-MM-DD}.log" in JSON format. The directory is
	// created with 0750 permissions if it doesn't exist.
	LogDir string

	// Service identifies the component generating logs. Included in every
	// entry as the "service" attribute when set.
	Service string

	// Quiet disables stderr output. Logs go only to file (if LogDir is
	// set). Useful when the styled progress output would otherwise be
	// interleaved with log lines.
	Quiet bool

	// Stderr overrides the console destination. Tests use this to
	// capture output. Default: os.Stderr.
	Stderr io.Writer
}

// Logger provides structured logging with optional file output.
//
// # Thread Safety
//
// Logger is safe for concurrent use from multiple goroutines.
//
// # Resource Management
//
// Call Close() when done to flush and close the log file:
//
//	logger, err := logging.New(cfg)
//	defer logger.Close()
type Logger struct {
	slog   *slog.Logger
	config Config
	file   *os.File
	mu     sync.Mutex
	closed bool
}

// New creates a Logger from the given configuration.
//
// Returns an error only when file logging was requested and the log
// directory or file cannot be created.
func New(cfg Config) (*Logger, error) {
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}

	var file *os.File
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", cfg.LogDir, err)
		}
		name := cfg.Service
		if name == "" {
			name = "unibotctl"
		}
		path := filepath.Join(cfg.LogDir, fmt.Sprintf("%s_%s.log", name, time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		file = f
	}

	// Each sink keeps its own format: text for the console, JSON for the
	// file, regardless of how they are combined.
	opts := &slog.HandlerOptions{Level: cfg.Level.toSlogLevel()}
	var handlers []slog.Handler
	if !cfg.Quiet {
		handlers = append(handlers, slog.NewTextHandler(cfg.Stderr, opts))
	}
	if file != nil {
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	sl := slog.New(handler)
	if cfg.Service != "" {
		sl = sl.With("service", cfg.Service)
	}

	return &Logger{slog: sl, config: cfg, file: file}, nil
}

// Default returns a stderr-only logger at Info level.
func Default() *Logger {
	l, _ := New(Config{})
	return l
}

// With returns a child logger carrying additional attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), config: l.config, file: l.file}
}

// Debug logs at debug level with optional key-value attributes.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs at info level with optional key-value attributes.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs at warn level with optional key-value attributes.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs at error level with optional key-value attributes.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// Close flushes and closes the log file if one is open.
// Safe to call multiple times. Child loggers share the parent's file;
// only close the root logger.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.file == nil {
		l.closed = true
		return nil
	}
	l.closed = true
	return l.file.Close()
}

// multiHandler fans one record out to every sink handler.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: out}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		out[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: out}
}
