package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
}

// Logger wraps slog with the printf-style methods the domain packages consume.
type Logger struct {
	slogger *slog.Logger
	file    *os.File
	mu      sync.Mutex
}

// New creates a Logger writing to stdout and, when Dir is set, a log file.
func New(cfg Config) (*Logger, error) {
	var writers []io.Writer
	writers = append(writers, os.Stdout)

	var file *os.File
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		name := cfg.Filename
		if name == "" {
			name = "server.log"
		}
		f, err := os.OpenFile(filepath.Join(cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	return &Logger{
		slogger: slog.New(handler),
		file:    file,
	}, nil
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{slogger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Slog exposes the structured logger for integrations that want it directly.
func (l *Logger) Slog() *slog.Logger {
	return l.slogger
}

func (l *Logger) Debug(format string, args ...any) {
	l.slogger.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	l.slogger.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.slogger.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.slogger.Error(fmt.Sprintf(format, args...))
}

// Close releases the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
