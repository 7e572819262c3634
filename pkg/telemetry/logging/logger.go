package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in plain text format.
	FormatText LogFormat = "text"
)

// Logger provides structured logging with secret redaction and async
// buffering. Request handling must never block on a slow log sink, so
// writes go through a buffered background writer; entries are dropped
// (and counted) when the buffer is full.
type Logger struct {
	slog     *slog.Logger
	redactor *Redactor
	level    slog.Level
	format   LogFormat
	buffer   *asyncWriter
}

// Config contains configuration for the Logger.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string

	// Format is the output format ("json", "text").
	Format string

	// BufferSize is the async buffer size in entries. Default 10000.
	BufferSize int

	// Writer is the output writer (defaults to os.Stdout).
	Writer io.Writer
}

// New creates a new Logger with the given configuration.
func New(cfg Config) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 10000
	}

	buffer := newAsyncWriter(writer, bufferSize)

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(buffer, opts)
	default:
		handler = slog.NewJSONHandler(buffer, opts)
	}

	return &Logger{
		slog:     slog.New(handler),
		redactor: NewRedactor(),
		level:    level,
		format:   format,
		buffer:   buffer,
	}, nil
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) {
	l.log(context.Background(), slog.LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(context.Background(), slog.LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	l.log(context.Background(), slog.LevelError, msg, args...)
}

// InfoContext logs an info message, prepending fields carried in ctx.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, append(extractContextFields(ctx), args...)...)
}

// WarnContext logs a warning message, prepending fields carried in ctx.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, append(extractContextFields(ctx), args...)...)
}

// ErrorContext logs an error message, prepending fields carried in ctx.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelError, msg, append(extractContextFields(ctx), args...)...)
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.slog.Enabled(ctx, level) {
		return
	}
	l.slog.Log(ctx, level, msg, l.redactor.RedactArgs(args...)...)
}

// With creates a new logger with additional fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:     l.slog.With(l.redactor.RedactArgs(args...)...),
		redactor: l.redactor,
		level:    l.level,
		format:   l.format,
		buffer:   l.buffer,
	}
}

// Slog returns the underlying slog.Logger, for components that take one
// directly. It shares the async buffer but bypasses the redactor; callers
// must not hand it secret values.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Dropped returns the number of log entries dropped because the buffer
// was full.
func (l *Logger) Dropped() int64 {
	return l.buffer.dropped.Load()
}

// Shutdown flushes pending writes and stops the background writer.
func (l *Logger) Shutdown() error {
	l.buffer.stop()
	return nil
}

// asyncWriter decouples log production from the sink. Write copies the
// encoded entry onto a channel; a single goroutine drains it.
type asyncWriter struct {
	entries  chan []byte
	writer   io.Writer
	dropped  atomic.Int64
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

func newAsyncWriter(w io.Writer, size int) *asyncWriter {
	aw := &asyncWriter{
		entries:  make(chan []byte, size),
		writer:   w,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go aw.run()
	return aw
}

// Write implements io.Writer. The handler reuses its buffer after Write
// returns, so the entry is copied before queueing.
func (aw *asyncWriter) Write(p []byte) (int, error) {
	entry := make([]byte, len(p))
	copy(entry, p)

	select {
	case aw.entries <- entry:
	default:
		aw.dropped.Add(1)
	}
	return len(p), nil
}

func (aw *asyncWriter) run() {
	defer close(aw.done)
	for {
		select {
		case entry := <-aw.entries:
			aw.writer.Write(entry)
		case <-aw.stopChan:
			for {
				select {
				case entry := <-aw.entries:
					aw.writer.Write(entry)
				default:
					return
				}
			}
		}
	}
}

func (aw *asyncWriter) stop() {
	aw.stopOnce.Do(func() { close(aw.stopChan) })
	<-aw.done
}

// parseLevel parses a log level string into slog.Level.
func parseLevel(levelStr string) (slog.Level, error) {
	switch levelStr {
	case "debug", "DEBUG":
		return slog.LevelDebug, nil
	case "info", "INFO", "":
		return slog.LevelInfo, nil
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn, nil
	case "error", "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// parseFormat parses a log format string into LogFormat.
func parseFormat(formatStr string) (LogFormat, error) {
	switch formatStr {
	case "json", "JSON", "":
		return FormatJSON, nil
	case "text", "TEXT":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", formatStr)
	}
}
