package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
)

// syncBuffer is a goroutine-safe bytes.Buffer for capturing log output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(t *testing.T, cfg Config) (*Logger, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	cfg.Writer = buf
	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return logger, buf
}

func TestLoggerJSONOutput(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json"})

	logger.Info("server started", "port", 8000)
	logger.Shutdown()

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "server started" {
		t.Errorf("msg = %v, want %q", entry["msg"], "server started")
	}
	if entry["port"] != float64(8000) {
		t.Errorf("port = %v, want 8000", entry["port"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "warn", Format: "json"})

	logger.Debug("debug line")
	logger.Info("info line")
	logger.Warn("warn line")
	logger.Error("error line")
	logger.Shutdown()

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("below-level entries written:\n%s", out)
	}
	if !strings.Contains(out, "warn line") || !strings.Contains(out, "error line") {
		t.Errorf("at-level entries missing:\n%s", out)
	}
}

func TestLoggerInvalidConfig(t *testing.T) {
	if _, err := New(Config{Level: "verbose"}); err == nil {
		t.Error("New accepted unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("New accepted unknown format")
	}
}

func TestLoggerRedactsSensitiveFields(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json"})

	logger.Info("auth attempt",
		"api_key", "super-secret-value",
		"path", "/api/login",
	)
	logger.Shutdown()

	out := buf.String()
	if strings.Contains(out, "super-secret-value") {
		t.Errorf("secret value reached the sink:\n%s", out)
	}
	if !strings.Contains(out, "/api/login") {
		t.Errorf("non-secret field lost:\n%s", out)
	}
}

func TestLoggerWithCarriesFields(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json"})

	child := logger.With("component", "server")
	child.Info("listening")
	logger.Shutdown()

	if !strings.Contains(buf.String(), `"component":"server"`) {
		t.Errorf("With field missing:\n%s", buf.String())
	}
}

func TestLoggerContextFields(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json"})

	ctx := WithRequestID(t.Context(), "req-123")
	ctx = WithClientIP(ctx, "203.0.113.9")
	logger.InfoContext(ctx, "handled")
	logger.Shutdown()

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-123"`) {
		t.Errorf("request_id missing:\n%s", out)
	}
	if !strings.Contains(out, `"client_ip":"203.0.113.9"`) {
		t.Errorf("client_ip missing:\n%s", out)
	}
}

func TestLoggerShutdownFlushes(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json", BufferSize: 1000})

	for i := 0; i < 500; i++ {
		logger.Info("entry", "i", i)
	}
	logger.Shutdown()

	if got := strings.Count(buf.String(), "\n"); got != 500 {
		t.Errorf("flushed %d entries, want 500 (dropped %d)", got, logger.Dropped())
	}
}

func TestLoggerDropsUnderPressure(t *testing.T) {
	// A writer that never completes forces the buffer to fill.
	blocked := make(chan struct{})
	logger, err := New(Config{
		Level:      "info",
		BufferSize: 8,
		Writer: writerFunc(func(p []byte) (int, error) {
			<-blocked
			return len(p), nil
		}),
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 100; i++ {
		logger.Info("entry")
	}

	if logger.Dropped() == 0 {
		t.Error("no entries dropped with a blocked writer and a full buffer")
	}
	close(blocked)
	logger.Shutdown()
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

var _ io.Writer = writerFunc(nil)
