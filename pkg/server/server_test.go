package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/limits/ratelimit"
	"mercator-hq/ganymede/pkg/security/token"
	"mercator-hq/ganymede/pkg/telemetry/health"
	"mercator-hq/ganymede/pkg/telemetry/logging"
)

// newTestServer builds a server on a throwaway config. mutate adjusts the
// config before wiring; generateToken controls whether a token hash exists.
func newTestServer(t *testing.T, generateToken bool, mutate func(*config.Config)) (*Server, string) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Auth.EnvFile = filepath.Join(dir, ".env")
	cfg.Certificate.Directory = filepath.Join(dir, "certs")
	if mutate != nil {
		mutate(cfg)
	}

	raw := ""
	if generateToken {
		var err error
		raw, err = token.New(cfg.Auth.EnvFile).Generate()
		if err != nil {
			t.Fatal(err)
		}
	}

	logger, err := logging.New(logging.Config{Writer: io.Discard})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { logger.Shutdown() })

	srv, err := New(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, raw
}

func get(t *testing.T, handler http.Handler, path, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	req.RemoteAddr = "203.0.113.9:4242"
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthConfigured(t *testing.T) {
	srv, _ := newTestServer(t, true, nil)
	handler := srv.Handler()

	rec := get(t, handler, "/api/health", "")
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Status != "healthy" || body.Code != 200 {
		t.Errorf("body = %+v", body)
	}
}

func TestHealthUnconfigured(t *testing.T) {
	srv, _ := newTestServer(t, false, nil)

	// Reachable without credentials, but reports unhealthy.
	rec := get(t, srv.Handler(), "/api/health", "")
	if rec.Code != 500 {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unhealthy") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestLoginAuthScenarios(t *testing.T) {
	srv, raw := newTestServer(t, true, nil)
	handler := srv.Handler()

	tests := []struct {
		name       string
		key        string
		wantStatus int
		wantReason string
	}{
		{"valid", raw, 200, ""},
		{"missing", "", 401, "missing"},
		{"invalid", "wrong-token", 401, "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, handler, "/api/login", tt.key)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantReason != "" {
				var body struct {
					Reason string `json:"reason"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("body is not JSON: %v", err)
				}
				if body.Reason != tt.wantReason {
					t.Errorf("reason = %q, want %q", body.Reason, tt.wantReason)
				}
			} else if !strings.Contains(rec.Body.String(), "Login successful") {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestRateLimitSequence(t *testing.T) {
	srv, raw := newTestServer(t, true, func(cfg *config.Config) {
		cfg.RateLimit.Default = "2/minute"
	})
	handler := srv.Handler()

	for i, want := range []int{200, 200, 429} {
		rec := get(t, handler, "/api/login", raw)
		if rec.Code != want {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, want)
		}
	}

	// The health route has its own counter; the login window is irrelevant.
	if rec := get(t, handler, "/api/health", ""); rec.Code != 200 {
		t.Errorf("health status = %d after login exhausted, want 200", rec.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	srv, raw := newTestServer(t, true, func(cfg *config.Config) {
		cfg.RateLimit.Enabled = false
		cfg.RateLimit.Default = ""
	})
	handler := srv.Handler()

	for i := 0; i < 5; i++ {
		if rec := get(t, handler, "/api/login", raw); rec.Code != 200 {
			t.Fatalf("request %d: status = %d, want 200 with limiting disabled", i+1, rec.Code)
		}
	}
}

func TestUnauthenticatedDoesNotConsumeBudget(t *testing.T) {
	srv, raw := newTestServer(t, true, func(cfg *config.Config) {
		cfg.RateLimit.Default = "2/minute"
	})
	handler := srv.Handler()

	// Auth runs before the limiter, so rejected requests leave the
	// counter untouched.
	for i := 0; i < 5; i++ {
		if rec := get(t, handler, "/api/login", "wrong"); rec.Code != 401 {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	}
	for i, want := range []int{200, 200, 429} {
		if rec := get(t, handler, "/api/login", raw); rec.Code != want {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, want)
		}
	}
}

func TestSecurityHeadersEveryStatus(t *testing.T) {
	srv, raw := newTestServer(t, true, func(cfg *config.Config) {
		cfg.RateLimit.Default = "1/minute"
	})
	handler := srv.Handler()

	responses := map[string]*httptest.ResponseRecorder{
		"200": get(t, handler, "/api/login", raw),
		"429": get(t, handler, "/api/login", raw),
		"401": get(t, handler, "/api/login", ""),
	}

	for status, rec := range responses {
		for header, want := range map[string]string{
			"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
			"Content-Security-Policy":   "default-src 'self'",
			"X-Content-Type-Options":    "nosniff",
			"X-Frame-Options":           "DENY",
		} {
			if got := rec.Header().Get(header); got != want {
				t.Errorf("%s response: %s = %q, want %q", status, header, got, want)
			}
		}
	}
}

func TestRateLimitHeaders(t *testing.T) {
	srv, raw := newTestServer(t, true, func(cfg *config.Config) {
		cfg.RateLimit.Default = "2/minute"
	})
	handler := srv.Handler()

	rec := get(t, handler, "/api/login", raw)
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Errorf("X-RateLimit-Limit = %q, want 2", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "1" {
		t.Errorf("X-RateLimit-Remaining = %q, want 1", got)
	}

	get(t, handler, "/api/login", raw)
	rec = get(t, handler, "/api/login", raw)
	if rec.Code != 429 {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 without Retry-After")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, true, nil)
	handler := srv.Handler()

	// Generate some traffic first.
	get(t, handler, "/api/health", "")
	get(t, handler, "/api/login", "")

	rec := get(t, handler, "/metrics", "")
	if rec.Code != 200 {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, metric := range []string{
		"ganymede_token_configured 1",
		`ganymede_auth_failure_total{reason="missing"} 1`,
		"ganymede_requests_total",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("exposition missing %q", metric)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	srv, _ := newTestServer(t, true, func(cfg *config.Config) {
		cfg.Telemetry.Metrics.Enabled = false
	})

	if rec := get(t, srv.Handler(), "/metrics", ""); rec.Code != 404 {
		t.Errorf("metrics status = %d with metrics disabled, want 404", rec.Code)
	}
}

func TestRequestIDHeaderPresent(t *testing.T) {
	srv, _ := newTestServer(t, true, nil)

	rec := get(t, srv.Handler(), "/api/health", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID missing from response")
	}
}

func TestRegisterRouteGuards(t *testing.T) {
	srv, raw := newTestServer(t, true, nil)

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("pong"))
	})
	err := srv.RegisterRoute(http.MethodGet, "/api/ping", echo, RouteOptions{
		Protected: true,
		Limited:   true,
		Rule:      ratelimit.MustParseRule("2/minute"),
	})
	if err != nil {
		t.Fatalf("RegisterRoute: %v", err)
	}
	handler := srv.Handler()

	// The registered route gets the same guards as the built-ins: auth
	// first, then its own rate limit window.
	if rec := get(t, handler, "/api/ping", ""); rec.Code != 401 {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}
	for i, want := range []int{200, 200, 429} {
		if rec := get(t, handler, "/api/ping", raw); rec.Code != want {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, want)
		}
	}

	// Its window is independent of the built-in routes.
	if rec := get(t, handler, "/api/health", ""); rec.Code != 200 {
		t.Errorf("health status = %d after ping exhausted, want 200", rec.Code)
	}
}

func TestRegisterRoutePublic(t *testing.T) {
	srv, _ := newTestServer(t, true, nil)

	err := srv.RegisterRoute(http.MethodGet, "/api/version",
		health.VersionHandler("1.2.3", "abc1234", "2026-01-01"), RouteOptions{Limited: true})
	if err != nil {
		t.Fatalf("RegisterRoute: %v", err)
	}

	rec := get(t, srv.Handler(), "/api/version", "")
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Version string `json:"version"`
		Commit  string `json:"commit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Version != "1.2.3" || body.Commit != "abc1234" {
		t.Errorf("body = %+v", body)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("registered route missing security headers")
	}
}

func TestRegisterRouteRejected(t *testing.T) {
	srv, _ := newTestServer(t, true, nil)
	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	if err := srv.RegisterRoute("", "/api/x", noop, RouteOptions{}); err == nil {
		t.Error("RegisterRoute accepted an empty method")
	}
	if err := srv.RegisterRoute(http.MethodGet, "/api/x", nil, RouteOptions{}); err == nil {
		t.Error("RegisterRoute accepted a nil handler")
	}

	srv.mu.Lock()
	srv.isRunning = true
	srv.mu.Unlock()
	if err := srv.RegisterRoute(http.MethodGet, "/api/x", noop, RouteOptions{}); err == nil {
		t.Error("RegisterRoute accepted a route on a running server")
	}
}

func TestUnknownBackendRejected(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Auth.EnvFile = filepath.Join(dir, ".env")
	cfg.RateLimit.Storage.Backend = "memcached"

	logger, err := logging.New(logging.Config{Writer: io.Discard})
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Shutdown()

	if _, err := New(context.Background(), cfg, logger); err == nil {
		t.Error("New accepted unknown storage backend")
	}
}
