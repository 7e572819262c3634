package config

import (
	"strings"
	"testing"
)

func TestValidateDefaultsAreValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default configuration failed validation: %v", err)
	}
}

func TestValidateServer(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "empty host",
			mutate:    func(c *Config) { c.Server.Host = "" },
			wantField: "server.host",
		},
		{
			name:      "port zero",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantField: "server.port",
		},
		{
			name:      "port too large",
			mutate:    func(c *Config) { c.Server.Port = 65536 },
			wantField: "server.port",
		},
		{
			name:      "negative hsts",
			mutate:    func(c *Config) { c.Security.HSTSMaxAge = -1 },
			wantField: "security.hsts_max_age",
		},
		{
			name:      "empty csp",
			mutate:    func(c *Config) { c.Security.ContentSecurityPolicy = "   " },
			wantField: "security.content_security_policy",
		},
		{
			name:      "malformed csp directive",
			mutate:    func(c *Config) { c.Security.ContentSecurityPolicy = "Default_Src 'self'" },
			wantField: "security.content_security_policy",
		},
		{
			name:      "bad rate expression",
			mutate:    func(c *Config) { c.RateLimit.Default = "100/day" },
			wantField: "rate_limit.default",
		},
		{
			name:      "unknown storage backend",
			mutate:    func(c *Config) { c.RateLimit.Storage.Backend = "etcd" },
			wantField: "rate_limit.storage.backend",
		},
		{
			name:      "sqlite backend without path",
			mutate:    func(c *Config) { c.RateLimit.Storage.Backend = "sqlite" },
			wantField: "rate_limit.storage.sqlite.path",
		},
		{
			name:      "redis backend without addr",
			mutate:    func(c *Config) { c.RateLimit.Storage.Backend = "redis" },
			wantField: "rate_limit.storage.redis.addr",
		},
		{
			name:      "cors enabled without origins",
			mutate:    func(c *Config) { c.CORS.Enabled = true; c.CORS.AllowOrigins = nil },
			wantField: "cors.allow_origins",
		},
		{
			name:      "bad key size",
			mutate:    func(c *Config) { c.Certificate.KeySize = 1024 },
			wantField: "certificate.key_size",
		},
		{
			name:      "zero validity",
			mutate:    func(c *Config) { c.Certificate.DaysValid = 0 },
			wantField: "certificate.days_valid",
		},
		{
			name:      "empty auth header",
			mutate:    func(c *Config) { c.Auth.Header = "" },
			wantField: "auth.header",
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "bad metrics path",
			mutate:    func(c *Config) { c.Telemetry.Metrics.Path = "metrics" },
			wantField: "telemetry.metrics.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate accepted an invalid configuration")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error %q does not mention field %q", err, tt.wantField)
			}
		})
	}
}

func TestValidateRateExpressions(t *testing.T) {
	valid := []string{"1/second", "100/minute", "2/minute", "5000/hour"}
	invalid := []string{"", "100", "minute", "100/minutes", "100 / minute", "-1/minute", "1/day"}

	for _, expr := range valid {
		cfg := Default()
		cfg.RateLimit.Default = expr
		if err := Validate(cfg); err != nil {
			t.Errorf("Validate rejected valid rate %q: %v", expr, err)
		}
	}
	for _, expr := range invalid {
		cfg := Default()
		cfg.RateLimit.Default = expr
		if err := Validate(cfg); err == nil {
			t.Errorf("Validate accepted invalid rate %q", expr)
		}
	}
}

func TestValidateRateLimitDisabledSkipsRule(t *testing.T) {
	cfg := Default()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.Default = "not-a-rule"

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate checked the default rule while rate limiting is disabled: %v", err)
	}
}

func TestServerConfigAddress(t *testing.T) {
	cfg := ServerConfig{Host: "localhost", Port: 8000}

	if got := cfg.Address(); got != "localhost:8000" {
		t.Errorf("Address() = %q, want localhost:8000", got)
	}
	if got := cfg.URL(); got != "https://localhost:8000" {
		t.Errorf("URL() = %q, want https://localhost:8000", got)
	}
}
