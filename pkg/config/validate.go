package config

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g. "server.port").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every validation failure found in a
// configuration. All errors are collected and reported together.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// rateExpr is the accepted shape of a rate-limit rule.
var rateExpr = regexp.MustCompile(`^\d+/(second|minute|hour)$`)

// cspDirectiveName matches a syntactically valid CSP directive name.
var cspDirectiveName = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Validate checks the whole configuration and returns a ValidationError when
// any rule fails. Startup must not proceed past a non-nil result.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	errs = append(errs, validateCORS(&cfg.CORS)...)
	errs = append(errs, validateCertificate(&cfg.Certificate)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.Host == "" {
		errs = append(errs, FieldError{
			Field:   "server.host",
			Message: "host is required",
		})
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, FieldError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		})
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	if cfg.HSTSMaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "security.hsts_max_age",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.HSTSMaxAge),
		})
	}

	if strings.TrimSpace(cfg.ContentSecurityPolicy) == "" {
		errs = append(errs, FieldError{
			Field:   "security.content_security_policy",
			Message: "policy must not be empty",
		})
		return errs
	}

	// Each directive is "name value...", directives separated by ";".
	for _, directive := range strings.Split(cfg.ContentSecurityPolicy, ";") {
		directive = strings.TrimSpace(directive)
		if directive == "" {
			continue
		}
		name := strings.Fields(directive)[0]
		if !cspDirectiveName.MatchString(name) {
			errs = append(errs, FieldError{
				Field:   "security.content_security_policy",
				Message: fmt.Sprintf("malformed directive name %q", name),
			})
		}
	}

	return errs
}

func validateRateLimit(cfg *RateLimitConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled && !rateExpr.MatchString(cfg.Default) {
		errs = append(errs, FieldError{
			Field:   "rate_limit.default",
			Message: fmt.Sprintf("must match N/second, N/minute or N/hour, got %q", cfg.Default),
		})
	}

	switch cfg.Storage.Backend {
	case "memory":
	case "sqlite":
		if cfg.Storage.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "rate_limit.storage.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
	case "redis":
		if cfg.Storage.Redis.Addr == "" {
			errs = append(errs, FieldError{
				Field:   "rate_limit.storage.redis.addr",
				Message: "addr is required for the redis backend",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "rate_limit.storage.backend",
			Message: fmt.Sprintf("must be one of memory, sqlite, redis, got %q", cfg.Storage.Backend),
		})
	}

	return errs
}

func validateCORS(cfg *CORSConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}
	if len(cfg.AllowOrigins) == 0 {
		errs = append(errs, FieldError{
			Field:   "cors.allow_origins",
			Message: "at least one origin is required when cors is enabled",
		})
	}
	if cfg.MaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "cors.max_age",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.MaxAge),
		})
	}

	return errs
}

func validateCertificate(cfg *CertificateConfig) []FieldError {
	var errs []FieldError

	if cfg.Directory == "" {
		errs = append(errs, FieldError{
			Field:   "certificate.directory",
			Message: "directory is required",
		})
	}
	if cfg.KeyFile == "" {
		errs = append(errs, FieldError{
			Field:   "certificate.key_file",
			Message: "key file name is required",
		})
	}
	if cfg.CertFile == "" {
		errs = append(errs, FieldError{
			Field:   "certificate.cert_file",
			Message: "certificate file name is required",
		})
	}
	if cfg.DaysValid < 1 {
		errs = append(errs, FieldError{
			Field:   "certificate.days_valid",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.DaysValid),
		})
	}
	switch cfg.KeySize {
	case 2048, 3072, 4096:
	default:
		errs = append(errs, FieldError{
			Field:   "certificate.key_size",
			Message: fmt.Sprintf("must be 2048, 3072 or 4096, got %d", cfg.KeySize),
		})
	}

	return errs
}

func validateAuth(cfg *AuthConfig) []FieldError {
	var errs []FieldError

	if cfg.EnvFile == "" {
		errs = append(errs, FieldError{
			Field:   "auth.env_file",
			Message: "env file path is required",
		})
	}
	if cfg.Header == "" {
		errs = append(errs, FieldError{
			Field:   "auth.header",
			Message: "header name is required",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error, got %q", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be json or text, got %q", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: fmt.Sprintf("must start with /, got %q", cfg.Metrics.Path),
		})
	}

	return errs
}
