package config

import (
	"fmt"
	"path/filepath"
)

// Config is the root configuration for a Ganymede server.
//
// A Config is produced once at startup by Load and treated as immutable for
// the lifetime of the process. There is no reload path; changing any value
// requires a restart.
type Config struct {
	Server      ServerConfig      `json:"server" yaml:"server"`
	Security    SecurityConfig    `json:"security" yaml:"security"`
	RateLimit   RateLimitConfig   `json:"rate_limit" yaml:"rate_limit"`
	CORS        CORSConfig        `json:"cors" yaml:"cors"`
	Certificate CertificateConfig `json:"certificate" yaml:"certificate"`
	Auth        AuthConfig        `json:"auth" yaml:"auth"`
	Telemetry   TelemetryConfig   `json:"telemetry" yaml:"telemetry"`
}

// ServerConfig configures the listening socket.
type ServerConfig struct {
	// Host is the hostname or IP address to bind and to place in the
	// certificate's subject alternative names.
	Host string `json:"host" yaml:"host"`

	// Port is the TCP port to listen on.
	Port int `json:"port" yaml:"port"`
}

// Address returns the listen address in host:port form.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// URL returns the external URL of the server. The server only speaks HTTPS.
func (c ServerConfig) URL() string {
	return "https://" + c.Address()
}

// SecurityConfig configures the security headers applied to every response.
type SecurityConfig struct {
	// HSTSMaxAge is the max-age in seconds for the
	// Strict-Transport-Security header.
	HSTSMaxAge int `json:"hsts_max_age" yaml:"hsts_max_age"`

	// ContentSecurityPolicy is the Content-Security-Policy header value.
	ContentSecurityPolicy string `json:"content_security_policy" yaml:"content_security_policy"`
}

// RateLimitConfig configures request rate limiting.
type RateLimitConfig struct {
	// Enabled toggles rate limiting globally.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Default is the rule applied to limited routes that do not declare
	// their own, in "N/unit" form (e.g. "100/minute").
	Default string `json:"default" yaml:"default"`

	// Storage selects the counter store backend.
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// StorageConfig selects and configures the rate-limit counter store.
type StorageConfig struct {
	// Backend is one of "memory", "sqlite" or "redis".
	Backend string `json:"backend" yaml:"backend"`

	SQLite SQLiteStorageConfig `json:"sqlite" yaml:"sqlite"`
	Redis  RedisStorageConfig  `json:"redis" yaml:"redis"`
}

// SQLiteStorageConfig configures the SQLite counter store.
type SQLiteStorageConfig struct {
	Path string `json:"path" yaml:"path"`
}

// RedisStorageConfig configures the Redis counter store.
type RedisStorageConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// CORSConfig configures cross-origin resource sharing. CORS is optional and
// disabled unless enabled explicitly.
type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	AllowOrigins     []string `json:"allow_origins" yaml:"allow_origins"`
	AllowMethods     []string `json:"allow_methods" yaml:"allow_methods"`
	AllowHeaders     []string `json:"allow_headers" yaml:"allow_headers"`
	ExposeHeaders    []string `json:"expose_headers" yaml:"expose_headers"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `json:"max_age" yaml:"max_age"`
}

// CertificateConfig configures self-signed TLS provisioning.
type CertificateConfig struct {
	// Directory is where the key and certificate files live.
	Directory string `json:"directory" yaml:"directory"`

	// KeyFile and CertFile are filenames inside Directory.
	KeyFile  string `json:"key_file" yaml:"key_file"`
	CertFile string `json:"cert_file" yaml:"cert_file"`

	// DaysValid is the validity window of a generated certificate.
	DaysValid int `json:"days_valid" yaml:"days_valid"`

	// KeySize is the RSA key size in bits (2048, 3072 or 4096).
	KeySize int `json:"key_size" yaml:"key_size"`
}

// KeyPath returns the full path to the private key file.
func (c CertificateConfig) KeyPath() string {
	return filepath.Join(c.Directory, c.KeyFile)
}

// CertPath returns the full path to the certificate file.
func (c CertificateConfig) CertPath() string {
	return filepath.Join(c.Directory, c.CertFile)
}

// AuthConfig configures token authentication.
type AuthConfig struct {
	// EnvFile is the env file holding the persisted token hash.
	EnvFile string `json:"env_file" yaml:"env_file"`

	// Header is the request header carrying the credential.
	Header string `json:"header" yaml:"header"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `json:"level" yaml:"level"`

	// Format is "json" or "text".
	Format string `json:"format" yaml:"format"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is where the exposition endpoint is mounted.
	Path string `json:"path" yaml:"path"`
}
