package config

// Default returns a fully populated configuration with development-friendly
// defaults. Load decodes the configuration file over this value, so absent
// fields (including absent sections) keep their defaults and explicit values,
// booleans included, override them.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8000,
		},
		Security: SecurityConfig{
			HSTSMaxAge:            31536000, // one year
			ContentSecurityPolicy: "default-src 'self'",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Default: "100/minute",
			Storage: StorageConfig{
				Backend: "memory",
			},
		},
		CORS: CORSConfig{
			Enabled:      false,
			AllowOrigins: []string{},
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{},
			MaxAge:       600,
		},
		Certificate: CertificateConfig{
			Directory: "certs",
			KeyFile:   "key.pem",
			CertFile:  "cert.pem",
			DaysValid: 365,
			KeySize:   4096,
		},
		Auth: AuthConfig{
			EnvFile: ".env",
			Header:  "X-API-Key",
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
