package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/limits/ratelimit"
	"mercator-hq/ganymede/pkg/limits/storage"
	"mercator-hq/ganymede/pkg/security/tlscert"
	"mercator-hq/ganymede/pkg/security/token"
	"mercator-hq/ganymede/pkg/telemetry/health"
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

const (
	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 10 * time.Second

	// janitorSchedule and counterRetention control the periodic pruning of
	// idle rate-limit counters.
	janitorSchedule  = "@every 5m"
	counterRetention = time.Hour
)

// Server is the secure HTTPS API server.
type Server struct {
	cfg         *config.Config
	logger      *logging.Logger
	collector   *metrics.Collector
	authority   *token.Authority
	limiter     *ratelimit.Limiter
	provisioner *tlscert.Provisioner
	checker     *health.Checker
	defaultRule ratelimit.Rule
	janitor     *cron.Cron
	routes      []route

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New wires a server from validated configuration. It loads the persisted
// token hash (absence is legal; the server starts unconfigured and reports
// unhealthy) and connects the counter store, but does not touch the network
// or the certificate files until Start.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	collector := metrics.NewCollector()

	authority := token.New(cfg.Auth.EnvFile, token.WithObserver(collector))
	if err := authority.Load(); err != nil {
		return nil, fmt.Errorf("failed to load token hash: %w", err)
	}

	store, err := openStore(ctx, cfg.RateLimit.Storage)
	if err != nil {
		return nil, err
	}

	var defaultRule ratelimit.Rule
	if cfg.RateLimit.Enabled {
		defaultRule, err = ratelimit.ParseRule(cfg.RateLimit.Default)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("invalid default rate limit: %w", err)
		}
	}

	provisioner := tlscert.New(tlscert.Config{
		Directory: cfg.Certificate.Directory,
		KeyPath:   cfg.Certificate.KeyPath(),
		CertPath:  cfg.Certificate.CertPath(),
		Host:      cfg.Server.Host,
		DaysValid: cfg.Certificate.DaysValid,
		KeySize:   cfg.Certificate.KeySize,
	}, logger.Slog())

	return &Server{
		cfg:         cfg,
		logger:      logger,
		collector:   collector,
		authority:   authority,
		limiter:     ratelimit.NewLimiter(store),
		provisioner: provisioner,
		checker:     health.NewChecker(authority),
		defaultRule: defaultRule,
		janitor:     cron.New(),
	}, nil
}

// openStore builds the configured counter store.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.CounterStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite":
		store, err := storage.NewSQLiteStore(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite counter store: %w", err)
		}
		return store, nil
	case "redis":
		store, err := storage.NewRedisStore(ctx, storage.RedisStoreConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis counter store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown rate limit storage backend %q", cfg.Backend)
	}
}

// Start provisions certificates, binds the TLS listener and blocks until a
// shutdown signal, context cancellation or a fatal server error.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	if err := s.provisioner.Ensure(ctx); err != nil {
		return fmt.Errorf("failed to provision certificates: %w", err)
	}

	if _, err := s.janitor.AddFunc(janitorSchedule, s.pruneCounters); err != nil {
		return fmt.Errorf("failed to schedule counter janitor: %w", err)
	}
	s.janitor.Start()

	s.httpServer = &http.Server{
		Addr:      s.cfg.Server.Address(),
		Handler:   s.Handler(),
		TLSConfig: newTLSConfig(),

		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"address", s.cfg.Server.Address(),
			"url", s.cfg.Server.URL(),
			"token_configured", s.authority.IsConfigured(),
			"rate_limit_enabled", s.cfg.RateLimit.Enabled,
		)
		if !s.authority.IsConfigured() {
			s.logger.Warn("no API token configured; protected routes will reject all requests")
		}

		err := s.httpServer.ListenAndServeTLS(s.cfg.Certificate.CertPath(), s.cfg.Certificate.KeyPath())
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.Shutdown(context.Background())
		return err
	}
}

// Shutdown gracefully stops the server, the janitor and the counter store.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		s.isRunning = false
		s.mu.Unlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", shutdownTimeout.String())

		stopCtx := s.janitor.Stop()
		<-stopCtx.Done()

		if s.httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		if err := s.limiter.Close(); err != nil {
			s.logger.Error("error closing counter store", "error", err)
		}

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// pruneCounters is the janitor tick: drop counters idle past retention.
func (s *Server) pruneCounters() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.limiter.Cleanup(ctx, counterRetention)
	if err != nil {
		s.logger.Error("counter cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Debug("pruned idle rate limit counters", "removed", removed)
	}
}

// IsRunning reports whether the server has been started and not shut down.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// newTLSConfig returns the server's TLS settings. TLS 1.3 only.
func newTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		CipherSuites: []uint16{
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_CHACHA20_POLY1305_SHA256,
		},
	}
}
