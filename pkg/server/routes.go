package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mercator-hq/ganymede/pkg/limits/ratelimit"
	"mercator-hq/ganymede/pkg/server/middleware"
)

// RouteOptions describes the guards applied to a single route.
type RouteOptions struct {
	// Protected routes require a verified API token.
	Protected bool

	// Limited routes pass through the rate limiter.
	Limited bool

	// Rule overrides the configured default rate limit for this route.
	// Zero value means use the default.
	Rule ratelimit.Rule
}

// route is a registered application route awaiting mounting.
type route struct {
	method  string
	pattern string
	handler http.Handler
	opts    RouteOptions
}

// RegisterRoute adds an application route to the server. The route is mounted
// with the same guard composition as the built-in routes: auth guard when
// Protected, rate limiter when Limited, request metrics always. Routes must
// be registered before Start.
func (s *Server) RegisterRoute(method, pattern string, handler http.Handler, opts RouteOptions) error {
	if method == "" || pattern == "" || handler == nil {
		return fmt.Errorf("route registration requires a method, pattern and handler")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return fmt.Errorf("cannot register route %s %s: server already running", method, pattern)
	}
	s.routes = append(s.routes, route{method, pattern, handler, opts})
	return nil
}

// Handler builds the full handler tree: the built-in routes and every
// registered application route, each wrapped in its per-route guards, inside
// the shared middleware chain. Exported so tests can drive the server through
// httptest without a TLS listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.register(mux, http.MethodGet, "/api/health", s.checker.Handler(), RouteOptions{
		Limited: true,
	})
	s.register(mux, http.MethodGet, "/api/login", s.loginHandler(), RouteOptions{
		Protected: true,
		Limited:   true,
	})

	if s.cfg.Telemetry.Metrics.Enabled {
		s.register(mux, http.MethodGet, s.cfg.Telemetry.Metrics.Path, s.collector.Handler(), RouteOptions{})
	}

	s.mu.RLock()
	registered := s.routes
	s.mu.RUnlock()
	for _, rt := range registered {
		s.register(mux, rt.method, rt.pattern, rt.handler, rt.opts)
	}

	// The chain order is a correctness invariant: the logger must observe
	// the final status of every request, and the security headers must be
	// set before any later stage writes a response, so rejections carry
	// them too.
	var handler http.Handler = mux
	handler = middleware.CORS(s.corsConfig())(handler)
	handler = middleware.Recovery(s.logger)(handler)
	handler = middleware.SecurityHeaders(middleware.SecurityHeadersConfig{
		HSTSMaxAge:            s.cfg.Security.HSTSMaxAge,
		ContentSecurityPolicy: s.cfg.Security.ContentSecurityPolicy,
	})(handler)
	handler = middleware.RequestLogger(s.logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}

// register mounts handler at pattern with its guards. Guard order per route:
// metrics outermost so 401s and 429s are measured, then auth, then the rate
// limiter, so unauthenticated requests cannot consume a client's budget.
func (s *Server) register(mux *http.ServeMux, method, pattern string, handler http.Handler, opts RouteOptions) {
	if opts.Limited && s.cfg.RateLimit.Enabled {
		rule := opts.Rule
		if rule.Limit == 0 {
			rule = s.defaultRule
		}
		handler = middleware.RateLimit(s.limiter, rule, pattern, s.collector, s.logger)(handler)
	}
	if opts.Protected {
		handler = middleware.AuthGuard(s.authority, s.cfg.Auth.Header, s.logger)(handler)
	}
	handler = middleware.Metrics(s.collector, pattern)(handler)

	mux.Handle(method+" "+pattern, handler)
}

// loginHandler confirms a verified credential. The auth guard has already
// run by the time this executes.
func (s *Server) loginHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(struct {
			Code      int       `json:"code"`
			Message   string    `json:"message"`
			Timestamp time.Time `json:"timestamp"`
		}{
			Code:      http.StatusOK,
			Message:   "Login successful",
			Timestamp: time.Now().UTC(),
		})
	})
}

func (s *Server) corsConfig() middleware.CORSConfig {
	return middleware.CORSConfig{
		Enabled:          s.cfg.CORS.Enabled,
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowMethods:     s.cfg.CORS.AllowMethods,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		ExposeHeaders:    s.cfg.CORS.ExposeHeaders,
		AllowCredentials: s.cfg.CORS.AllowCredentials,
		MaxAge:           s.cfg.CORS.MaxAge,
	}
}
