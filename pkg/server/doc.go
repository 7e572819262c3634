// Package server assembles the HTTPS server from its parts: validated
// configuration, the token authority, certificate provisioning, the rate
// limiter and the middleware chain, plus the built-in routes.
//
// # Routes
//
//   - GET /api/health: public, rate limited. 200 when a token is
//     configured, 500 otherwise; reachable without credentials either way.
//   - GET /api/login: protected by X-API-Key, rate limited.
//   - GET /metrics: public Prometheus exposition (when enabled).
//
// Applications extend the route set with RegisterRoute before Start; a
// registered route gets the same guard composition as the built-ins
// (auth when Protected, rate limiting when Limited, request metrics always):
//
//	srv.RegisterRoute(http.MethodGet, "/api/version",
//		health.VersionHandler(version, commit, date),
//		server.RouteOptions{Limited: true})
//
// # Middleware order
//
// RequestID → RequestLogger → SecurityHeaders → Recovery → CORS wrap every
// route; AuthGuard and the RateLimit guard wrap individual routes. The order
// is load-bearing: the logger records the final status of rejections, and
// security headers are present on every response the server produces.
//
// # Lifecycle
//
//	cfg, err := config.Load(path)
//	logger, err := logging.New(...)
//	srv, err := server.New(ctx, cfg, logger)
//	err = srv.Start(ctx) // blocks until signal or fatal error
//
// Start provisions the self-signed certificate pair if needed, binds a
// TLS 1.3 listener and schedules the counter janitor. Shutdown drains
// in-flight requests, stops the janitor and closes the counter store.
package server
