// Package middleware implements the server's HTTP middleware.
//
// Two kinds of middleware live here. Chain middleware wraps every route:
// RequestID, RequestLogger, SecurityHeaders, Recovery and CORS, applied in
// that order so the logger sees the final status of every request and the
// security headers are present on every response, including rejections.
// Guard middleware wraps individual routes: AuthGuard, RateLimit and
// Metrics, so public routes can skip authentication while still being rate
// limited and measured.
package middleware
