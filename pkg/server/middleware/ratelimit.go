package middleware

import (
	"net"
	"net/http"
	"strconv"

	"mercator-hq/ganymede/pkg/limits/ratelimit"
	"mercator-hq/ganymede/pkg/telemetry/logging"
)

// RateLimitObserver counts rejected requests. The metrics collector
// satisfies this.
type RateLimitObserver interface {
	RecordRateLimitExceeded(endpoint string)
}

// RateLimit enforces rule on a single route, keyed by client address. Every
// response carries the X-RateLimit-* headers; a rejected request gets a 429
// with Retry-After.
//
// endpoint is the registered route pattern, used for the counter key and the
// rejection metric.
func RateLimit(limiter *ratelimit.Limiter, rule ratelimit.Rule, endpoint string, observer RateLimitObserver, logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := limiter.Allow(r.Context(), clientKey(r), endpoint, rule)
			if err != nil {
				// A broken counter store must not take the API down
				// with it. Let the request through and log.
				logger.Error("rate limit check failed",
					"error", err,
					"endpoint", endpoint,
					"request_id", GetRequestID(r.Context()),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

			if !decision.Allowed {
				observer.RecordRateLimitExceeded(endpoint)
				logger.Warn("rate limit exceeded",
					"endpoint", endpoint,
					"limit", rule.String(),
					"request_id", GetRequestID(r.Context()),
					"remote_addr", r.RemoteAddr,
				)

				retryAfter := int(decision.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				WriteError(w, http.StatusTooManyRequests, "Rate limit exceeded: "+rule.String())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller for rate limiting purposes. The port is
// stripped so reconnecting from an ephemeral port does not reset the
// client's window.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
