package middleware

import (
	"net/http"
	"time"
)

// RequestRecorder receives per-request measurements. The metrics collector
// satisfies this.
type RequestRecorder interface {
	RecordRequest(method, path string, status int, duration time.Duration)
}

// Metrics records request count and latency for a single route. It wraps
// per-route like the guards, so the recorded path is the registered pattern
// and cardinality stays bounded no matter what URLs clients send.
func Metrics(recorder RequestRecorder, pattern string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			recorder.RecordRequest(r.Method, pattern, rw.statusCode, time.Since(start))
		})
	}
}
