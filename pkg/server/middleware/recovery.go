package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"mercator-hq/ganymede/pkg/telemetry/logging"
)

// Recovery recovers from panics in handlers and returns a generic 500. The
// panic value and stack are logged for debugging; nothing internal reaches
// the client.
func Recovery(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic in handler",
						"error", err,
						"request_id", GetRequestID(r.Context()),
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					WriteError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// errorBody is the JSON error envelope used by all middleware rejections.
type errorBody struct {
	Detail string `json:"detail"`
}

// WriteError writes a JSON error response with the given status and detail.
func WriteError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Detail: detail})
}
