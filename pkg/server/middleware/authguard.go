package middleware

import (
	"encoding/json"
	"net/http"

	"mercator-hq/ganymede/pkg/security/token"
	"mercator-hq/ganymede/pkg/telemetry/logging"
)

// AuthGuard rejects requests whose credential header does not verify against
// the token authority. It wraps individual protected routes, not the whole
// chain, so public routes like health and metrics skip it entirely.
//
// The credential value is read from the request and handed to the authority;
// it is never logged, in any branch.
func AuthGuard(authority *token.Authority, header string, logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := authority.Verify(r.Header.Get(header))
			if result.OK {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("authentication failed",
				"reason", string(result.Reason),
				"request_id", GetRequestID(r.Context()),
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(struct {
				Detail string `json:"detail"`
				Reason string `json:"reason"`
			}{
				Detail: authFailureDetail(result.Reason),
				Reason: string(result.Reason),
			})
		})
	}
}

func authFailureDetail(reason token.Reason) string {
	switch reason {
	case token.ReasonMissing:
		return "Missing API key"
	case token.ReasonError:
		return "Server authentication is not configured"
	default:
		return "Invalid API key"
	}
}
