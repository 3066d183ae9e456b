package middleware

import (
	"net/http"

	"market-client/pkg/logger"
)

// RequestLogging logs every request hitting the status surface.
func RequestLogging(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("Status request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr)

			next.ServeHTTP(w, r)
		})
	}
}
