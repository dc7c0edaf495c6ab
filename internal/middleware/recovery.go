// Package middleware provides the HTTP middleware stack: request IDs,
// panic recovery, timeouts and a circuit breaker.
package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"kgraph-backend/pkg/api"
)

// Recovery handles panics and converts them to proper HTTP error responses.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestIDFromRequest(r)
				log.Printf("PANIC [Request ID: %s]: %v\nStack trace:\n%s",
					requestID, err, string(debug.Stack()))

				// If headers were already written the connection is lost;
				// otherwise send a proper error envelope.
				if w.Header().Get("Content-Type") == "" {
					api.Error(w, http.StatusInternalServerError, "Internal server error")
				}
			}
		}()

		next.ServeHTTP(w, r)
	})
}
