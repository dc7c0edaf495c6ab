package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"kgraph-backend/pkg/api"
)

// Timeout wraps requests with a timeout context.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			r = r.WithContext(ctx)

			go func() {
				defer func() {
					if err := recover(); err != nil {
						requestID := GetRequestIDFromRequest(r)
						log.Printf("PANIC in timeout handler [Request ID: %s]: %v", requestID, err)
					}
				}()

				next.ServeHTTP(w, r)
				close(done)
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				requestID := GetRequestIDFromRequest(r)
				log.Printf("Request timeout [Request ID: %s]: %v", requestID, ctx.Err())

				if w.Header().Get("Content-Type") == "" {
					api.Error(w, http.StatusRequestTimeout, "Request timeout")
				}
				return
			}
		})
	}
}
