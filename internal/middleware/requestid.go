// Package middleware provides HTTP middleware for the dispatchd status API.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/logger"
)

// headerRequestID is the inbound and outbound correlation header.
const headerRequestID = "X-Request-ID"

// RequestID tags every request with a correlation id: the caller's
// X-Request-ID when present, a fresh UUID otherwise. The id travels in the
// request context for log enrichment and is echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
