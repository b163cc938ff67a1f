package middleware

import (
	"net/http"

	"cronplane/internal/logger"

	"github.com/google/uuid"
)

// RequestID assigns a correlation ID to each request and echoes it in the
// response so operators can match logs to calls.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", reqID)
		ctx := logger.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
