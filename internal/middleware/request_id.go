package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"storyhub/pkg/logger"
)

// ContextKey represents keys used in request context
type ContextKey string

// RequestIDContextKey is the key for the request ID in context.
const RequestIDContextKey ContextKey = "request_id"

// RequestID tags every request with a unique id, echoed in the X-Request-ID
// response header and attached to the request-scoped log fields.
func RequestID(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			r = r.WithContext(ctx)

			w.Header().Set("X-Request-ID", requestID)

			log.WithFields(map[string]interface{}{
				"request_id": requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
			}).Debug("Request started")

			next.ServeHTTP(w, r)
		})
	}
}

// GetRequestID extracts the request id from ctx, empty when untagged.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return id
	}
	return ""
}
