// Package request assigns each inbound request a correlation ID, honoring an
// upstream X-Request-ID when a proxy already set one.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"phdpeer/pkg/requestcontext"
)

const headerRequestID = "X-Request-ID"

// ID middleware stores a request ID in the context and echoes it back in the
// response headers so clients can correlate logs.
func ID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
