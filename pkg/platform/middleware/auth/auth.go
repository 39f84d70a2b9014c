// Package auth resolves the authenticated actor from a bearer token once, at
// the transport boundary. The actor's role is parsed into the closed role set
// here and carried as a typed value; nothing downstream re-reads the token.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"phdpeer/pkg/domain"
	"phdpeer/pkg/requestcontext"
)

// Claims is what the token validator hands back to the middleware.
type Claims struct {
	PersonID string
	Role     string
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// RequireActor rejects requests without a valid bearer token and injects the
// resolved actor into the request context. An unrecognized role claim
// degrades to the subject role, never to a wider one.
func RequireActor(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				writeUnauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			personID, err := domain.ParsePersonID(claims.PersonID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed subject claim",
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			actor := domain.Actor{ID: personID, Role: domain.ParseRole(claims.Role)}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
