package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const (
	SessionIDKey contextKey = "session_id"

	// SessionHeader carries the client's anonymous cart token
	SessionHeader = "X-Session-ID"

	maxSessionHeaderLength = 128
)

// SessionMiddleware copies the X-Session-ID header into the request context.
// The token is not authenticated; it only partitions cart data and keys the
// rate limiter. Requests without the header pass through untouched.
func SessionMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}

			if len(sessionID) > maxSessionHeaderLength {
				logger.Debug("Oversized session header", zap.Int("length", len(sessionID)))
				RespondWithError(w, http.StatusBadRequest, "invalid session header")
				return
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionID extracts the session token from request context
func GetSessionID(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(SessionIDKey).(string)
	return sessionID, ok
}
