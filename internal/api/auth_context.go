package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/bookcaseapp/bookcase-server/internal/auth"
	domainerrors "github.com/bookcaseapp/bookcase-server/internal/errors"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	// userIDKey is the context key for the authenticated user ID.
	userIDKey ctxKey = "userID"
	// authErrKey holds why a presented token was rejected.
	authErrKey ctxKey = "authErr"
)

// GetUserID returns the authenticated user ID from context.
// Returns a 401 error if the request carried no valid token.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if ok && userID != "" {
		return userID, nil
	}
	if err, ok := ctx.Value(authErrKey).(error); ok {
		return "", toAPIError(err)
	}
	return "", toAPIError(domainerrors.Unauthorized("authentication required"))
}

// userFromRequest adapts GetUserID for plain handlers.
func userFromRequest(r *http.Request) (string, bool) {
	userID, err := GetUserID(r.Context())
	return userID, err == nil
}

func setUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// bearerToken extracts the token from the Authorization header. Event
// streams may pass it as ?token= since EventSource cannot set headers.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if strings.HasSuffix(r.URL.Path, "/stream") {
		return r.URL.Query().Get("token")
	}
	return ""
}

// authMiddleware validates bearer tokens and stores the user ID in context.
// Requests without a valid token continue anonymously; handlers call
// GetUserID to require authentication.
func authMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.VerifyAccessToken(token)
			if err != nil {
				ctx := context.WithValue(r.Context(), authErrKey, error(err))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, r.WithContext(setUserID(r.Context(), claims.UserID)))
		})
	}
}
