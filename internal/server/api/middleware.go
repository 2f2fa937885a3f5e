package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/server/auth"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// requireAuth validates the bearer token and stores the parsed claims in
// the request context. Requests without a valid token never reach the
// wrapped handler.
func requireAuth(secret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, common.ErrorUnauthenticated)
			return
		}

		claims, err := auth.ParseToken(token, secret)
		if err != nil {
			writeError(w, common.ErrorUnauthenticated)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// callerID returns the authenticated subject id. Empty only if a handler
// was wired without requireAuth, which is a routing bug.
func callerID(ctx context.Context) string {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok {
		return ""
	}
	return claims.UserID
}
