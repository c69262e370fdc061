package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/diagnosis/bookfair-stalls/pkg/auth"
	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	"github.com/diagnosis/bookfair-stalls/pkg/response"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireJWT authenticates the bearer token and, when capability is non-empty,
// checks the token's role against the policy table.
func RequireJWT(secret string, capability auth.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}

			claims, err := auth.Parse(strings.TrimPrefix(authHeader, "Bearer "), secret)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "Invalid token", response.CodeInvalidToken)
				return
			}

			if capability != "" && !auth.Allows(claims.Role, capability) {
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
			ctx = context.WithValue(ctx, CtxClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Claims returns the claims stored by RequireJWT, or nil.
func Claims(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(CtxClaims).(*auth.Claims)
	return claims
}
