package handler

import (
	"context"
	"go-auth-api/common"
	"go-auth-api/service"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserIDKey  contextKey = "userID"
	TokenIDKey contextKey = "tokenID"
)

// AuthMiddleware validates the presented bearer token against its stored
// record. Expiry and revocation are decided by the persisted row, so a
// rotated or revoked token is rejected immediately, not at its natural
// expiry.
func AuthMiddleware(tokenService *service.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				err := common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil)
				err.Send(w)
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				err := common.NewAppError(http.StatusUnauthorized, "Invalid authorization header format", nil)
				err.Send(w)
				return
			}

			token, err := tokenService.Validate(r.Context(), headerParts[1])
			if err != nil {
				toAppError(err).Send(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, token.UserID)
			ctx = context.WithValue(ctx, TokenIDKey, token.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
