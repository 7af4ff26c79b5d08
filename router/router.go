package router

import (
	"go-auth-api/handler"
	"go-auth-api/service"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func NewRouter(userHandler *handler.UserHandler, tokenHandler *handler.TokenHandler, tokenService *service.TokenService) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// User routes
	mux.Handle("POST /v1/users", handler.ErrorHandlingMiddleware(userHandler.CreateUser))
	mux.Handle("GET /v1/users", handler.ErrorHandlingMiddleware(userHandler.ListUsers))
	mux.Handle("GET /v1/users/{id}", handler.ErrorHandlingMiddleware(userHandler.GetUser))
	mux.Handle("PATCH /v1/users/{id}", handler.ErrorHandlingMiddleware(userHandler.PatchUser))
	mux.Handle("POST /v1/users/login", handler.ErrorHandlingMiddleware(userHandler.Login))

	// Token routes. Listing and bulk revocation require a valid bearer token.
	auth := handler.AuthMiddleware(tokenService)
	mux.Handle("POST /v1/tokens", handler.ErrorHandlingMiddleware(tokenHandler.CreateToken))
	mux.Handle("POST /v1/tokens/refresh", handler.ErrorHandlingMiddleware(tokenHandler.RefreshToken))
	mux.Handle("POST /v1/tokens/revoke", handler.ErrorHandlingMiddleware(tokenHandler.RevokeToken))
	mux.Handle("POST /v1/tokens/revoke-all", auth(handler.ErrorHandlingMiddleware(tokenHandler.RevokeAllTokens)))
	mux.Handle("GET /v1/tokens", auth(handler.ErrorHandlingMiddleware(tokenHandler.ListTokens)))
	mux.Handle("GET /v1/tokens/{id}", auth(handler.ErrorHandlingMiddleware(tokenHandler.GetToken)))

	return mux
}
