package handler

import (
	"errors"
	"go-auth-api/common"
	"go-auth-api/service"
	"net/http"
)

func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

// errorStatus is the single place mapping service error kinds to HTTP
// responses. Handlers never hand-pick status codes per entity; they route
// every service error through toAppError.
var errorStatus = []struct {
	err     error
	code    int
	message string
}{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
	{service.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{service.ErrTokenNotFound, http.StatusUnauthorized, "Invalid token"},
	{service.ErrTokenExpired, http.StatusUnauthorized, "Token has expired"},
	{service.ErrTokenRevoked, http.StatusUnauthorized, "Token has been revoked"},
	{service.ErrRotationConflict, http.StatusConflict, "Token has already been rotated"},
}

// toAppError translates a service error into the transport response.
// Anything outside the table is an infrastructure failure: the caller gets
// a generic message while the underlying error is logged in full by Send.
func toAppError(err error) *common.AppError {
	for _, entry := range errorStatus {
		if errors.Is(err, entry.err) {
			return common.NewAppError(entry.code, entry.message, err)
		}
	}
	return common.NewAppError(http.StatusInternalServerError, "Internal server error", err)
}
