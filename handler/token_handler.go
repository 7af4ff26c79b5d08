package handler

import (
	"errors"
	"go-auth-api/common"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/service"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type TokenHandler struct {
	tokenService *service.TokenService
	userService  *service.UserService
}

func NewTokenHandler(tokenService *service.TokenService, userService *service.UserService) *TokenHandler {
	return &TokenHandler{
		tokenService: tokenService,
		userService:  userService,
	}
}

// CreateToken godoc
// @Summary      Issue a new bearer token
// @Description  Returns the raw secret exactly once; only its digest is stored.
// @Tags         tokens
// @Accept       json
// @Produce      json
// @Param        request body model.CreateTokenRequest true "Token owner"
// @Success      200 {object} model.TokenResponse
// @Router       /v1/tokens [post]
func (h *TokenHandler) CreateToken(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.CreateTokenRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid user id", err)
	}

	if _, err := h.userService.GetUser(r.Context(), userID); err != nil {
		return toAppError(err)
	}

	log := logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"remote":  r.RemoteAddr,
	})
	log.Info("Token issuance request received")

	raw, record, err := h.tokenService.Issue(r.Context(), userID, clientIP(r), r.UserAgent())
	if err != nil {
		return toAppError(err)
	}

	writeJSON(w, http.StatusOK, model.TokenResponse{Token: raw, Record: record})
	return nil
}

// RefreshToken exchanges a live token for its replacement. A second
// exchange of the same token is a conflict, and a sign the secret leaked.
func (h *TokenHandler) RefreshToken(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshTokenRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	raw, record, err := h.tokenService.Rotate(r.Context(), req.Token)
	if err != nil {
		return toAppError(err)
	}

	writeJSON(w, http.StatusOK, model.TokenResponse{Token: raw, Record: record})
	return nil
}

// RevokeToken marks the presented token unusable.
func (h *TokenHandler) RevokeToken(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshTokenRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	if err := h.tokenService.Revoke(r.Context(), req.Token); err != nil {
		return toAppError(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// RevokeAllTokens revokes every live token held by the authenticated user.
func (h *TokenHandler) RevokeAllTokens(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	count, err := h.tokenService.RevokeAllForUser(r.Context(), userID)
	if err != nil {
		return toAppError(err)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"revoked": count,
	}).Info("Revoked all tokens for user")

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GetToken returns a single token record by id.
func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid token id", err)
	}

	token, err := h.tokenService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTokenNotFound) {
			return common.NewAppError(http.StatusNotFound, "Token not found", err)
		}
		return toAppError(err)
	}

	writeJSON(w, http.StatusOK, token)
	return nil
}

// ListTokens lists token records, optionally filtered by user and IP.
func (h *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) *common.AppError {
	filter := model.TokenFilter{
		IPAddress: r.URL.Query().Get("ip_address"),
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return common.NewAppError(http.StatusBadRequest, "Invalid user id filter", err)
		}
		filter.UserID = &userID
	}

	tokens, err := h.tokenService.List(r.Context(), filter)
	if err != nil {
		return toAppError(err)
	}
	if tokens == nil {
		tokens = []*model.Token{}
	}

	writeJSON(w, http.StatusOK, tokens)
	return nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
