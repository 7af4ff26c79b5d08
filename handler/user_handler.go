package handler

import (
	"encoding/json"
	"go-auth-api/common"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/service"
	"net/http"

	"github.com/google/uuid"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// CreateUser godoc
// @Summary      Create a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body model.RegisterRequest true "New user"
// @Success      200 {object} model.User
// @Router       /v1/users [post]
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		return toAppError(err)
	}

	writeJSON(w, http.StatusOK, user)
	return nil
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid user id", err)
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		return toAppError(err)
	}

	writeJSON(w, http.StatusOK, user)
	return nil
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) *common.AppError {
	filter := model.UserFilter{
		Username: r.URL.Query().Get("username"),
		Email:    r.URL.Query().Get("email"),
	}

	users, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		return toAppError(err)
	}
	if users == nil {
		users = []*model.User{}
	}

	writeJSON(w, http.StatusOK, users)
	return nil
}

func (h *UserHandler) PatchUser(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid user id", err)
	}

	var req model.PatchUserRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	user, err := h.service.PatchUser(r.Context(), id, req)
	if err != nil {
		return toAppError(err)
	}

	writeJSON(w, http.StatusOK, user)
	return nil
}

// Login godoc
// @Summary      Authenticate with username and password
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body model.LoginRequest true "Credentials"
// @Success      200 {object} model.User
// @Failure      401 {object} common.AppError
// @Router       /v1/users/login [post]
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	logger.Log.WithField("username", req.Username).Info("Login request received")

	user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		return toAppError(err)
	}

	writeJSON(w, http.StatusOK, user)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
