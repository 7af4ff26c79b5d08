package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/repository"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password, so a caller cannot enumerate usernames from the response.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

const (
	userListCacheKey = "users:list"
	userListCacheTTL = 5 * time.Minute
)

// UserService handles user-related business logic.
type UserService struct {
	userRepo    repository.IUserRepository
	passwordSvc *PasswordService
	cache       ICacheClient
}

func NewUserService(userRepo repository.IUserRepository, passwordSvc *PasswordService, cache ICacheClient) *UserService {
	return &UserService{
		userRepo:    userRepo,
		passwordSvc: passwordSvc,
		cache:       cache,
	}
}

// Register hashes the password and creates the user. The plaintext never
// reaches the repository.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	hashed, err := s.passwordSvc.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
		IsAdmin:      false,
	}
	if err := s.userRepo.CreateUser(user); err != nil {
		return nil, err
	}

	s.invalidateListCache(ctx)
	logger.Log.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// Login authenticates a username/password pair. An unknown username and a
// wrong password return the same error; the two cases are only told apart
// in the server-side logs.
func (s *UserService) Login(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Log.WithField("username", username).Warn("Login attempt for unknown username")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.passwordSvc.CheckPasswordHash(password, user.PasswordHash) {
		logger.Log.WithField("user_id", user.ID).Warn("Login attempt with wrong password")
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetUserByID(id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns users matching the filter. The unfiltered listing is
// served from Redis when possible; write paths invalidate the key.
func (s *UserService) ListUsers(ctx context.Context, filter model.UserFilter) ([]*model.User, error) {
	cacheable := filter.Username == "" && filter.Email == "" && s.cache != nil

	if cacheable {
		cached, err := s.cache.Get(ctx, userListCacheKey).Result()
		if err == nil {
			var users []*model.User
			if jsonErr := json.Unmarshal([]byte(cached), &users); jsonErr == nil {
				logger.Log.Debug("User list served from cache")
				return users, nil
			}
		} else if err != redis.Nil {
			logger.Log.WithError(err).Warn("Failed to read user list from cache")
		}
	}

	users, err := s.userRepo.GetAllUsers(filter)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if data, err := json.Marshal(users); err == nil {
			if err := s.cache.Set(ctx, userListCacheKey, data, userListCacheTTL).Err(); err != nil {
				logger.Log.WithError(err).Warn("Failed to cache user list")
			}
		}
	}

	return users, nil
}

// PatchUser applies a partial update. A supplied password is re-hashed;
// absent fields keep their stored values.
func (s *UserService) PatchUser(ctx context.Context, id uuid.UUID, req model.PatchUserRequest) (*model.User, error) {
	user, err := s.userRepo.GetUserByID(id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	changes := model.UpdateUser{
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		IsAdmin:      user.IsAdmin,
	}
	if req.Username != nil {
		changes.Username = *req.Username
	}
	if req.Email != nil {
		changes.Email = *req.Email
	}
	if req.Password != nil {
		hashed, err := s.passwordSvc.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		changes.PasswordHash = hashed
	}

	updated, err := s.userRepo.UpdateUser(id, changes)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	s.invalidateListCache(ctx)
	logger.Log.WithField("user_id", id).Info("User updated")
	return updated, nil
}

func (s *UserService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, userListCacheKey).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to invalidate user list cache")
	}
}
