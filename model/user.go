package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account holder. The password hash is never exposed
// in JSON responses.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// UpdateUser carries the fields a PATCH may change. The password hash is
// only set when the caller supplied a new password.
type UpdateUser struct {
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
}

// UserFilter narrows a user listing. Empty fields are ignored.
type UserFilter struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}
