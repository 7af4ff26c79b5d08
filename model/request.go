package model

// RegisterRequest defines the payload for creating a new user.
// It includes validation tags to ensure data integrity at the entry point.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest defines the payload for user authentication.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// PatchUserRequest defines the payload for partially updating a user.
// Nil fields are left unchanged.
type PatchUserRequest struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8"`
}

// CreateTokenRequest defines the payload for issuing a new bearer token.
type CreateTokenRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// RefreshTokenRequest carries the raw token being exchanged for a new one.
type RefreshTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// TokenResponse is returned at issuance and rotation. Token carries the raw
// one-time secret; it is not recoverable from the stored record afterward.
type TokenResponse struct {
	Token  string `json:"token"`
	Record *Token `json:"record"`
}
