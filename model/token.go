package model

import (
	"time"

	"github.com/google/uuid"
)

// Token holds a persisted bearer token record. Only the SHA-256 digest of
// the secret is stored; the raw secret is shown to the caller exactly once,
// at issuance. ReplacedBy and PreviousTokenID link the rotation chain in
// both directions.
type Token struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	TokenHash       string     `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
	IPAddress       string     `json:"ip_address"`
	UserAgent       string     `json:"user_agent"`
	ReplacedBy      *uuid.UUID `json:"replaced_by,omitempty"`
	PreviousTokenID *uuid.UUID `json:"previous_token_id,omitempty"`
}

// Revoked reports whether the token has been marked unusable, regardless
// of its expiry.
func (t *Token) Revoked() bool {
	return t.RevokedAt != nil
}

// UpdateToken carries the mutable token columns. Rows are never deleted;
// rotation and revocation only ever set RevokedAt and ReplacedBy.
type UpdateToken struct {
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *uuid.UUID
}

// TokenFilter narrows a token listing. Nil/empty fields are ignored.
type TokenFilter struct {
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	IPAddress string     `json:"ip_address,omitempty"`
}
