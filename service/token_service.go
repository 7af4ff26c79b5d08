package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/repository"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenRevoked     = errors.New("token has been revoked")
	ErrRotationConflict = errors.New("token has already been rotated")
)

// TokenService owns the bearer token lifecycle: issuance, validation,
// rotation and revocation. Issuance and rotation run as single database
// transactions; two concurrent rotations of the same token serialize on a
// row lock and exactly one of them commits.
type TokenService struct {
	db        *sql.DB
	tokenRepo repository.ITokenRepository
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenService(db *sql.DB, tokenRepo repository.ITokenRepository, ttl time.Duration) *TokenService {
	return &TokenService{
		db:        db,
		tokenRepo: tokenRepo,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Issue mints a new bearer token for the user and persists its digest.
// The raw secret is returned exactly once; on any failure it is discarded
// and no partial state remains.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) (string, *model.Token, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":    userID,
		"ip_address": ipAddress,
	})
	log.Info("Issuing new token")

	raw, err := GenerateToken()
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	token := &model.Token{
		UserID:    userID,
		TokenHash: DigestToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.tokenRepo.Create(tx, token); err != nil {
		return "", nil, fmt.Errorf("could not create token record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("could not commit transaction: %w", err)
	}

	return raw, token, nil
}

// Validate decides whether a presented raw token is currently usable.
// It is a pure read: a single lookup against the unique token_hash index,
// then expiry and revocation checks on the returned row.
func (s *TokenService) Validate(ctx context.Context, raw string) (*model.Token, error) {
	token, err := s.tokenRepo.GetByTokenHash(DigestToken(raw))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	if token.Revoked() {
		return nil, ErrTokenRevoked
	}
	if s.now().After(token.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return token, nil
}

// Rotate atomically supersedes the presented token with a new one for the
// same user, IP and user agent. The old row is revoked and linked forward
// via replaced_by; the new row links backward via previous_token_id.
// Exactly one rotation may succeed per source token. A rotation attempt on
// a token that was already rotated is treated as replay evidence: every
// descendant of that token is revoked before the conflict is reported.
func (s *TokenService) Rotate(ctx context.Context, raw string) (string, *model.Token, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := s.tokenRepo.GetByHashForUpdate(tx, DigestToken(raw))
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil, ErrTokenNotFound
		}
		return "", nil, err
	}

	log := logger.Log.WithFields(logrus.Fields{
		"token_id": old.ID,
		"user_id":  old.UserID,
	})

	if old.ReplacedBy != nil {
		log.Warn("Rotation attempted on an already rotated token; revoking descendant chain")
		if err := s.revokeChainForward(tx, old); err != nil {
			return "", nil, err
		}
		if err := tx.Commit(); err != nil {
			return "", nil, fmt.Errorf("could not commit transaction: %w", err)
		}
		return "", nil, ErrRotationConflict
	}
	if old.Revoked() {
		log.Warn("Rotation attempted on a revoked token")
		return "", nil, ErrRotationConflict
	}
	if s.now().After(old.ExpiresAt) {
		return "", nil, ErrTokenExpired
	}

	newRaw, err := GenerateToken()
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	replacement := &model.Token{
		UserID:          old.UserID,
		TokenHash:       DigestToken(newRaw),
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.ttl),
		IPAddress:       old.IPAddress,
		UserAgent:       old.UserAgent,
		PreviousTokenID: &old.ID,
	}
	if err := s.tokenRepo.Create(tx, replacement); err != nil {
		return "", nil, fmt.Errorf("could not create replacement token: %w", err)
	}

	err = s.tokenRepo.Update(tx, old.ID, model.UpdateToken{
		ExpiresAt:  old.ExpiresAt,
		RevokedAt:  &now,
		ReplacedBy: &replacement.ID,
	})
	if err != nil {
		return "", nil, fmt.Errorf("could not retire old token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("could not commit transaction: %w", err)
	}

	log.WithField("replacement_id", replacement.ID).Info("Token rotated")
	return newRaw, replacement, nil
}

// revokeChainForward walks replaced_by links from the given token and
// revokes every live descendant. The chain is acyclic by construction;
// the visited set guards against corrupt data looping us anyway.
func (s *TokenService) revokeChainForward(tx *sql.Tx, from *model.Token) error {
	now := s.now()
	visited := map[uuid.UUID]bool{from.ID: true}

	next := from.ReplacedBy
	for next != nil && !visited[*next] {
		visited[*next] = true
		token, err := s.tokenRepo.GetByIDForUpdate(tx, *next)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return err
		}
		if !token.Revoked() {
			err = s.tokenRepo.Update(tx, token.ID, model.UpdateToken{
				ExpiresAt:  token.ExpiresAt,
				RevokedAt:  &now,
				ReplacedBy: token.ReplacedBy,
			})
			if err != nil {
				return err
			}
		}
		next = token.ReplacedBy
	}
	return nil
}

// Revoke marks the presented token unusable before its natural expiry.
// Revoking an already revoked token is a no-op.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	token, err := s.tokenRepo.GetByHashForUpdate(tx, DigestToken(raw))
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrTokenNotFound
		}
		return err
	}

	if !token.Revoked() {
		now := s.now()
		err = s.tokenRepo.Update(tx, token.ID, model.UpdateToken{
			ExpiresAt:  token.ExpiresAt,
			RevokedAt:  &now,
			ReplacedBy: token.ReplacedBy,
		})
		if err != nil {
			return fmt.Errorf("could not revoke token: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	logger.Log.WithField("token_id", token.ID).Info("Token revoked")
	return nil
}

// RevokeAllForUser revokes every live token the user holds. Used for
// logout-everywhere; records are retained for audit.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.tokenRepo.RevokeAllForUser(userID, s.now())
}

// Get returns a token record by id.
func (s *TokenService) Get(ctx context.Context, id uuid.UUID) (*model.Token, error) {
	token, err := s.tokenRepo.GetByID(id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return token, nil
}

// List returns token records matching the filter.
func (s *TokenService) List(ctx context.Context, filter model.TokenFilter) ([]*model.Token, error) {
	return s.tokenRepo.GetAll(filter)
}
