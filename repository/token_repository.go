package repository

import (
	"database/sql"
	"fmt"
	"go-auth-api/logger"
	"go-auth-api/model"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ITokenRepository defines the contract for token database operations.
// Token rows are append-and-update only; revoked tokens are retained for
// audit, never deleted. The *sql.Tx variants participate in the rotation
// transaction so that at most one rotation of a given token can commit.
type ITokenRepository interface {
	Create(tx *sql.Tx, token *model.Token) error
	GetByID(id uuid.UUID) (*model.Token, error)
	GetByIDForUpdate(tx *sql.Tx, id uuid.UUID) (*model.Token, error)
	GetByHashForUpdate(tx *sql.Tx, tokenHash string) (*model.Token, error)
	GetByTokenHash(tokenHash string) (*model.Token, error)
	GetAll(filter model.TokenFilter) ([]*model.Token, error)
	Update(tx *sql.Tx, id uuid.UUID, changes model.UpdateToken) error
	RevokeAllForUser(userID uuid.UUID, at time.Time) (int64, error)
}

// TokenRepository implements ITokenRepository.
type TokenRepository struct {
	DB *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

const tokenColumns = `id, user_id, token_hash, created_at, expires_at, revoked_at, ip_address, user_agent, replaced_by, previous_token_id`

func scanToken(row *sql.Row) (*model.Token, error) {
	token := &model.Token{}
	err := row.Scan(&token.ID, &token.UserID, &token.TokenHash, &token.CreatedAt, &token.ExpiresAt,
		&token.RevokedAt, &token.IPAddress, &token.UserAgent, &token.ReplacedBy, &token.PreviousTokenID)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Create inserts a new token record within the given transaction.
func (r *TokenRepository) Create(tx *sql.Tx, token *model.Token) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":    token.UserID,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Executing query to create a new token")

	query := `INSERT INTO tokens (user_id, token_hash, created_at, expires_at, ip_address, user_agent, previous_token_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := tx.QueryRow(query, token.UserID, token.TokenHash, token.CreatedAt, token.ExpiresAt,
		token.IPAddress, token.UserAgent, token.PreviousTokenID).Scan(&token.ID)
	if err != nil {
		log.WithError(err).Error("Failed to execute create token query")
		return err
	}
	return nil
}

func (r *TokenRepository) GetByID(id uuid.UUID) (*model.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = $1`
	return scanToken(r.DB.QueryRow(query, id))
}

// GetByIDForUpdate locks the token row for the duration of the transaction.
func (r *TokenRepository) GetByIDForUpdate(tx *sql.Tx, id uuid.UUID) (*model.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = $1 FOR UPDATE`
	return scanToken(tx.QueryRow(query, id))
}

// GetByHashForUpdate locks the token row matching the digest for the
// duration of the transaction. Concurrent rotations of the same token
// serialize on this lock; the loser observes the committed replaced_by.
func (r *TokenRepository) GetByHashForUpdate(tx *sql.Tx, tokenHash string) (*model.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token_hash = $1 FOR UPDATE`
	return scanToken(tx.QueryRow(query, tokenHash))
}

// GetByTokenHash retrieves a token by its digest. token_hash is uniquely
// indexed; this is the single lookup on the authenticated request path.
func (r *TokenRepository) GetByTokenHash(tokenHash string) (*model.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token_hash = $1`
	token, err := scanToken(r.DB.QueryRow(query, tokenHash))
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).Error("Failed to execute get token by hash query")
		}
		return nil, err
	}
	return token, nil
}

func (r *TokenRepository) GetAll(filter model.TokenFilter) ([]*model.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens`
	args := []interface{}{}
	where := ""

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		where = fmt.Sprintf(" WHERE user_id = $%d", len(args))
	}
	if filter.IPAddress != "" {
		args = append(args, filter.IPAddress)
		if where == "" {
			where = fmt.Sprintf(" WHERE ip_address = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND ip_address = $%d", len(args))
		}
	}

	rows, err := r.DB.Query(query+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*model.Token
	for rows.Next() {
		token := &model.Token{}
		if err := rows.Scan(&token.ID, &token.UserID, &token.TokenHash, &token.CreatedAt, &token.ExpiresAt,
			&token.RevokedAt, &token.IPAddress, &token.UserAgent, &token.ReplacedBy, &token.PreviousTokenID); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// Update applies a partial change to a token row within the transaction.
func (r *TokenRepository) Update(tx *sql.Tx, id uuid.UUID, changes model.UpdateToken) error {
	log := logger.Log.WithField("token_id", id)
	log.Info("Executing query to update token")

	query := `UPDATE tokens SET expires_at = $1, revoked_at = $2, replaced_by = $3 WHERE id = $4`
	_, err := tx.Exec(query, changes.ExpiresAt, changes.RevokedAt, changes.ReplacedBy, id)
	if err != nil {
		log.WithError(err).Error("Failed to execute update token query")
		return err
	}
	return nil
}

// RevokeAllForUser marks every live token belonging to the user as revoked.
// Rows are kept for audit; nothing is deleted.
func (r *TokenRepository) RevokeAllForUser(userID uuid.UUID, at time.Time) (int64, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to revoke all tokens for a user")

	query := `UPDATE tokens SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL`
	res, err := r.DB.Exec(query, at, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke tokens query")
		return 0, err
	}
	return res.RowsAffected()
}
