// file: repository/token_repository.go

package repository

import (
	"database/sql"
	"device-management-api/logger"
	"device-management-api/model"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrTokenAlreadyRevoked is returned by Rotate when the conditional update
// touches zero rows: a concurrent rotation (or an explicit revoke) got to
// the token first.
var ErrTokenAlreadyRevoked = errors.New("refresh token already revoked")

// ITokenRepository defines the contract for refresh token database operations.
type ITokenRepository interface {
	Create(token *model.RefreshToken) error
	GetByTokenHash(tokenHash string) (*model.RefreshToken, error)
	Rotate(oldTokenHash string, revokedAt time.Time, revokedByIP string, next *model.RefreshToken) error
	Revoke(tokenHash string, revokedAt time.Time, revokedByIP string) (bool, error)
	RevokeAllForUser(userID int, revokedAt time.Time, revokedByIP string) (int64, error)
}

// TokenRepository implements ITokenRepository.
type TokenRepository struct {
	DB *sql.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

// Create inserts a new refresh token record into the database.
func (r *TokenRepository) Create(token *model.RefreshToken) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":    token.UserID,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Executing query to create a new refresh token")

	query := `INSERT INTO refresh_tokens (user_id, token_hash, created_by_ip, expires_at) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := r.DB.QueryRow(query, token.UserID, token.TokenHash, token.CreatedByIP, token.ExpiresAt).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create refresh token query")
		return err
	}
	return nil
}

// GetByTokenHash retrieves a refresh token by its hashed value.
func (r *TokenRepository) GetByTokenHash(tokenHash string) (*model.RefreshToken, error) {
	token := &model.RefreshToken{}
	var revokedByIP, replacedBy sql.NullString
	query := `SELECT id, user_id, token_hash, created_at, created_by_ip, expires_at, revoked_at, revoked_by_ip, replaced_by
	          FROM refresh_tokens WHERE token_hash = $1`
	err := r.DB.QueryRow(query, tokenHash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.CreatedAt, &token.CreatedByIP,
		&token.ExpiresAt, &token.RevokedAt, &revokedByIP, &replacedBy,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).Error("Failed to execute get refresh token by hash query")
		}
		return nil, err // Return sql.ErrNoRows if not found
	}
	token.RevokedByIP = revokedByIP.String
	token.ReplacedBy = replacedBy.String
	return token, nil
}

// Rotate revokes the old token and inserts its successor in one transaction.
// The revoke is a compare-and-set on "not yet revoked": of two concurrent
// rotations presenting the same old token, exactly one commits; the other
// gets ErrTokenAlreadyRevoked.
func (r *TokenRepository) Rotate(oldTokenHash string, revokedAt time.Time, revokedByIP string, next *model.RefreshToken) error {
	log := logger.Log.WithField("user_id", next.UserID)
	log.Info("Executing rotation transaction for refresh token")

	tx, err := r.DB.Begin()
	if err != nil {
		log.WithError(err).Error("Failed to begin rotation transaction")
		return err
	}
	defer tx.Rollback()

	revokeQuery := `UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3, replaced_by = $4
	                WHERE token_hash = $1 AND revoked_at IS NULL`
	res, err := tx.Exec(revokeQuery, oldTokenHash, revokedAt, revokedByIP, next.TokenHash)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke step of rotation")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTokenAlreadyRevoked
	}

	insertQuery := `INSERT INTO refresh_tokens (user_id, token_hash, created_by_ip, expires_at) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err = tx.QueryRow(insertQuery, next.UserID, next.TokenHash, next.CreatedByIP, next.ExpiresAt).Scan(&next.ID, &next.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute insert step of rotation")
		return err
	}

	if err := tx.Commit(); err != nil {
		log.WithError(err).Error("Failed to commit rotation transaction")
		return fmt.Errorf("failed to commit rotation: %w", err)
	}
	return nil
}

// Revoke marks a token revoked if it is not already. It reports whether a
// row was updated; revoking an already-revoked token is a no-op, not an error.
func (r *TokenRepository) Revoke(tokenHash string, revokedAt time.Time, revokedByIP string) (bool, error) {
	query := `UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3
	          WHERE token_hash = $1 AND revoked_at IS NULL`
	res, err := r.DB.Exec(query, tokenHash, revokedAt, revokedByIP)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute revoke refresh token query")
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RevokeAllForUser revokes every live token a user holds. Used as the
// defensive cascade when a revoked token is replayed.
func (r *TokenRepository) RevokeAllForUser(userID int, revokedAt time.Time, revokedByIP string) (int64, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Warn("Executing query to revoke all refresh tokens for a user")

	query := `UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3
	          WHERE user_id = $1 AND revoked_at IS NULL`
	res, err := r.DB.Exec(query, userID, revokedAt, revokedByIP)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke all refresh tokens query")
		return 0, err
	}
	return res.RowsAffected()
}
