// file: repository/token_repository_test.go

package repository

import (
	"database/sql"
	"device-management-api/logger"
	"device-management-api/model"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func TestTokenRepository_Rotate(t *testing.T) {
	revokeQuery := regexp.QuoteMeta(`UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3, replaced_by = $4`)
	insertQuery := regexp.QuoteMeta(`INSERT INTO refresh_tokens (user_id, token_hash, created_by_ip, expires_at)`)

	now := time.Now().UTC()
	next := func() *model.RefreshToken {
		return &model.RefreshToken{
			UserID:      1,
			TokenHash:   "new-hash",
			CreatedByIP: "10.0.0.1",
			ExpiresAt:   now.Add(7 * 24 * time.Hour),
		}
	}

	t.Run("revokes old and inserts successor in one transaction", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewTokenRepository(db)

		token := next()
		dbMock.ExpectBegin()
		dbMock.ExpectExec(revokeQuery).
			WithArgs("old-hash", now, "10.0.0.1", "new-hash").
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbMock.ExpectQuery(insertQuery).
			WithArgs(token.UserID, token.TokenHash, token.CreatedByIP, token.ExpiresAt).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, now))
		dbMock.ExpectCommit()

		err = repo.Rotate("old-hash", now, "10.0.0.1", token)

		assert.NoError(t, err)
		assert.Equal(t, 42, token.ID)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("loses the compare-and-set when already revoked", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewTokenRepository(db)

		// Zero rows updated: a concurrent rotation committed first.
		dbMock.ExpectBegin()
		dbMock.ExpectExec(revokeQuery).
			WithArgs("old-hash", now, "10.0.0.1", "new-hash").
			WillReturnResult(sqlmock.NewResult(0, 0))
		dbMock.ExpectRollback()

		err = repo.Rotate("old-hash", now, "10.0.0.1", next())

		assert.ErrorIs(t, err, ErrTokenAlreadyRevoked)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("rolls back when the insert fails", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewTokenRepository(db)

		dbMock.ExpectBegin()
		dbMock.ExpectExec(revokeQuery).
			WithArgs("old-hash", now, "10.0.0.1", "new-hash").
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbMock.ExpectQuery(insertQuery).
			WillReturnError(sql.ErrConnDone)
		dbMock.ExpectRollback()

		err = repo.Rotate("old-hash", now, "10.0.0.1", next())

		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrTokenAlreadyRevoked)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestTokenRepository_Revoke_Idempotent(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepository(db)

	now := time.Now().UTC()
	revokeQuery := regexp.QuoteMeta(`UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3`)

	dbMock.ExpectExec(revokeQuery).
		WithArgs("hash", now, "10.0.0.1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectExec(revokeQuery).
		WithArgs("hash", now, "10.0.0.1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	revoked, err := repo.Revoke("hash", now, "10.0.0.1")
	assert.NoError(t, err)
	assert.True(t, revoked)

	// Second call touches nothing and still succeeds.
	revoked, err = repo.Revoke("hash", now, "10.0.0.1")
	assert.NoError(t, err)
	assert.False(t, revoked)

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTokenRepository_GetByTokenHash(t *testing.T) {
	selectQuery := regexp.QuoteMeta(`SELECT id, user_id, token_hash, created_at, created_by_ip, expires_at, revoked_at, revoked_by_ip, replaced_by`)
	columns := []string{"id", "user_id", "token_hash", "created_at", "created_by_ip", "expires_at", "revoked_at", "revoked_by_ip", "replaced_by"}

	t.Run("active token", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewTokenRepository(db)

		now := time.Now().UTC()
		dbMock.ExpectQuery(selectQuery).
			WithArgs("hash").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(1, 7, "hash", now, "10.0.0.1", now.Add(time.Hour), nil, nil, nil))

		token, err := repo.GetByTokenHash("hash")

		require.NoError(t, err)
		assert.Equal(t, 7, token.UserID)
		assert.True(t, token.IsActive(now))
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("revoked token with successor", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewTokenRepository(db)

		now := time.Now().UTC()
		revokedAt := now.Add(-time.Minute)
		dbMock.ExpectQuery(selectQuery).
			WithArgs("hash").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(1, 7, "hash", now.Add(-time.Hour), "10.0.0.1", now.Add(time.Hour), revokedAt, "10.0.0.2", "next-hash"))

		token, err := repo.GetByTokenHash("hash")

		require.NoError(t, err)
		assert.True(t, token.IsRevoked())
		assert.Equal(t, "next-hash", token.ReplacedBy)
		assert.Equal(t, "10.0.0.2", token.RevokedByIP)
	})

	t.Run("unknown token", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewTokenRepository(db)

		dbMock.ExpectQuery(selectQuery).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err = repo.GetByTokenHash("missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestTokenRepository_RevokeAllForUser(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepository(db)

	now := time.Now().UTC()
	query := regexp.QuoteMeta(`UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3`)
	dbMock.ExpectExec(query).
		WithArgs(7, now, "203.0.113.9").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.RevokeAllForUser(7, now, "203.0.113.9")

	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}
