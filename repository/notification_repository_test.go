package repository

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository_ListNotifications(t *testing.T) {
	selectQuery := regexp.QuoteMeta(`SELECT id, user_id, message, is_read, created_at FROM notifications`)
	columns := []string{"id", "user_id", "message", "is_read", "created_at"}

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewNotificationRepository(db)

	now := time.Now()
	dbMock.ExpectQuery(selectQuery).
		WithArgs(3, 50).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, 3, "alice added device \"Camera\"", false, now).
			AddRow(1, 3, "alice added device \"Thermostat\"", true, now.Add(-time.Minute)))

	notifications, err := repo.ListNotifications(3, 50)

	require.NoError(t, err)
	require.Len(t, notifications, 2)
	assert.False(t, notifications[0].IsRead)
	assert.True(t, notifications[1].IsRead)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestNotificationRepository_MarkNotificationRead(t *testing.T) {
	updateQuery := regexp.QuoteMeta(`UPDATE notifications SET is_read = TRUE WHERE id = $1`)

	t.Run("marks existing entry", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewNotificationRepository(db)

		dbMock.ExpectExec(updateQuery).
			WithArgs(2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		marked, err := repo.MarkNotificationRead(2)

		require.NoError(t, err)
		assert.True(t, marked)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("unknown id", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewNotificationRepository(db)

		dbMock.ExpectExec(updateQuery).
			WithArgs(99).
			WillReturnResult(sqlmock.NewResult(0, 0))

		marked, err := repo.MarkNotificationRead(99)

		require.NoError(t, err)
		assert.False(t, marked)
	})
}
