package repository

import (
	"database/sql"
	"device-management-api/logger"
	"device-management-api/model"
)

// INotificationRepository defines the contract for notification feed operations.
type INotificationRepository interface {
	CreateNotification(notification *model.Notification) error
	ListNotifications(userID int, limit int) ([]*model.Notification, error)
	MarkNotificationRead(id int) (bool, error)
}

// NotificationRepository implements INotificationRepository.
type NotificationRepository struct {
	DB *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) CreateNotification(notification *model.Notification) error {
	query := `INSERT INTO notifications (user_id, message) VALUES ($1, $2) RETURNING id, created_at`
	err := r.DB.QueryRow(query, notification.UserID, notification.Message).Scan(&notification.ID, &notification.CreatedAt)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", notification.UserID).Error("Failed to execute create notification query")
		return err
	}
	return nil
}

// ListNotifications returns the newest notifications. userID 0 means all
// users (admin view).
func (r *NotificationRepository) ListNotifications(userID int, limit int) ([]*model.Notification, error) {
	query := `SELECT id, user_id, message, is_read, created_at FROM notifications
	          WHERE ($1 = 0 OR user_id = $1)
	          ORDER BY created_at DESC
	          LIMIT $2`
	rows, err := r.DB.Query(query, userID, limit)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to execute list notifications query")
		return nil, err
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			logger.Log.WithError(err).Error("Failed to scan notification row")
			return nil, err
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flags a feed entry as read. Returns false when no
// such notification exists.
func (r *NotificationRepository) MarkNotificationRead(id int) (bool, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1`
	res, err := r.DB.Exec(query, id)
	if err != nil {
		logger.Log.WithError(err).WithField("notification_id", id).Error("Failed to execute mark notification read query")
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
