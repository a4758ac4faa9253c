package model

import "time"

// Device is a managed device record. Deletion is soft: DeletedAt is set and
// the row keeps existing so it can be restored.
type Device struct {
	ID          int        `json:"id"`
	DeviceName  string     `json:"device_name"`
	Description string     `json:"description"`
	UserID      int        `json:"user_id"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
