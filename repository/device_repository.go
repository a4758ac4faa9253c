package repository

import (
	"database/sql"
	"device-management-api/logger"
	"device-management-api/model"
	"time"

	"github.com/sirupsen/logrus"
)

// IDeviceRepository defines the contract for device database operations.
type IDeviceRepository interface {
	CreateDevice(device *model.Device) error
	GetDeviceByID(id int) (*model.Device, error)
	ListDevices(userID int, deleted bool, limit, offset int) ([]*model.Device, error)
	ExistsByName(name string) (bool, error)
	UpdateDevice(device *model.Device) error
	SoftDeleteDevice(id int, deletedAt time.Time) (bool, error)
	RestoreDevice(id int) (bool, error)
	RestoreAllDevices() ([]int, error)
	HardDeleteDevice(id int) (bool, error)
}

// DeviceRepository implements IDeviceRepository.
type DeviceRepository struct {
	DB *sql.DB
}

func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{DB: db}
}

// CreateDevice adds a new device to the database.
func (r *DeviceRepository) CreateDevice(device *model.Device) error {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":     device.UserID,
		"device_name": device.DeviceName,
	})
	log.Info("Executing query to create a new device")

	query := `INSERT INTO devices (device_name, description, user_id) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.DB.QueryRow(query, device.DeviceName, device.Description, device.UserID).Scan(&device.ID, &device.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create device query")
		return err
	}
	return nil
}

func (r *DeviceRepository) GetDeviceByID(id int) (*model.Device, error) {
	device := &model.Device{}
	query := `SELECT id, device_name, description, user_id, created_at, deleted_at FROM devices WHERE id = $1`
	err := r.DB.QueryRow(query, id).Scan(
		&device.ID, &device.DeviceName, &device.Description, &device.UserID, &device.CreatedAt, &device.DeletedAt,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithError(err).WithField("device_id", id).Error("Failed to execute get device by id query")
		}
		return nil, err
	}
	return device, nil
}

// ListDevices retrieves devices, paged. userID 0 means all users (admin view);
// deleted selects the soft-deleted partition instead of the active one.
func (r *DeviceRepository) ListDevices(userID int, deleted bool, limit, offset int) ([]*model.Device, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"deleted": deleted,
	})
	log.Info("Executing query to list devices")

	query := `SELECT id, device_name, description, user_id, created_at, deleted_at FROM devices
	          WHERE ($1 = 0 OR user_id = $1)
	            AND (($2 AND deleted_at IS NOT NULL) OR (NOT $2 AND deleted_at IS NULL))
	          ORDER BY id
	          LIMIT $3 OFFSET $4`
	rows, err := r.DB.Query(query, userID, deleted, limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to execute list devices query")
		return nil, err
	}
	defer rows.Close()

	var devices []*model.Device
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.ID, &d.DeviceName, &d.Description, &d.UserID, &d.CreatedAt, &d.DeletedAt); err != nil {
			log.WithError(err).Error("Failed to scan device row")
			return nil, err
		}
		devices = append(devices, &d)
	}
	return devices, rows.Err()
}

// ExistsByName reports whether an active device with this name exists.
// Comparison is case-insensitive on the trimmed name.
func (r *DeviceRepository) ExistsByName(name string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM devices WHERE lower(device_name) = lower($1) AND deleted_at IS NULL)`
	if err := r.DB.QueryRow(query, name).Scan(&exists); err != nil {
		logger.Log.WithError(err).Error("Failed to execute device name existence query")
		return false, err
	}
	return exists, nil
}

func (r *DeviceRepository) UpdateDevice(device *model.Device) error {
	query := `UPDATE devices SET device_name = $2, description = $3 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.DB.Exec(query, device.ID, device.DeviceName, device.Description)
	if err != nil {
		logger.Log.WithError(err).WithField("device_id", device.ID).Error("Failed to execute update device query")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDeleteDevice stamps deleted_at; the row stays for restore.
func (r *DeviceRepository) SoftDeleteDevice(id int, deletedAt time.Time) (bool, error) {
	query := `UPDATE devices SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.DB.Exec(query, id, deletedAt)
	if err != nil {
		logger.Log.WithError(err).WithField("device_id", id).Error("Failed to execute soft delete device query")
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RestoreAllDevices clears deleted_at on every soft-deleted device and
// returns the owner ID of each restored row.
func (r *DeviceRepository) RestoreAllDevices() ([]int, error) {
	query := `UPDATE devices SET deleted_at = NULL WHERE deleted_at IS NOT NULL RETURNING user_id`
	rows, err := r.DB.Query(query)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute restore all devices query")
		return nil, err
	}
	defer rows.Close()

	var owners []int
	for rows.Next() {
		var userID int
		if err := rows.Scan(&userID); err != nil {
			logger.Log.WithError(err).Error("Failed to scan restored device owner")
			return nil, err
		}
		owners = append(owners, userID)
	}
	return owners, rows.Err()
}

// HardDeleteDevice removes the row outright, soft-deleted or not. There is
// no restore after this.
func (r *DeviceRepository) HardDeleteDevice(id int) (bool, error) {
	query := `DELETE FROM devices WHERE id = $1`
	res, err := r.DB.Exec(query, id)
	if err != nil {
		logger.Log.WithError(err).WithField("device_id", id).Error("Failed to execute hard delete device query")
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RestoreDevice clears deleted_at on a soft-deleted device.
func (r *DeviceRepository) RestoreDevice(id int) (bool, error) {
	query := `UPDATE devices SET deleted_at = NULL WHERE id = $1 AND deleted_at IS NOT NULL`
	res, err := r.DB.Exec(query, id)
	if err != nil {
		logger.Log.WithError(err).WithField("device_id", id).Error("Failed to execute restore device query")
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
