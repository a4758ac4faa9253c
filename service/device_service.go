package service

import (
	"context"
	"database/sql"
	"device-management-api/model"
	"device-management-api/repository"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrDeviceNotFound  = errors.New("device not found")
	ErrDeviceNameTaken = errors.New("device with this name already exists")
	ErrDeviceForbidden = errors.New("device belongs to another user")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	deviceCacheTTL  = 10 * time.Minute
)

// DeviceService handles device business logic with a Redis cache in front of
// the active-device listings.
type DeviceService struct {
	repo  repository.IDeviceRepository
	cache ICacheClient
}

// NewDeviceService creates a new DeviceService.
func NewDeviceService(repo repository.IDeviceRepository, cache ICacheClient) *DeviceService {
	return &DeviceService{repo: repo, cache: cache}
}

// deviceCacheKey scopes cached listings: one entry per user plus one for the
// admin all-users view.
func deviceCacheKey(userID int) string {
	if userID == 0 {
		return "devices:all"
	}
	return fmt.Sprintf("devices:user:%d", userID)
}

// listScope resolves whose devices the caller may see: admins see everything,
// everyone else only their own records.
func listScope(userID int, role model.Role) int {
	if role == model.RoleAdmin {
		return 0
	}
	return userID
}

// CreateDevice registers a new device owned by the caller and invalidates the
// affected listing caches.
func (s *DeviceService) CreateDevice(userID int, name, description string) (*model.Device, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if description == "" {
		description = "No description"
	}

	taken, err := s.repo.ExistsByName(name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDeviceNameTaken
	}

	device := &model.Device{
		DeviceName:  name,
		Description: description,
		UserID:      userID,
	}
	if err := s.repo.CreateDevice(device); err != nil {
		return nil, err
	}

	s.invalidateListings(userID)
	return device, nil
}

// ListDevices returns a page of devices visible to the caller. The first page
// of active devices is served cache-aside; deleted listings and later pages
// always hit the store.
func (s *DeviceService) ListDevices(userID int, role model.Role, deleted bool, page, limit int) ([]*model.Device, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	scope := listScope(userID, role)

	cacheable := !deleted && page == 1 && limit == defaultPageSize
	cacheKey := deviceCacheKey(scope)
	ctx := context.Background()

	if cacheable {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var devices []*model.Device
			if err := json.Unmarshal([]byte(cached), &devices); err == nil {
				return devices, nil
			}
		}
	}

	devices, err := s.repo.ListDevices(scope, deleted, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if data, err := json.Marshal(devices); err == nil {
			s.cache.Set(ctx, cacheKey, data, deviceCacheTTL)
		}
	}
	return devices, nil
}

// GetDevice fetches one device, enforcing ownership for non-admin callers.
func (s *DeviceService) GetDevice(id, userID int, role model.Role) (*model.Device, error) {
	device, err := s.repo.GetDeviceByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	if role != model.RoleAdmin && device.UserID != userID {
		return nil, ErrDeviceForbidden
	}
	return device, nil
}

// UpdateDevice renames a device and/or changes its description.
func (s *DeviceService) UpdateDevice(id, userID int, role model.Role, name, description string) (*model.Device, error) {
	device, err := s.GetDevice(id, userID, role)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if !strings.EqualFold(name, device.DeviceName) {
		taken, err := s.repo.ExistsByName(name)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDeviceNameTaken
		}
	}

	device.DeviceName = name
	device.Description = strings.TrimSpace(description)
	if device.Description == "" {
		device.Description = "No description"
	}

	if err := s.repo.UpdateDevice(device); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	s.invalidateListings(device.UserID)
	return device, nil
}

// DeleteDevice soft-deletes a device; the record remains restorable.
func (s *DeviceService) DeleteDevice(id, userID int, role model.Role) (*model.Device, error) {
	device, err := s.GetDevice(id, userID, role)
	if err != nil {
		return nil, err
	}

	deleted, err := s.repo.SoftDeleteDevice(id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, ErrDeviceNotFound
	}

	s.invalidateListings(device.UserID)
	return device, nil
}

// RestoreDevice reverses a soft delete.
func (s *DeviceService) RestoreDevice(id int) (*model.Device, error) {
	restored, err := s.repo.RestoreDevice(id)
	if err != nil {
		return nil, err
	}
	if !restored {
		return nil, ErrDeviceNotFound
	}

	device, err := s.repo.GetDeviceByID(id)
	if err != nil {
		return nil, err
	}

	s.invalidateListings(device.UserID)
	return device, nil
}

// RestoreAllDevices reverses every soft delete at once. Returns the number
// of devices restored; zero restores surface as ErrDeviceNotFound so the
// handler can report that nothing was pending.
func (s *DeviceService) RestoreAllDevices() (int, error) {
	owners, err := s.repo.RestoreAllDevices()
	if err != nil {
		return 0, err
	}
	if len(owners) == 0 {
		return 0, ErrDeviceNotFound
	}

	keys := []string{deviceCacheKey(0)}
	seen := make(map[int]struct{})
	for _, owner := range owners {
		if _, ok := seen[owner]; ok {
			continue
		}
		seen[owner] = struct{}{}
		keys = append(keys, deviceCacheKey(owner))
	}
	s.cache.Del(context.Background(), keys...)
	return len(owners), nil
}

// PurgeDevice removes a device permanently, bypassing the soft-delete
// safety net. Returns the purged record for the change announcement.
func (s *DeviceService) PurgeDevice(id int) (*model.Device, error) {
	device, err := s.repo.GetDeviceByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	purged, err := s.repo.HardDeleteDevice(id)
	if err != nil {
		return nil, err
	}
	if !purged {
		return nil, ErrDeviceNotFound
	}

	s.invalidateListings(device.UserID)
	return device, nil
}

func (s *DeviceService) invalidateListings(ownerID int) {
	s.cache.Del(context.Background(), deviceCacheKey(0), deviceCacheKey(ownerID))
}
