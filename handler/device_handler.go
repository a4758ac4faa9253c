package handler

import (
	"device-management-api/common"
	"device-management-api/logger"
	"device-management-api/model"
	"device-management-api/repository"
	"device-management-api/service"
	"device-management-api/ws"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
)

type DeviceHandler struct {
	service       *service.DeviceService
	notifications repository.INotificationRepository
	hub           *ws.Hub
}

func NewDeviceHandler(service *service.DeviceService, notifications repository.INotificationRepository, hub *ws.Hub) *DeviceHandler {
	return &DeviceHandler{service: service, notifications: notifications, hub: hub}
}

func deviceErrToAppError(err error, action string) *common.AppError {
	switch {
	case errors.Is(err, service.ErrDeviceNotFound):
		return common.NewAppError(http.StatusNotFound, "Device not found", nil)
	case errors.Is(err, service.ErrDeviceNameTaken):
		return common.NewAppError(http.StatusBadRequest, "Device with this name already exists", nil)
	case errors.Is(err, service.ErrDeviceForbidden):
		return common.NewAppError(http.StatusForbidden, "Access denied. Device belongs to another user.", nil)
	default:
		return common.NewAppError(http.StatusInternalServerError, "Could not "+action+" device", err)
	}
}

// announce broadcasts a device change and appends it to the owner's
// notification feed. Neither failure aborts the request; the mutation has
// already committed.
func (h *DeviceHandler) announce(event string, device *model.Device, actorID int, actor string) {
	h.hub.Broadcast(event, map[string]interface{}{
		"device_id":   device.ID,
		"device_name": device.DeviceName,
		"actor":       actor,
	})

	notification := &model.Notification{
		UserID:  actorID,
		Message: fmt.Sprintf("%s %s device %q", actor, event, device.DeviceName),
	}
	if err := h.notifications.CreateNotification(notification); err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"event":     event,
			"device_id": device.ID,
		}).Error("Failed to record device notification")
	}
}

// ListDevices godoc
// @Summary      List devices visible to the caller
// @Tags         devices
// @Produce      json
// @Param        deleted query bool false "List soft-deleted devices"
// @Param        page query int false "Page number"
// @Param        limit query int false "Page size"
// @Success      200 {array} model.Device
// @Router       /api/devices [get]
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, _, role, ok := callerFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user identity in token", nil)
	}

	deleted := r.URL.Query().Get("deleted") == "true"
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	devices, err := h.service.ListDevices(userID, role, deleted, page, limit)
	if err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Could not retrieve devices", err)
	}
	if devices == nil {
		devices = []*model.Device{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(devices)
	return nil
}

func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, _, role, ok := callerFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user identity in token", nil)
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid device ID", nil)
	}

	device, err := h.service.GetDevice(id, userID, role)
	if err != nil {
		return deviceErrToAppError(err, "fetch")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(device)
	return nil
}

func (h *DeviceHandler) CreateDevice(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, username, _, ok := callerFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user identity in token", nil)
	}

	var req model.CreateDeviceRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	device, err := h.service.CreateDevice(userID, req.DeviceName, req.Description)
	if err != nil {
		return deviceErrToAppError(err, "create")
	}

	h.announce("added", device, userID, username)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(device)
	return nil
}

func (h *DeviceHandler) UpdateDevice(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, username, role, ok := callerFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user identity in token", nil)
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid device ID", nil)
	}

	var req model.UpdateDeviceRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	device, svcErr := h.service.UpdateDevice(id, userID, role, req.DeviceName, req.Description)
	if svcErr != nil {
		return deviceErrToAppError(svcErr, "update")
	}

	h.announce("updated", device, userID, username)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(device)
	return nil
}

func (h *DeviceHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, username, role, ok := callerFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user identity in token", nil)
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid device ID", nil)
	}

	device, svcErr := h.service.DeleteDevice(id, userID, role)
	if svcErr != nil {
		return deviceErrToAppError(svcErr, "delete")
	}

	h.announce("deleted", device, userID, username)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Device deleted successfully"})
	return nil
}

// RestoreAllDevices reverses every pending soft delete. Admin only,
// enforced at the router.
func (h *DeviceHandler) RestoreAllDevices(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, username, _, ok := callerFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user identity in token", nil)
	}

	restored, err := h.service.RestoreAllDevices()
	if err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			return common.NewAppError(http.StatusNotFound, "No deleted devices found to restore", nil)
		}
		return common.NewAppError(http.StatusInternalServerError, "Could not restore devices", err)
	}

	h.hub.Broadcast("restored_all", map[string]interface{}{
		"count": restored,
		"actor": username,
	})
	notification := &model.Notification{
		UserID:  userID,
		Message: fmt.Sprintf("%s restored all deleted devices (%d)", username, restored),
	}
	if err := h.notifications.CreateNotification(notification); err != nil {
		logger.Log.WithError(err).Error("Failed to record bulk restore notification")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "All deleted devices restored successfully",
		"restored": restored,
	})
	return nil
}

// PurgeDevice deletes a device permanently. Admin only, enforced at the
// router.
func (h *DeviceHandler) PurgeDevice(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, username, _, ok := callerFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user identity in token", nil)
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid device ID", nil)
	}

	device, svcErr := h.service.PurgeDevice(id)
	if svcErr != nil {
		return deviceErrToAppError(svcErr, "permanently delete")
	}

	h.announce("purged", device, userID, username)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Device permanently deleted"})
	return nil
}

// RestoreDevice reverses a soft delete. Admin only, enforced at the router.
func (h *DeviceHandler) RestoreDevice(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, username, _, ok := callerFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user identity in token", nil)
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid device ID", nil)
	}

	device, svcErr := h.service.RestoreDevice(id)
	if svcErr != nil {
		return deviceErrToAppError(svcErr, "restore")
	}

	h.announce("restored", device, userID, username)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(device)
	return nil
}
