package handler

import (
	"device-management-api/common"
	"device-management-api/model"
	"device-management-api/repository"
	"encoding/json"
	"net/http"
	"strconv"
)

const notificationFeedLimit = 50

type NotificationHandler struct {
	Repo repository.INotificationRepository
}

func NewNotificationHandler(repo repository.INotificationRepository) *NotificationHandler {
	return &NotificationHandler{Repo: repo}
}

// ListNotifications returns the caller's feed; admins see everyone's.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, _, role, ok := callerFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user identity in token", nil)
	}

	scope := userID
	if role == model.RoleAdmin {
		scope = 0
	}

	notifications, err := h.Repo.ListNotifications(scope, notificationFeedLimit)
	if err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Could not retrieve notifications", err)
	}
	if notifications == nil {
		notifications = []*model.Notification{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(notifications)
	return nil
}

// MarkRead flags one feed entry as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid notification ID", nil)
	}

	marked, err := h.Repo.MarkNotificationRead(id)
	if err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Could not mark notification as read", err)
	}
	if !marked {
		return common.NewAppError(http.StatusNotFound, "Notification not found", nil)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Notification marked as read"})
	return nil
}
