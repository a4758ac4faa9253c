package handler

import (
	"device-management-api/ws"
	"encoding/json"
	"net/http"
)

// HealthHandler reports liveness plus a snapshot of connected live-update
// clients.
type HealthHandler struct {
	hub *ws.Hub
}

func NewHealthHandler(hub *ws.Hub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

// HealthCheck godoc
// @Summary      Show the status of the service
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     "ok",
		"service":    "device-management-api",
		"ws_clients": h.hub.ClientCount(),
	})
}
