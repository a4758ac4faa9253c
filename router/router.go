package router

import (
	"device-management-api/common"
	"device-management-api/handler"
	"device-management-api/model"
	"device-management-api/ws"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "device-management-api/docs"
)

// NewRouter wires every route behind its middleware chain. All /api routes
// except the auth entry points run through the authorization guard; the
// request counter wraps the whole mux.
func NewRouter(
	authHandler *handler.AuthHandler,
	deviceHandler *handler.DeviceHandler,
	notificationHandler *handler.NotificationHandler,
	hub *ws.Hub,
	counter *handler.RequestCounter,
) http.Handler {
	mux := http.NewServeMux()

	anyRole := handler.RequireRoles(model.RoleAdmin, model.RoleUser)
	adminOnly := handler.RequireRoles(model.RoleAdmin)

	protected := func(gate func(http.Handler) http.Handler, next func(http.ResponseWriter, *http.Request) *common.AppError) http.Handler {
		return handler.AuthMiddleware(gate(handler.ErrorHandlingMiddleware(next)))
	}

	// Auth
	mux.Handle("POST /api/auth/register", handler.ErrorHandlingMiddleware(authHandler.Register))
	mux.Handle("POST /api/auth/login", handler.ErrorHandlingMiddleware(authHandler.Login))
	mux.Handle("POST /api/auth/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
	mux.Handle("POST /api/auth/logout", handler.ErrorHandlingMiddleware(authHandler.Logout))
	mux.Handle("GET /api/auth/profile", protected(anyRole, authHandler.Profile))

	// Devices
	mux.Handle("GET /api/devices", protected(anyRole, deviceHandler.ListDevices))
	mux.Handle("POST /api/devices", protected(anyRole, deviceHandler.CreateDevice))
	mux.Handle("GET /api/devices/{id}", protected(anyRole, deviceHandler.GetDevice))
	mux.Handle("PUT /api/devices/{id}", protected(anyRole, deviceHandler.UpdateDevice))
	mux.Handle("DELETE /api/devices/{id}", protected(anyRole, deviceHandler.DeleteDevice))
	mux.Handle("POST /api/devices/{id}/restore", protected(adminOnly, deviceHandler.RestoreDevice))
	mux.Handle("POST /api/devices/restore-all", protected(adminOnly, deviceHandler.RestoreAllDevices))
	mux.Handle("DELETE /api/devices/{id}/permanent", protected(adminOnly, deviceHandler.PurgeDevice))

	// Notifications
	mux.Handle("GET /api/notifications", protected(anyRole, notificationHandler.ListNotifications))
	mux.Handle("PUT /api/notifications/{id}/read", protected(anyRole, notificationHandler.MarkRead))

	// Metrics
	mux.Handle("GET /api/metrics/requests", protected(adminOnly, counter.Metrics))

	// Live updates
	mux.Handle("GET /ws", handler.AuthMiddleware(http.HandlerFunc(hub.ServeWS)))

	mux.HandleFunc("GET /health", handler.NewHealthHandler(hub).HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	return counter.Middleware(mux)
}
