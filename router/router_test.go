// file: router/router_test.go

package router_test

import (
	"device-management-api/config"
	"device-management-api/handler"
	"device-management-api/logger"
	"device-management-api/router"
	"device-management-api/ws"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.Init()
	config.AppConfig.JWT.SecretKey = "test-signing-key"
	config.AppConfig.Cookies.AccessName = "jwt"
	config.AppConfig.Cookies.RefreshName = "refreshToken"
	os.Exit(m.Run())
}

func newTestRouter() http.Handler {
	// Handlers that are never invoked in these tests can be nil; the hub and
	// counter must exist because every request passes through them.
	return router.NewRouter(
		handler.NewAuthHandler(nil),
		handler.NewDeviceHandler(nil, nil, ws.NewHub()),
		handler.NewNotificationHandler(nil),
		ws.NewHub(),
		handler.NewRequestCounter(nil),
	)
}

func TestHealthCheck_Integration(t *testing.T) {
	r := newTestRouter()

	req, _ := http.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	expectedBody := `{"status":"ok","service":"device-management-api","ws_clients":0}`
	assert.JSONEq(t, expectedBody, rr.Body.String())
}

func TestProtectedRoutesRejectAnonymousCallers(t *testing.T) {
	r := newTestRouter()

	cases := []struct {
		method string
		path   string
	}{
		{"GET", "/api/auth/profile"},
		{"GET", "/api/devices"},
		{"POST", "/api/devices"},
		{"POST", "/api/devices/restore-all"},
		{"DELETE", "/api/devices/1/permanent"},
		{"GET", "/api/notifications"},
		{"PUT", "/api/notifications/1/read"},
		{"GET", "/api/metrics/requests"},
	}

	for _, tc := range cases {
		req, _ := http.NewRequest(tc.method, tc.path, nil)
		rr := httptest.NewRecorder()

		r.ServeHTTP(rr, req)

		assert.Equalf(t, http.StatusUnauthorized, rr.Code, "%s %s", tc.method, tc.path)
	}
}
