package handler

import (
	"device-management-api/config"
	"device-management-api/logger"
	"device-management-api/model"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	config.AppConfig.JWT.SecretKey = "test-signing-key"
	config.AppConfig.JWT.AccessTTLMinutes = 15
	config.AppConfig.JWT.RefreshTTLDays = 7
	config.AppConfig.Cookies.AccessName = "jwt"
	config.AppConfig.Cookies.RefreshName = "refreshToken"
	config.AppConfig.Cookies.Secure = true
	os.Exit(m.Run())
}

func signedToken(t *testing.T, role model.Role, ttl time.Duration) string {
	t.Helper()
	claims := &model.AppClaims{
		UserID:   7,
		Username: "alice",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.AppConfig.JWT.SecretKey))
	require.NoError(t, err)
	return token
}

// echoIdentity records what the guard attached to the context.
func echoIdentity(captured *model.AppClaims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, username, role, ok := callerFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		captured.UserID = userID
		captured.Username = username
		captured.Role = role
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/devices", nil)

		AuthMiddleware(echoIdentity(&model.AppClaims{})).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/devices", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")

		AuthMiddleware(echoIdentity(&model.AppClaims{})).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid access token")
	})

	t.Run("expired token is reported as expired", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/devices", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, model.RoleUser, -time.Minute))

		AuthMiddleware(echoIdentity(&model.AppClaims{})).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "Access token expired")
	})

	t.Run("token signed with another key", func(t *testing.T) {
		claims := &model.AppClaims{UserID: 7, Role: model.RoleUser, RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("attacker-key"))
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/devices", nil)
		req.Header.Set("Authorization", "Bearer "+forged)

		AuthMiddleware(echoIdentity(&model.AppClaims{})).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token via bearer header", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/devices", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, model.RoleAdmin, time.Hour))

		var captured model.AppClaims
		AuthMiddleware(echoIdentity(&captured)).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 7, captured.UserID)
		assert.Equal(t, "alice", captured.Username)
		assert.Equal(t, model.RoleAdmin, captured.Role)
	})

	t.Run("valid token via cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/devices", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: signedToken(t, model.RoleUser, time.Hour)})

		var captured model.AppClaims
		AuthMiddleware(echoIdentity(&captured)).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, model.RoleUser, captured.Role)
	})
}

func TestRequireRoles(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("role in allow-list", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/devices/1/restore", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, model.RoleAdmin, time.Hour))

		AuthMiddleware(RequireRoles(model.RoleAdmin)(ok)).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("role outside allow-list", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/devices/1/restore", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, model.RoleUser, time.Hour))

		AuthMiddleware(RequireRoles(model.RoleAdmin)(ok)).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("unknown role read from a token fails closed", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/devices", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, model.Role("root"), time.Hour))

		AuthMiddleware(RequireRoles(model.RoleAdmin, model.RoleUser)(ok)).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("no identity on context", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/devices", nil)

		RequireRoles(model.RoleAdmin)(ok).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
