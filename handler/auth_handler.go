package handler

import (
	"device-management-api/common"
	"device-management-api/model"
	"device-management-api/service"
	"encoding/json"
	"errors"
	"net"
	"net/http"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// clientIP extracts the caller address recorded on refresh token records.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Register godoc
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.RegisterRequest true "New user"
// @Success      201 {object} model.User
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	user, err := h.service.Register(req.Username, req.Password, model.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			return common.NewAppError(http.StatusConflict, "Username already exists", nil)
		case errors.Is(err, service.ErrInvalidRole):
			return common.NewAppError(http.StatusBadRequest, "Invalid role", nil)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not register user", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
	return nil
}

// Login godoc
// @Summary      Authenticate and open a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.LoginRequest true "Credentials"
// @Success      200 {object} map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	session, err := h.service.Login(req.Username, req.Password, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return common.NewAppError(http.StatusNotFound, "User not found", nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			return common.NewAppError(http.StatusUnauthorized, "Invalid password", nil)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not log in", err)
		}
	}

	setSessionCookies(w, session.AccessToken, session.RefreshToken)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message":  "Login successful",
		"username": session.User.Username,
		"role":     string(session.User.Role),
	})
	return nil
}

// Refresh rotates the presented refresh token and issues a new access token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	rawToken := refreshTokenFromRequest(r)
	if rawToken == "" {
		return common.NewAppError(http.StatusUnauthorized, "No refresh token provided", nil)
	}

	session, err := h.service.Refresh(rawToken, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenNotFound):
			return common.NewAppError(http.StatusUnauthorized, "Invalid refresh token", nil)
		case errors.Is(err, service.ErrTokenRevoked):
			return common.NewAppError(http.StatusUnauthorized, "Refresh token revoked", nil)
		case errors.Is(err, service.ErrTokenExpired):
			return common.NewAppError(http.StatusUnauthorized, "Refresh token expired", nil)
		case errors.Is(err, service.ErrUserNotFound):
			return common.NewAppError(http.StatusUnauthorized, "Invalid refresh token", nil)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not refresh session", err)
		}
	}

	setSessionCookies(w, session.AccessToken, session.RefreshToken)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Token refreshed successfully"})
	return nil
}

// Logout revokes the refresh token (if any) and clears both session cookies.
// Calling it without a session is fine.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	if err := h.service.Logout(refreshTokenFromRequest(r), clientIP(r)); err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Could not log out", err)
	}

	clearSessionCookies(w)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logged out successfully"})
	return nil
}

// Profile echoes the identity the guard attached to the request context.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, username, role, ok := callerFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user identity in token", nil)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user_id":  userID,
		"username": username,
		"role":     role,
	})
	return nil
}
