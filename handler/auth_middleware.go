package handler

import (
	"context"
	"device-management-api/common"
	"device-management-api/config"
	"device-management-api/model"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	UserIDKey   contextKey = "userID"
	UsernameKey contextKey = "username"
	UserRoleKey contextKey = "userRole"
)

// accessTokenFromRequest reads the access token from the session cookie or,
// failing that, from a bearer Authorization header.
func accessTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(config.AppConfig.Cookies.AccessName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) == 2 && strings.ToLower(headerParts[0]) == "bearer" {
		return headerParts[1]
	}
	return ""
}

// AuthMiddleware verifies the access token and attaches the caller's
// identity and role to the request context. Expired tokens are reported
// distinctly so clients know to call refresh rather than log in again.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := accessTokenFromRequest(r)
		if tokenString == "" {
			appErr := common.NewAppError(http.StatusUnauthorized, "Missing access token", nil)
			appErr.Send(w)
			return
		}

		claims := &model.AppClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(config.AppConfig.JWT.SecretKey), nil
		}, jwt.WithValidMethods([]string{"HS256"}))

		if err != nil || !token.Valid {
			message := "Invalid access token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				message = "Access token expired"
			}
			appErr := common.NewAppError(http.StatusUnauthorized, message, err)
			appErr.Send(w)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UsernameKey, claims.Username)
		ctx = context.WithValue(ctx, UserRoleKey, claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles gates a route on the caller's role. An identity that carries
// a role outside the allow-list (including an unknown role) gets 403.
func RequireRoles(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value(UserRoleKey).(model.Role)
			if !ok {
				appErr := common.NewAppError(http.StatusUnauthorized, "Missing role in token", nil)
				appErr.Send(w)
				return
			}

			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			appErr := common.NewAppError(http.StatusForbidden, "Access denied. Insufficient privileges.", nil)
			appErr.Send(w)
		})
	}
}

// callerFromContext pulls the guard's output back out of the context.
func callerFromContext(ctx context.Context) (userID int, username string, role model.Role, ok bool) {
	userID, ok = ctx.Value(UserIDKey).(int)
	if !ok {
		return 0, "", "", false
	}
	username, _ = ctx.Value(UsernameKey).(string)
	role, ok = ctx.Value(UserRoleKey).(model.Role)
	return userID, username, role, ok
}
