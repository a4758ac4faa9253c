package handler

import (
	"device-management-api/config"
	"net/http"
	"time"
)

// setSessionCookies binds both tokens to the response. The cookies are
// HttpOnly and Secure with SameSite=None so a browser frontend on another
// origin can carry them, and each lifetime matches its token's TTL.
func setSessionCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	cfg := config.AppConfig
	accessTTL := time.Duration(cfg.JWT.AccessTTLMinutes) * time.Minute
	refreshTTL := time.Duration(cfg.JWT.RefreshTTLDays) * 24 * time.Hour

	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Cookies.AccessName,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Cookies.Secure,
		SameSite: http.SameSiteNoneMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Cookies.RefreshName,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Cookies.Secure,
		SameSite: http.SameSiteNoneMode,
	})
}

// clearSessionCookies expires both session cookies. It is unconditional and
// safe to call whether or not the cookies were present.
func clearSessionCookies(w http.ResponseWriter) {
	cfg := config.AppConfig
	for _, name := range []string{cfg.Cookies.AccessName, cfg.Cookies.RefreshName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.Cookies.Secure,
			SameSite: http.SameSiteNoneMode,
		})
	}
}

// refreshTokenFromRequest reads the refresh cookie. Absence is reported as
// an empty string; only Refresh treats that as an error.
func refreshTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(config.AppConfig.Cookies.RefreshName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
