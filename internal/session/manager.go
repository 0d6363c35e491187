// Package session binds token pairs to transport cookies. Tokens never touch
// client-readable storage: both cookies are HTTP-only, same-site strict, and
// HTTPS-only outside development.
package session

import (
	"net/http"
	"time"
)

// Cookie names consumed by the frontend and the authentication middleware.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// Manager sets and clears the session cookie pair. Max-age mirrors each
// token's lifetime so browsers drop cookies in step with server-side expiry.
type Manager struct {
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewManager builds a manager. secure controls the Secure attribute and is
// false only in development deployments.
func NewManager(secure bool, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{secure: secure, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Attach sets both session cookies for the pair.
func (m *Manager) Attach(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, m.cookie(AccessTokenCookie, accessToken, int(m.accessTTL.Seconds())))
	http.SetCookie(w, m.cookie(RefreshTokenCookie, refreshToken, int(m.refreshTTL.Seconds())))
}

// Clear instructs the browser to drop both cookies. Attributes must match
// the ones used at set time or browsers ignore the clear.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie(AccessTokenCookie, "", -1))
	http.SetCookie(w, m.cookie(RefreshTokenCookie, "", -1))
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// AccessTokenFromRequest extracts the access token cookie value.
func AccessTokenFromRequest(r *http.Request) (string, bool) {
	return cookieValue(r, AccessTokenCookie)
}

// RefreshTokenFromRequest extracts the refresh token cookie value.
func RefreshTokenFromRequest(r *http.Request) (string, bool) {
	return cookieValue(r, RefreshTokenCookie)
}

func cookieValue(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
