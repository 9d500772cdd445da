package http

import (
	"net/http"
	"time"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

// CookieConfig controls the refresh token cookie attributes.
type CookieConfig struct {
	// Secure marks the cookie Secure with SameSite=None. Otherwise it is
	// sent over plain HTTP with SameSite=Lax.
	Secure bool
	MaxAge time.Duration
}

func (c CookieConfig) cookie(value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if c.Secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: sameSite,
	}
}

// setRefreshCookie stores token in the refresh cookie.
func (c CookieConfig) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(token, int(c.MaxAge.Seconds())))
}

// clearRefreshCookie expires the refresh cookie with the same attributes it
// was set with.
func (c CookieConfig) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", -1))
}

// refreshTokenFrom prefers the cookie over the body value.
func refreshTokenFrom(r *http.Request, body string) string {
	if c, err := r.Cookie(RefreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return body
}
