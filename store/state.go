package store

import (
	"net/http"
	"time"
)

const (
	// DefaultStateCookieName names the logout-state cookie.
	DefaultStateCookieName = "logout_state"

	// DefaultStateMaxAge bounds how long a pending logout round-trip stays
	// valid. The provider redirect normally completes within seconds.
	DefaultStateMaxAge = 5 * time.Minute
)

// StateCookie issues and reads the single-use logout-state cookie. The cookie
// is scoped to the logout callback path only, so it is never sent with any
// other request, and it lives exclusively in the browser: there is no
// server-side registry of pending logouts.
type StateCookie struct {
	// Name overrides DefaultStateCookieName when non-empty.
	Name string

	// Path restricts cookie delivery to the callback route. Required.
	Path string

	// MaxAge overrides DefaultStateMaxAge when non-zero.
	MaxAge time.Duration

	// Secure marks the cookie Secure.
	Secure bool
}

// Set binds the state value to the browser for the duration of the logout
// round-trip.
func (c StateCookie) Set(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    value,
		Path:     c.Path,
		MaxAge:   int(c.maxAge().Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the state value from the request, or "" when the cookie is
// absent.
func (c StateCookie) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.name())
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Clear expires the state cookie. The value is single-use: it is consumed by
// exactly one callback validation.
func (c StateCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     c.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c StateCookie) name() string {
	if c.Name != "" {
		return c.Name
	}
	return DefaultStateCookieName
}

func (c StateCookie) maxAge() time.Duration {
	if c.MaxAge != 0 {
		return c.MaxAge
	}
	return DefaultStateMaxAge
}
