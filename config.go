package oidcsession

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/giantswarm/oidc-session/store"
)

// Config holds the session server configuration.
// Structured using composition for better organization and maintainability
type Config struct {
	// BaseURL is the public base URL of the application (e.g.,
	// "https://app.example.com"). Used to build the post-logout redirect
	// URI and to decide whether cookies are marked Secure.
	BaseURL string

	// Session holds session cookie settings
	Session SessionConfig

	// Logout holds logout flow settings
	Logout LogoutConfig

	// RateLimit holds rate limiting configuration
	RateLimit RateLimitConfig

	// Security settings (secure by default)
	Security SecurityConfig

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger

	// HTTPClient is a custom HTTP client for provider requests
	// If not provided, uses the default HTTP client
	HTTPClient *http.Client
}

// SessionConfig holds session cookie settings
type SessionConfig struct {
	// Secret is the key material for session cookie signing and
	// encryption (required, at least 32 bytes). Hash and block keys are
	// derived from it, so a single secret is enough.
	Secret []byte

	// CookieName overrides the default session cookie name.
	CookieName string

	// MaxAge is how long the session cookie stays valid in the browser.
	// Default: 1 hour.
	MaxAge time.Duration
}

// LogoutConfig holds logout flow settings
type LogoutConfig struct {
	// RedirectPath is where the browser lands after a completed logout.
	// Default: "/".
	RedirectPath string

	// ErrorRedirectPath is where the browser lands when the logout callback
	// fails state validation. The failure reason is appended as a "reason"
	// query parameter. Default: "/logout/error".
	ErrorRedirectPath string

	// StateCookieName overrides the default logout-state cookie name.
	StateCookieName string

	// StateMaxAge bounds the logout round-trip duration.
	// Default: 5 minutes.
	StateMaxAge time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Rate is requests per second allowed per IP. Zero disables limiting.
	Rate int

	// Burst is the maximum burst size allowed per IP.
	Burst int
}

// SecurityConfig holds security settings (secure by default)
type SecurityConfig struct {
	// TrustProxy enables trusting X-Forwarded-For and X-Real-IP headers.
	// Only enable behind a trusted reverse proxy.
	TrustProxy bool

	// TrustedProxyCount is the number of trusted proxies in front of the
	// server, used with TrustProxy to extract the client IP from
	// X-Forwarded-For. Default: 1.
	TrustedProxyCount int

	// EnableAuditLogging enables security audit logging.
	// Logs session events, refresh outcomes, and logout validation
	// results (subject identifiers hashed, token values never logged).
	EnableAuditLogging bool
}

// applySecureDefaults applies secure-by-default configuration values
func applySecureDefaults(config *Config, logger *slog.Logger) *Config {
	if config.Session.MaxAge == 0 {
		config.Session.MaxAge = store.DefaultSessionMaxAge
	}
	if config.Logout.RedirectPath == "" {
		config.Logout.RedirectPath = "/"
	}
	if config.Logout.ErrorRedirectPath == "" {
		config.Logout.ErrorRedirectPath = "/logout/error"
	}
	if config.Logout.StateMaxAge == 0 {
		config.Logout.StateMaxAge = store.DefaultStateMaxAge
	}
	if config.Security.TrustedProxyCount == 0 {
		config.Security.TrustedProxyCount = 1
	}

	if config.Security.TrustProxy {
		logger.Warn("Trusting proxy headers",
			"risk", "IP spoofing if proxy is not properly configured",
			"config", "TrustedProxyCount should match your proxy chain length")
	}

	return config
}
