package token

import (
	"time"

	"github.com/giantswarm/oidc-session/security"
)

// Error is the sticky failure flag carried on a TokenSet.
// A non-empty value marks the session as requiring re-authentication.
type Error string

const (
	// ErrorNone indicates the token set is healthy.
	ErrorNone Error = ""

	// ErrorRefreshAccessToken indicates the refresh-token grant failed or no
	// refresh token was available. The flag is sticky: once set, the access
	// token and expiry must be treated as unusable regardless of their values,
	// and only a fresh login (seed transition) clears it.
	ErrorRefreshAccessToken Error = "RefreshAccessTokenError"
)

// TokenSet is the complete token state for one authenticated session.
// It is owned exclusively by the session cookie: components rewrite it as a
// whole, never mutate it in place.
type TokenSet struct {
	// IDToken is the OIDC ID token. It is opaque to this library except as the
	// id_token_hint during logout.
	IDToken string `json:"id_token,omitempty"`

	// AccessToken is the bearer credential for the provider's protected endpoints.
	AccessToken string `json:"access_token,omitempty"`

	// RefreshToken is the credential used to obtain new access tokens.
	// It never crosses the projection boundary (see Project).
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the absolute expiry of AccessToken in epoch milliseconds.
	ExpiresAt int64 `json:"expires_at,omitempty"`

	// Error is the sticky failure flag (see Error).
	Error Error `json:"error,omitempty"`
}

// IsZero reports whether the token set carries no state at all.
func (ts TokenSet) IsZero() bool {
	return ts == TokenSet{}
}

// Expired reports whether the access token has reached its absolute expiry.
// The comparison is strict: expiring early is harmless (one extra refresh),
// expiring late hands out a dead token.
func (ts TokenSet) Expired(now time.Time) bool {
	return now.UnixMilli() >= ts.ExpiresAt
}

// Usable reports whether the access token can be handed to a collaborator:
// present, not errored, and not past expiry beyond clock-skew tolerance.
// The refresh decision uses the strict Expired instead.
func (ts TokenSet) Usable(now time.Time) bool {
	return ts.Error == ErrorNone && ts.AccessToken != "" && !security.IsExpired(ts.ExpiresAt, now)
}

// WithError returns a copy of the token set with the sticky error flag set.
func (ts TokenSet) WithError(e Error) TokenSet {
	ts.Error = e
	return ts
}

// ProviderAccount is the token material handed over by the upstream
// authorization-code-exchange collaborator when a login completes.
type ProviderAccount struct {
	// IDToken is the ID token issued at login.
	IDToken string

	// AccessToken is the access token issued at login.
	AccessToken string

	// RefreshToken is the refresh token issued at login (empty if the
	// offline_access scope was not granted).
	RefreshToken string

	// ExpiresIn is the access token lifetime in seconds as reported by the
	// provider. Zero means not reported; the lifecycle manager falls back to
	// a default lifetime.
	ExpiresIn int64
}

// Session is the externally visible projection of a TokenSet. It never carries
// the refresh token.
type Session struct {
	// IDToken is exposed so the application can initiate logout.
	IDToken string `json:"idToken,omitempty"`

	// AccessToken is exposed for applications that call provider APIs
	// client-side.
	AccessToken string `json:"accessToken,omitempty"`

	// Error mirrors the sticky failure flag; a non-empty value tells the
	// application to send the user through a fresh login.
	Error string `json:"error,omitempty"`
}

// Project derives the external session view from a token set. It is a pure
// function, total over all TokenSet values: absent fields stay absent, and the
// refresh token is excluded unconditionally. This exclusion is a hard security
// invariant, not a convenience default.
func Project(ts TokenSet) Session {
	return Session{
		IDToken:     ts.IDToken,
		AccessToken: ts.AccessToken,
		Error:       string(ts.Error),
	}
}
