// Package providers defines the interface this library uses to talk to the
// external OIDC provider. The provider is consumed as a black-box HTTP
// service: the library only needs the refresh-token grant, the userinfo
// endpoint, and the end-session endpoint resolved through discovery.
package providers

import (
	"context"

	"golang.org/x/oauth2"
)

// Provider is the contract between the session library and an OIDC provider.
type Provider interface {
	// Name returns the provider name (e.g. "zitadel").
	Name() string

	// RefreshToken performs the refresh-token grant against the provider's
	// token endpoint. The returned token carries the new access token, its
	// expiry, and - if the provider rotates refresh tokens - a new refresh
	// token. Implementations must not log or persist the raw token values.
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	// EndSessionEndpoint resolves the provider's RP-initiated-logout endpoint
	// via OIDC discovery.
	EndSessionEndpoint(ctx context.Context) (string, error)

	// UserInfo fetches the provider's userinfo document for the given access
	// token and returns the raw JSON body.
	UserInfo(ctx context.Context, accessToken string) ([]byte, error)

	// HealthCheck verifies the provider is reachable, for readiness probes
	// and startup validation.
	HealthCheck(ctx context.Context) error
}
