package oidcsession

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/giantswarm/oidc-session/internal/util"
	"github.com/giantswarm/oidc-session/providers"
	"github.com/giantswarm/oidc-session/security"
)

// LogoutCoordinator builds RP-initiated logout redirects and validates the
// provider's redirect back. Each Initiate call mints a fresh random state
// value that the caller binds to the browser in a cookie; the callback is
// accepted only when the state query parameter matches that cookie.
type LogoutCoordinator struct {
	provider     providers.Provider
	baseURL      string
	callbackPath string
	logger       *slog.Logger
}

// NewLogoutCoordinator creates a logout coordinator. baseURL is the public
// base URL of the application and callbackPath the route the provider
// redirects back to.
func NewLogoutCoordinator(provider providers.Provider, baseURL, callbackPath string, logger *slog.Logger) (*LogoutCoordinator, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &LogoutCoordinator{
		provider:     provider,
		baseURL:      util.NormalizeURL(baseURL),
		callbackPath: callbackPath,
		logger:       logger,
	}, nil
}

// Initiate returns the provider end-session URL to redirect the browser to
// and the state value the caller must bind to the browser. An absent idToken
// means there is no provider session to terminate; Initiate fails with
// ErrNoActiveSession and the caller should send the browser home instead of
// to the provider.
func (c *LogoutCoordinator) Initiate(ctx context.Context, idToken string) (redirectURL, state string, err error) {
	if idToken == "" {
		return "", "", ErrNoActiveSession
	}

	endSession, err := c.provider.EndSessionEndpoint(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve end session endpoint: %w", err)
	}

	u, err := url.Parse(endSession)
	if err != nil {
		return "", "", fmt.Errorf("invalid end session endpoint %q: %w", endSession, err)
	}

	state = security.GenerateLogoutState()

	q := u.Query()
	q.Set("id_token_hint", idToken)
	q.Set("post_logout_redirect_uri", c.baseURL+c.callbackPath)
	q.Set("state", state)
	u.RawQuery = q.Encode()

	c.logger.Debug("Initiating provider logout", "provider", c.provider.Name())

	return u.String(), state, nil
}

// ValidateCallback checks the state returned by the provider against the
// value bound to the browser. Both values must be present and equal;
// comparison is constant-time. On mismatch the caller must leave the session
// untouched.
func (c *LogoutCoordinator) ValidateCallback(cookieState, paramState string) error {
	if !security.StatesEqual(paramState, cookieState) {
		return ErrInvalidLogoutState
	}
	return nil
}
