package token

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/oidc-session/internal/util"
)

// TokenRefresher performs the refresh-token grant against the provider's
// token endpoint and returns the provider's response as an oauth2.Token.
// providers.Provider satisfies this interface.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// RefreshExecutor exchanges a refresh token for a new access token and folds
// the result back into the token set. It makes at most one network attempt
// per call; any failure (missing refresh token, transport error, non-success
// status, malformed response) surfaces as the sticky ErrorRefreshAccessToken
// flag on the returned set, never as a retry.
type RefreshExecutor struct {
	provider TokenRefresher
	logger   *slog.Logger

	// Clock overrides the time source. Nil means time.Now.
	Clock func() time.Time

	// FallbackLifetime is assumed when the provider omits expires_in from the
	// refresh response. Zero means DefaultAccessTokenLifetime.
	FallbackLifetime time.Duration
}

// NewRefreshExecutor creates a refresh executor for the given provider.
func NewRefreshExecutor(provider TokenRefresher, logger *slog.Logger) (*RefreshExecutor, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshExecutor{provider: provider, logger: logger}, nil
}

// Refresh implements Refresher.
//
// On success the access token and expiry are replaced. The refresh token is
// replaced only when the provider rotated it; providers that reuse refresh
// tokens omit the field, in which case the original is retained. A rotated
// ID token is adopted when present.
func (e *RefreshExecutor) Refresh(ctx context.Context, set TokenSet) TokenSet {
	// Absence of a refresh token is itself a failure. No network call is made.
	if set.RefreshToken == "" {
		e.logger.Warn("Refresh requested without refresh token, forcing re-authentication")
		return set.WithError(ErrorRefreshAccessToken)
	}

	newToken, err := e.provider.RefreshToken(ctx, set.RefreshToken)
	if err != nil {
		e.logger.Warn("Refresh-token grant failed, forcing re-authentication",
			"error", err)
		return set.WithError(ErrorRefreshAccessToken)
	}

	if newToken == nil || newToken.AccessToken == "" {
		e.logger.Warn("Provider refresh response carried no access token, forcing re-authentication")
		return set.WithError(ErrorRefreshAccessToken)
	}

	next := set
	next.AccessToken = newToken.AccessToken
	next.Error = ErrorNone

	expiry := newToken.Expiry
	if expiry.IsZero() {
		lifetime := e.FallbackLifetime
		if lifetime == 0 {
			lifetime = DefaultAccessTokenLifetime
		}
		expiry = e.now().Add(lifetime)
	}
	next.ExpiresAt = expiry.UnixMilli()

	if newToken.RefreshToken != "" {
		next.RefreshToken = newToken.RefreshToken
	}
	if id, ok := newToken.Extra("id_token").(string); ok && id != "" {
		next.IDToken = id
	}

	e.logger.Debug("Access token refreshed",
		"rotated", newToken.RefreshToken != "",
		"access_token_prefix", util.SafeTruncate(next.AccessToken, 8),
		"expires_at", next.ExpiresAt)

	return next
}

func (e *RefreshExecutor) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}
