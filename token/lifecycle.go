package token

import (
	"context"
	"fmt"
	"time"
)

// DefaultAccessTokenLifetime is used when the provider does not report a
// lifetime for a freshly issued access token.
const DefaultAccessTokenLifetime = time.Hour

// Refresher turns an expired token set into its successor. Implementations
// make at most one refresh attempt and report failure through the sticky
// error flag on the returned set, never by panicking.
type Refresher interface {
	Refresh(ctx context.Context, set TokenSet) TokenSet
}

// Lifecycle decides, per request, what happens to the stored token set:
// seed it from a fresh login, pass it through untouched, or send it to the
// refresher. It performs no I/O of its own.
//
// States: Fresh -> Expiring (now >= expiresAt) -> Refreshing -> Fresh or
// Errored. Errored is terminal until the next seed transition.
type Lifecycle struct {
	refresher Refresher

	// Clock overrides the time source. Nil means time.Now.
	Clock func() time.Time

	// FallbackLifetime is the access token lifetime assumed when the provider
	// does not report one at login. Zero means DefaultAccessTokenLifetime.
	FallbackLifetime time.Duration
}

// NewLifecycle creates a lifecycle manager backed by the given refresher.
func NewLifecycle(refresher Refresher) (*Lifecycle, error) {
	if refresher == nil {
		return nil, fmt.Errorf("refresher is required")
	}
	return &Lifecycle{refresher: refresher}, nil
}

// Next produces the token set to persist for subsequent requests.
//
// With account non-nil (a login just completed) it performs the seed
// transition: all tokens are overwritten from the account data and the error
// flag is cleared. Otherwise an unexpired set passes through unchanged, an
// errored set stays errored without touching the network, and an expired set
// is handed to the refresher.
func (l *Lifecycle) Next(ctx context.Context, set TokenSet, account *ProviderAccount) TokenSet {
	if account != nil {
		return l.seed(account)
	}

	// Sticky failure: never attempt another refresh until a fresh login.
	if set.Error != ErrorNone {
		return set
	}

	if !set.Expired(l.now()) {
		return set
	}

	return l.refresher.Refresh(ctx, set)
}

func (l *Lifecycle) seed(account *ProviderAccount) TokenSet {
	lifetime := l.FallbackLifetime
	if lifetime == 0 {
		lifetime = DefaultAccessTokenLifetime
	}
	if account.ExpiresIn > 0 {
		lifetime = time.Duration(account.ExpiresIn) * time.Second
	}

	return TokenSet{
		IDToken:      account.IDToken,
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		ExpiresAt:    l.now().Add(lifetime).UnixMilli(),
		Error:        ErrorNone,
	}
}

func (l *Lifecycle) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}
