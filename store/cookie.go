package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/giantswarm/oidc-session/security"
	"github.com/giantswarm/oidc-session/token"
)

const (
	// DefaultSessionCookieName names the session cookie.
	DefaultSessionCookieName = "oidc_session"

	// DefaultSessionMaxAge is the session cookie lifetime.
	DefaultSessionMaxAge = time.Hour

	// tokenSetKey is the session value key holding the serialized token set.
	tokenSetKey = "tokens"
)

// Options configures the session cookie.
type Options struct {
	// Name overrides DefaultSessionCookieName.
	Name string

	// MaxAge overrides DefaultSessionMaxAge.
	MaxAge time.Duration

	// Secure marks the cookie Secure. Leave false only for local development
	// over plain HTTP.
	Secure bool
}

// CookieStore reads and writes the token set through a signed and encrypted
// browser cookie. The signing and encryption keys are derived from the single
// configured session secret; the cookie is HttpOnly and SameSite=Lax.
//
// Writes are atomic per request: the token set is serialized and sealed as a
// whole, so a failed write leaves the previous cookie intact.
type CookieStore struct {
	store  *sessions.CookieStore
	name   string
	logger *slog.Logger
}

// New creates a cookie store from the session secret.
func New(secret []byte, opts Options, logger *slog.Logger) (*CookieStore, error) {
	hashKey, blockKey, err := security.DeriveCookieKeys(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to derive cookie keys: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	name := opts.Name
	if name == "" {
		name = DefaultSessionCookieName
	}
	maxAge := opts.MaxAge
	if maxAge == 0 {
		maxAge = DefaultSessionMaxAge
	}

	cs := sessions.NewCookieStore(hashKey, blockKey)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &CookieStore{
		store:  cs,
		name:   name,
		logger: logger,
	}, nil
}

// Load reads the token set from the request cookie. A missing, expired, or
// tampered cookie yields (zero, false, nil): an unauthenticated request is
// not an error, and a cookie that fails authentication must behave exactly
// like no cookie at all.
func (s *CookieStore) Load(r *http.Request) (token.TokenSet, bool, error) {
	session, err := s.store.Get(r, s.name)
	if err != nil {
		// Decode or MAC failure. Treat as no session; the client will be sent
		// through a fresh login.
		s.logger.Debug("Session cookie rejected", "error", err)
		return token.TokenSet{}, false, nil
	}

	raw, ok := session.Values[tokenSetKey].(string)
	if !ok || raw == "" {
		return token.TokenSet{}, false, nil
	}

	var set token.TokenSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		s.logger.Warn("Session cookie carried malformed token set, dropping session")
		return token.TokenSet{}, false, nil
	}

	return set, true, nil
}

// Save rewrites the session cookie with the given token set.
func (s *CookieStore) Save(w http.ResponseWriter, r *http.Request, set token.TokenSet) error {
	session, _ := s.store.Get(r, s.name)

	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to serialize token set: %w", err)
	}
	session.Values[tokenSetKey] = string(raw)

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to write session cookie: %w", err)
	}
	return nil
}

// Clear instructs the client to drop the session cookie.
func (s *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, s.name)
	session.Options.MaxAge = -1
	delete(session.Values, tokenSetKey)

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to expire session cookie: %w", err)
	}
	return nil
}

// Name returns the session cookie name.
func (s *CookieStore) Name() string {
	return s.name
}
