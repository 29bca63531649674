package oidcsession

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/giantswarm/oidc-session/instrumentation"
	"github.com/giantswarm/oidc-session/providers"
	"github.com/giantswarm/oidc-session/security"
	"github.com/giantswarm/oidc-session/store"
	"github.com/giantswarm/oidc-session/token"
)

// Server implements the session lifecycle logic (provider-agnostic).
// It coordinates the token lifecycle, cookie storage, and logout flow using
// a Provider.
type Server struct {
	provider        providers.Provider
	sessions        *store.CookieStore
	stateCookie     store.StateCookie
	lifecycle       *token.Lifecycle
	logout          *LogoutCoordinator
	auditor         *security.Auditor
	rateLimiter     *security.RateLimiter
	instrumentation *instrumentation.Instrumentation
	logger          *slog.Logger
	config          *Config
}

// NewServer creates a new session server
func NewServer(provider providers.Provider, config *Config, logger *slog.Logger) (*Server, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Logger != nil {
		logger = config.Logger
	}

	config = applySecureDefaults(config, logger)

	secure := strings.HasPrefix(config.BaseURL, "https://")

	sessions, err := store.New(config.Session.Secret, store.Options{
		Name:   config.Session.CookieName,
		MaxAge: config.Session.MaxAge,
		Secure: secure,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	executor, err := token.NewRefreshExecutor(provider, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh executor: %w", err)
	}

	lifecycle, err := token.NewLifecycle(executor)
	if err != nil {
		return nil, fmt.Errorf("failed to create token lifecycle: %w", err)
	}

	logout, err := NewLogoutCoordinator(provider, config.BaseURL, RouteLogoutCallback, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create logout coordinator: %w", err)
	}

	return &Server{
		provider:  provider,
		sessions:  sessions,
		lifecycle: lifecycle,
		logout:    logout,
		stateCookie: store.StateCookie{
			Name:   config.Logout.StateCookieName,
			Path:   RouteLogoutCallback,
			MaxAge: config.Logout.StateMaxAge,
			Secure: secure,
		},
		auditor:     security.NewAuditor(logger, config.Security.EnableAuditLogging),
		rateLimiter: newRateLimiter(config, logger),
		logger:      logger,
		config:      config,
	}, nil
}

func newRateLimiter(config *Config, logger *slog.Logger) *security.RateLimiter {
	if config.RateLimit.Rate <= 0 {
		return nil
	}
	return security.NewRateLimiter(config.RateLimit.Rate, config.RateLimit.Burst, logger)
}

// SetInstrumentation sets the OpenTelemetry instrumentation
func (s *Server) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.instrumentation = inst
}

// SetAuditor replaces the security auditor
func (s *Server) SetAuditor(aud *security.Auditor) {
	s.auditor = aud
}

// SetRateLimiter replaces the rate limiter
func (s *Server) SetRateLimiter(rl *security.RateLimiter) {
	s.rateLimiter = rl
}

// Close releases background resources
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// CompleteLogin seeds the session from a fresh provider sign-in. Call it from
// the authorization code callback once the code has been exchanged. Any prior
// session content, including a sticky refresh error, is replaced.
func (s *Server) CompleteLogin(ctx context.Context, w http.ResponseWriter, r *http.Request, account *token.ProviderAccount) error {
	if account == nil {
		return fmt.Errorf("provider account is required")
	}

	set := s.lifecycle.Next(ctx, token.TokenSet{}, account)
	if err := s.sessions.Save(w, r, set); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if s.auditor != nil {
		s.auditor.LogSessionSeeded("", s.clientIP(r), set.RefreshToken != "")
	}
	if s.instrumentation != nil {
		s.instrumentation.Metrics().RecordSessionSeeded(ctx, s.provider.Name())
	}

	s.logger.Info("Session seeded",
		"provider", s.provider.Name(),
		"expires_at", set.ExpiresAt,
		"refresh_token_present", set.RefreshToken != "")

	return nil
}

// SessionTokens loads the request's token set and advances it one lifecycle
// step: pass through while the access token is valid, refresh once when it
// has expired, mark the set errored when the refresh fails. The advanced set
// is written back to the cookie whenever it changed. ok is false when the
// request carries no session.
func (s *Server) SessionTokens(ctx context.Context, w http.ResponseWriter, r *http.Request) (set token.TokenSet, ok bool, err error) {
	current, ok, err := s.sessions.Load(r)
	if err != nil {
		return token.TokenSet{}, false, err
	}
	if !ok {
		return token.TokenSet{}, false, nil
	}

	next := s.lifecycle.Next(ctx, current, nil)
	if next != current {
		if err := s.sessions.Save(w, r, next); err != nil {
			return token.TokenSet{}, false, fmt.Errorf("failed to save session: %w", err)
		}
		s.recordTransition(ctx, r, current, next)
	}

	return next, true, nil
}

// recordTransition emits audit events and metrics for a lifecycle step that
// changed the token set.
func (s *Server) recordTransition(ctx context.Context, r *http.Request, prev, next token.TokenSet) {
	refreshFailed := next.Error == token.ErrorRefreshAccessToken && prev.Error == token.ErrorNone

	if refreshFailed {
		if s.auditor != nil {
			s.auditor.LogTokenRefreshFailed("", s.clientIP(r), string(next.Error))
		}
		if s.instrumentation != nil {
			s.instrumentation.Metrics().RecordTokenRefresh(ctx, s.provider.Name(), false, false)
		}
		return
	}

	if next.Error == token.ErrorNone && next.AccessToken != prev.AccessToken {
		rotated := next.RefreshToken != prev.RefreshToken
		if s.auditor != nil {
			s.auditor.LogTokenRefreshed("", s.clientIP(r), rotated)
		}
		if s.instrumentation != nil {
			s.instrumentation.Metrics().RecordTokenRefresh(ctx, s.provider.Name(), true, rotated)
		}
	}
}

func (s *Server) clientIP(r *http.Request) string {
	return security.GetClientIP(r, s.config.Security.TrustProxy, s.config.Security.TrustedProxyCount)
}
