package oidcsession

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/oidc-session/instrumentation"
	"github.com/giantswarm/oidc-session/security"
	"github.com/giantswarm/oidc-session/token"
)

// Handler is a thin HTTP adapter for the session Server.
// It handles HTTP requests and delegates to the Server for business logic.
type Handler struct {
	server *Server
	logger *slog.Logger
	tracer trace.Tracer
}

// NewHandler creates a new HTTP handler
func NewHandler(server *Server, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		server: server,
		logger: logger,
	}

	if server.instrumentation != nil {
		h.tracer = server.instrumentation.Tracer("http")
	}

	return h
}

// RegisterRoutes registers all session routes on the mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle(RouteSession, security.RequestIDMiddleware(http.HandlerFunc(h.ServeSession)))
	mux.Handle(RouteUserInfo, security.RequestIDMiddleware(http.HandlerFunc(h.ServeUserInfo)))
	mux.Handle(RouteLogout, security.RequestIDMiddleware(http.HandlerFunc(h.ServeLogout)))
	mux.Handle(RouteLogoutCallback, security.RequestIDMiddleware(http.HandlerFunc(h.ServeLogoutCallback)))
}

// ServeSession serves the client-visible session projection. The response
// never contains the refresh token; an expired-and-unrefreshable session
// surfaces as an error marker in the body, not an HTTP error.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var span trace.Span
	ctx := r.Context()
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "session.http.session")
		defer span.End()
		r = r.WithContext(ctx)
	}

	if r.Method != http.MethodGet {
		h.recordHTTPMetrics("session", r.Method, http.StatusMethodNotAllowed, startTime)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := h.clientIP(r)
	if h.checkIPRateLimit(w, r, clientIP) {
		return
	}

	security.SetSecurityHeaders(w, h.server.config.BaseURL)

	set, ok, err := h.server.SessionTokens(ctx, w, r)
	if err != nil {
		h.logger.Error("Failed to advance session", "error", err)
		h.recordHTTPMetrics("session", http.MethodGet, http.StatusInternalServerError, startTime)
		instrumentation.RecordError(span, err)
		h.writeError(w, ErrorCodeServerError, "Failed to load session", http.StatusInternalServerError)
		return
	}

	// An anonymous request gets an empty projection rather than an error:
	// the endpoint answers "who am I", and "nobody" is a valid answer.
	var session token.Session
	if ok {
		session = token.Project(set)
	}

	instrumentation.SetSpanAttributes(span,
		attribute.Bool("session.present", ok),
		attribute.Bool("session.errored", session.Error != ""),
	)
	instrumentation.SetSpanSuccess(span)
	h.recordHTTPMetrics("session", http.MethodGet, http.StatusOK, startTime)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(session)
}

// ServeUserInfo proxies the provider userinfo endpoint using the session's
// access token. The token never reaches the browser; the browser only ever
// holds the session cookie.
func (h *Handler) ServeUserInfo(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var span trace.Span
	ctx := r.Context()
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "session.http.userinfo")
		defer span.End()
		r = r.WithContext(ctx)
	}

	if r.Method != http.MethodGet {
		h.recordHTTPMetrics("userinfo", r.Method, http.StatusMethodNotAllowed, startTime)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := h.clientIP(r)
	if h.checkIPRateLimit(w, r, clientIP) {
		return
	}

	security.SetSecurityHeaders(w, h.server.config.BaseURL)

	set, ok, err := h.server.SessionTokens(ctx, w, r)
	if err != nil {
		h.logger.Error("Failed to advance session", "error", err)
		h.recordHTTPMetrics("userinfo", http.MethodGet, http.StatusInternalServerError, startTime)
		instrumentation.RecordError(span, err)
		h.writeError(w, ErrorCodeServerError, "Failed to load session", http.StatusInternalServerError)
		return
	}
	if !ok {
		h.recordHTTPMetrics("userinfo", http.MethodGet, http.StatusUnauthorized, startTime)
		instrumentation.SetSpanError(span, "no active session")
		h.writeError(w, ErrNoActiveSession.Code, ErrNoActiveSession.Description, ErrNoActiveSession.Status)
		return
	}
	if !set.Usable(time.Now()) {
		h.recordHTTPMetrics("userinfo", http.MethodGet, http.StatusUnauthorized, startTime)
		instrumentation.SetSpanError(span, "session not usable")
		h.writeError(w, ErrorCodeInvalidToken, "Session access token is expired or errored", http.StatusUnauthorized)
		return
	}

	data, err := h.server.provider.UserInfo(ctx, set.AccessToken)
	if err != nil {
		h.logger.Error("Userinfo request failed", "provider", h.server.provider.Name(), "error", err)
		h.recordHTTPMetrics("userinfo", http.MethodGet, http.StatusBadGateway, startTime)
		instrumentation.RecordError(span, err)
		h.writeError(w, ErrorCodeServerError, "Failed to fetch user info", http.StatusBadGateway)
		return
	}

	instrumentation.SetSpanSuccess(span)
	h.recordHTTPMetrics("userinfo", http.MethodGet, http.StatusOK, startTime)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// ServeLogout initiates RP-initiated logout: it mints a state value, binds it
// to the browser via the state cookie, and redirects to the provider's end
// session endpoint with id_token_hint, post_logout_redirect_uri, and state.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var span trace.Span
	ctx := r.Context()
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "session.http.logout")
		defer span.End()
		r = r.WithContext(ctx)
	}

	// POST only: logout mutates state, so it must not be reachable via a
	// cross-site top-level navigation.
	if r.Method != http.MethodPost {
		h.recordHTTPMetrics("logout", r.Method, http.StatusMethodNotAllowed, startTime)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := h.clientIP(r)
	if h.checkIPRateLimit(w, r, clientIP) {
		return
	}

	security.SetSecurityHeaders(w, h.server.config.BaseURL)

	set, ok, err := h.server.sessions.Load(r)
	if err != nil {
		h.logger.Error("Failed to load session", "error", err)
		h.recordHTTPMetrics("logout", http.MethodPost, http.StatusInternalServerError, startTime)
		instrumentation.RecordError(span, err)
		h.writeError(w, ErrorCodeServerError, "Failed to load session", http.StatusInternalServerError)
		return
	}
	if !ok {
		// Nothing to log out. Send the browser home rather than to the
		// provider.
		h.recordHTTPMetrics("logout", http.MethodPost, http.StatusSeeOther, startTime)
		instrumentation.SetSpanSuccess(span)
		http.Redirect(w, r, h.server.config.Logout.RedirectPath, http.StatusSeeOther)
		return
	}

	redirectURL, state, err := h.server.logout.Initiate(ctx, set.IDToken)
	if errors.Is(err, ErrNoActiveSession) {
		h.recordHTTPMetrics("logout", http.MethodPost, http.StatusSeeOther, startTime)
		instrumentation.SetSpanSuccess(span)
		http.Redirect(w, r, h.server.config.Logout.RedirectPath, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.logger.Error("Failed to initiate logout", "provider", h.server.provider.Name(), "error", err)
		h.recordHTTPMetrics("logout", http.MethodPost, http.StatusBadGateway, startTime)
		instrumentation.RecordError(span, err)
		h.writeError(w, ErrorCodeServerError, "Failed to initiate logout", http.StatusBadGateway)
		return
	}

	h.server.stateCookie.Set(w, state)

	if h.server.auditor != nil {
		h.server.auditor.LogLogoutInitiated("", clientIP)
	}
	if h.server.instrumentation != nil {
		h.server.instrumentation.Metrics().RecordLogoutInitiated(ctx, h.server.provider.Name())
	}

	instrumentation.SetSpanSuccess(span)
	h.recordHTTPMetrics("logout", http.MethodPost, http.StatusSeeOther, startTime)

	http.Redirect(w, r, redirectURL, http.StatusSeeOther)
}

// ServeLogoutCallback completes logout after the provider redirects back.
// The state parameter must match the state cookie; on mismatch the session
// is left intact and the request fails. On success the session cookie is
// cleared and Clear-Site-Data instructs the browser to drop cookies.
func (h *Handler) ServeLogoutCallback(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var span trace.Span
	ctx := r.Context()
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "session.http.logout_callback")
		defer span.End()
		r = r.WithContext(ctx)
	}

	if r.Method != http.MethodGet {
		h.recordHTTPMetrics("logout_callback", r.Method, http.StatusMethodNotAllowed, startTime)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := h.clientIP(r)
	if h.checkIPRateLimit(w, r, clientIP) {
		return
	}

	security.SetSecurityHeaders(w, h.server.config.BaseURL)

	paramState := r.URL.Query().Get("state")
	cookieState := h.server.stateCookie.Read(r)

	// The state value is single-use. Expire the cookie no matter how
	// validation turns out.
	h.server.stateCookie.Clear(w)

	if err := h.server.logout.ValidateCallback(cookieState, paramState); err != nil {
		h.logger.Warn("Logout callback rejected",
			"ip", clientIP,
			"state_param_present", paramState != "",
			"state_cookie_present", cookieState != "")
		if h.server.auditor != nil {
			h.server.auditor.LogLogoutStateMismatch(clientIP, ReasonInvalidState)
		}
		if h.server.instrumentation != nil {
			h.server.instrumentation.Metrics().RecordLogoutStateMismatch(ctx)
		}
		h.recordHTTPMetrics("logout_callback", http.MethodGet, http.StatusSeeOther, startTime)
		instrumentation.SetSpanAttributes(span, attribute.Bool(instrumentation.AttrStateValid, false))
		instrumentation.SetSpanError(span, "logout state mismatch")

		// The session stays intact and the browser is sent to the error
		// page with the failure reason.
		errorURL := h.server.config.Logout.ErrorRedirectPath + "?reason=" + url.QueryEscape(ReasonInvalidState)
		http.Redirect(w, r, errorURL, http.StatusSeeOther)
		return
	}

	if err := h.server.sessions.Clear(w, r); err != nil {
		h.logger.Error("Failed to clear session", "error", err)
		h.recordHTTPMetrics("logout_callback", http.MethodGet, http.StatusInternalServerError, startTime)
		instrumentation.RecordError(span, err)
		h.writeError(w, ErrorCodeServerError, "Failed to clear session", http.StatusInternalServerError)
		return
	}

	// Clear-Site-Data removes any leftover cookies scoped to the
	// application origin beyond the session cookie itself.
	w.Header().Set("Clear-Site-Data", `"cookies"`)

	if h.server.auditor != nil {
		h.server.auditor.LogLogoutCompleted(clientIP)
	}
	if h.server.instrumentation != nil {
		h.server.instrumentation.Metrics().RecordLogoutCompleted(ctx, h.server.provider.Name())
	}

	instrumentation.SetSpanAttributes(span, attribute.Bool(instrumentation.AttrStateValid, true))
	instrumentation.SetSpanSuccess(span)
	h.recordHTTPMetrics("logout_callback", http.MethodGet, http.StatusSeeOther, startTime)

	http.Redirect(w, r, h.server.config.Logout.RedirectPath, http.StatusSeeOther)
}

// checkIPRateLimit checks if the client IP is rate limited. Returns true if limited.
func (h *Handler) checkIPRateLimit(w http.ResponseWriter, r *http.Request, clientIP string) bool {
	if h.server.rateLimiter == nil || h.server.rateLimiter.Allow(clientIP) {
		return false
	}

	h.logger.Warn("Rate limit exceeded", "ip", clientIP, "endpoint", r.URL.Path)
	if h.server.instrumentation != nil {
		h.server.instrumentation.Metrics().RecordRateLimitExceeded(r.Context(), "ip")
	}
	if h.server.auditor != nil {
		h.server.auditor.LogRateLimitExceeded(clientIP, r.URL.Path)
	}
	w.Header().Set("Retry-After", "60")
	h.writeError(w, ErrorCodeRateLimitExceeded, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
	return true
}

func (h *Handler) clientIP(r *http.Request) string {
	return security.GetClientIP(r, h.server.config.Security.TrustProxy, h.server.config.Security.TrustedProxyCount)
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, code, description string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}

// recordHTTPMetrics records request count and duration for an endpoint
func (h *Handler) recordHTTPMetrics(endpoint, method string, statusCode int, startTime time.Time) {
	if h.server.instrumentation == nil {
		return
	}
	durationMs := float64(time.Since(startTime)) / float64(time.Millisecond)
	h.server.instrumentation.Metrics().RecordHTTPRequest(context.Background(), method, endpoint, statusCode, durationMs)
}
