package oidcsession

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/oidc-session/providers/mock"
	"github.com/giantswarm/oidc-session/store"
	"github.com/giantswarm/oidc-session/token"
)

var testSessionSecret = bytes.Repeat([]byte("s"), 32)

type testFixture struct {
	provider *mock.MockProvider
	server   *Server
	mux      *http.ServeMux
}

func newTestFixture(t *testing.T, mutate func(*Config)) *testFixture {
	t.Helper()

	provider := mock.NewMockProvider()
	config := &Config{
		BaseURL: "https://app.example.com",
		Session: SessionConfig{Secret: testSessionSecret},
	}
	if mutate != nil {
		mutate(config)
	}

	server, err := NewServer(provider, config, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(server.Close)

	mux := http.NewServeMux()
	NewHandler(server, nil).RegisterRoutes(mux)

	return &testFixture{provider: provider, server: server, mux: mux}
}

// seedSession runs CompleteLogin and returns the resulting cookies.
func (f *testFixture) seedSession(t *testing.T, account *token.ProviderAccount) []*http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/callback", nil)
	if err := f.server.CompleteLogin(context.Background(), w, r, account); err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}
	return w.Result().Cookies()
}

// saveTokens writes an arbitrary token set into a session cookie.
func (f *testFixture) saveTokens(t *testing.T, set token.TokenSet) []*http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := f.server.sessions.Save(w, r, set); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return w.Result().Cookies()
}

func (f *testFixture) do(method, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, r)
	return w
}

func freshAccount() *token.ProviderAccount {
	return &token.ProviderAccount{
		IDToken:      "id-1",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresIn:    3600,
	}
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestCompleteLoginSetsSessionCookie(t *testing.T) {
	f := newTestFixture(t, nil)

	cookies := f.seedSession(t, freshAccount())
	session := cookieByName(cookies, store.DefaultSessionCookieName)
	if session == nil {
		t.Fatal("CompleteLogin did not set the session cookie")
	}
	if session.Value == "" {
		t.Error("session cookie has an empty value")
	}
	if strings.Contains(session.Value, "access-1") || strings.Contains(session.Value, "refresh-1") {
		t.Error("session cookie exposes token values in plaintext")
	}
}

func TestServeSessionAnonymous(t *testing.T) {
	f := newTestFixture(t, nil)

	w := f.do(http.MethodGet, RouteSession, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "{}" {
		t.Errorf("anonymous session body = %q, want empty object", got)
	}
}

func TestServeSessionProjection(t *testing.T) {
	f := newTestFixture(t, nil)
	cookies := f.seedSession(t, freshAccount())

	w := f.do(http.MethodGet, RouteSession, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var session token.Session
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if session.AccessToken != "access-1" {
		t.Errorf("accessToken = %q, want %q", session.AccessToken, "access-1")
	}
	if session.IDToken != "id-1" {
		t.Errorf("idToken = %q, want %q", session.IDToken, "id-1")
	}
	if session.Error != "" {
		t.Errorf("error = %q, want empty", session.Error)
	}
	if strings.Contains(strings.ToLower(w.Body.String()), "refresh") {
		t.Errorf("session response leaks refresh token material: %s", w.Body.String())
	}
}

func TestServeSessionRefreshesExpiredToken(t *testing.T) {
	f := newTestFixture(t, nil)

	cookies := f.saveTokens(t, token.TokenSet{
		IDToken:      "id-1",
		AccessToken:  "stale-access",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Minute).UnixMilli(),
	})

	w := f.do(http.MethodGet, RouteSession, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var session token.Session
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if session.AccessToken != "mock-refreshed-access-token" {
		t.Errorf("accessToken = %q, want the refreshed token", session.AccessToken)
	}
	if got := f.provider.CallCount("RefreshToken"); got != 1 {
		t.Errorf("RefreshToken called %d times, want 1", got)
	}
	if cookieByName(w.Result().Cookies(), store.DefaultSessionCookieName) == nil {
		t.Error("refreshed token set was not written back to the session cookie")
	}
}

func TestServeSessionRefreshFailureSurfacesAsData(t *testing.T) {
	f := newTestFixture(t, nil)
	f.provider.RefreshTokenFunc = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		return nil, fmt.Errorf("provider unreachable")
	}

	cookies := f.saveTokens(t, token.TokenSet{
		AccessToken:  "stale-access",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Minute).UnixMilli(),
	})

	w := f.do(http.MethodGet, RouteSession, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with an error marker in the body", w.Code)
	}

	var session token.Session
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if session.Error != string(token.ErrorRefreshAccessToken) {
		t.Errorf("error = %q, want %q", session.Error, token.ErrorRefreshAccessToken)
	}

	// The errored set is persisted, so a second request must not hit the
	// provider again.
	updated := cookieByName(w.Result().Cookies(), store.DefaultSessionCookieName)
	if updated == nil {
		t.Fatal("errored token set was not written back to the session cookie")
	}
	w2 := f.do(http.MethodGet, RouteSession, []*http.Cookie{updated})
	if w2.Code != http.StatusOK {
		t.Fatalf("second request status = %d, want 200", w2.Code)
	}
	if got := f.provider.CallCount("RefreshToken"); got != 1 {
		t.Errorf("RefreshToken called %d times across both requests, want 1", got)
	}
}

func TestServeSessionTamperedCookie(t *testing.T) {
	f := newTestFixture(t, nil)
	cookies := f.seedSession(t, freshAccount())

	session := cookieByName(cookies, store.DefaultSessionCookieName)
	session.Value = "tampered" + session.Value

	w := f.do(http.MethodGet, RouteSession, []*http.Cookie{session})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "{}" {
		t.Errorf("tampered cookie body = %q, want empty object", got)
	}
}

func TestServeSessionMethodNotAllowed(t *testing.T) {
	f := newTestFixture(t, nil)

	w := f.do(http.MethodPost, RouteSession, nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestServeSessionSecurityHeaders(t *testing.T) {
	f := newTestFixture(t, nil)

	w := f.do(http.MethodGet, RouteSession, nil)
	if got := w.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("response is missing the request ID header")
	}
}

func TestServeUserInfo(t *testing.T) {
	f := newTestFixture(t, nil)
	cookies := f.seedSession(t, freshAccount())

	w := f.do(http.MethodGet, RouteUserInfo, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "mock-user-123") {
		t.Errorf("userinfo body = %s, want provider claims", w.Body.String())
	}
}

func TestServeUserInfoNoSession(t *testing.T) {
	f := newTestFixture(t, nil)

	w := f.do(http.MethodGet, RouteUserInfo, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestServeUserInfoErroredSession(t *testing.T) {
	f := newTestFixture(t, nil)

	cookies := f.saveTokens(t, token.TokenSet{
		AccessToken: "stale-access",
		ExpiresAt:   time.Now().Add(-time.Minute).UnixMilli(),
		Error:       token.ErrorRefreshAccessToken,
	})

	w := f.do(http.MethodGet, RouteUserInfo, cookies)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if got := f.provider.CallCount("UserInfo"); got != 0 {
		t.Errorf("UserInfo called %d times for an unusable session, want 0", got)
	}
}

func TestServeUserInfoProviderFailure(t *testing.T) {
	f := newTestFixture(t, nil)
	f.provider.UserInfoFunc = func(ctx context.Context, accessToken string) ([]byte, error) {
		return nil, fmt.Errorf("provider unreachable")
	}
	cookies := f.seedSession(t, freshAccount())

	w := f.do(http.MethodGet, RouteUserInfo, cookies)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestServeLogout(t *testing.T) {
	f := newTestFixture(t, nil)
	cookies := f.seedSession(t, freshAccount())

	w := f.do(http.MethodPost, RouteLogout, cookies)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303: %s", w.Code, w.Body.String())
	}

	location, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Location does not parse: %v", err)
	}
	q := location.Query()
	if got := q.Get("id_token_hint"); got != "id-1" {
		t.Errorf("id_token_hint = %q, want %q", got, "id-1")
	}
	if got := q.Get("post_logout_redirect_uri"); got != "https://app.example.com"+RouteLogoutCallback {
		t.Errorf("post_logout_redirect_uri = %q", got)
	}

	state := cookieByName(w.Result().Cookies(), store.DefaultStateCookieName)
	if state == nil {
		t.Fatal("logout did not set the state cookie")
	}
	if state.Value != q.Get("state") {
		t.Errorf("state cookie %q does not match state parameter %q", state.Value, q.Get("state"))
	}
	if !state.HttpOnly {
		t.Error("state cookie is not HttpOnly")
	}
	if state.Path != RouteLogoutCallback {
		t.Errorf("state cookie path = %q, want %q", state.Path, RouteLogoutCallback)
	}
}

func TestServeLogoutNoSession(t *testing.T) {
	f := newTestFixture(t, nil)

	w := f.do(http.MethodPost, RouteLogout, nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/" {
		t.Errorf("Location = %q, want home redirect", got)
	}
	if got := f.provider.CallCount("EndSessionEndpoint"); got != 0 {
		t.Errorf("EndSessionEndpoint called %d times without a session, want 0", got)
	}
}

func TestServeLogoutWithoutIDToken(t *testing.T) {
	f := newTestFixture(t, nil)

	// A session seeded without an ID token has no provider session to end.
	cookies := f.saveTokens(t, token.TokenSet{
		AccessToken: "access-1",
		ExpiresAt:   time.Now().Add(time.Hour).UnixMilli(),
	})

	w := f.do(http.MethodPost, RouteLogout, cookies)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/" {
		t.Errorf("Location = %q, want home redirect", got)
	}
	if got := f.provider.CallCount("EndSessionEndpoint"); got != 0 {
		t.Errorf("EndSessionEndpoint called %d times without an ID token, want 0", got)
	}
}

func TestServeLogoutMethodNotAllowed(t *testing.T) {
	f := newTestFixture(t, nil)
	cookies := f.seedSession(t, freshAccount())

	w := f.do(http.MethodGet, RouteLogout, cookies)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

// initiateLogout drives the logout redirect and returns the state cookie and
// state parameter the provider would send back.
func (f *testFixture) initiateLogout(t *testing.T, sessionCookies []*http.Cookie) (state *http.Cookie, paramState string) {
	t.Helper()

	w := f.do(http.MethodPost, RouteLogout, sessionCookies)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("logout status = %d, want 303", w.Code)
	}
	location, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Location does not parse: %v", err)
	}
	state = cookieByName(w.Result().Cookies(), store.DefaultStateCookieName)
	if state == nil {
		t.Fatal("logout did not set the state cookie")
	}
	return state, location.Query().Get("state")
}

func TestServeLogoutCallbackSuccess(t *testing.T) {
	f := newTestFixture(t, nil)
	sessionCookies := f.seedSession(t, freshAccount())
	state, paramState := f.initiateLogout(t, sessionCookies)

	cookies := append([]*http.Cookie{state}, sessionCookies...)
	w := f.do(http.MethodGet, RouteLogoutCallback+"?state="+url.QueryEscape(paramState), cookies)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != "/" {
		t.Errorf("Location = %q, want %q", got, "/")
	}
	if got := w.Header().Get("Clear-Site-Data"); got != `"cookies"` {
		t.Errorf("Clear-Site-Data = %q, want %q", got, `"cookies"`)
	}

	responseCookies := w.Result().Cookies()
	session := cookieByName(responseCookies, store.DefaultSessionCookieName)
	if session == nil || session.MaxAge >= 0 {
		t.Error("session cookie was not cleared")
	}
	stateAfter := cookieByName(responseCookies, store.DefaultStateCookieName)
	if stateAfter == nil || stateAfter.MaxAge >= 0 {
		t.Error("state cookie was not cleared")
	}
}

func TestServeLogoutCallbackStateMismatch(t *testing.T) {
	f := newTestFixture(t, nil)
	sessionCookies := f.seedSession(t, freshAccount())
	state, _ := f.initiateLogout(t, sessionCookies)

	cookies := append([]*http.Cookie{state}, sessionCookies...)
	w := f.do(http.MethodGet, RouteLogoutCallback+"?state=forged", cookies)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	location, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Location does not parse: %v", err)
	}
	if location.Path != "/logout/error" {
		t.Errorf("Location path = %q, want the error page", location.Path)
	}
	if got := location.Query().Get("reason"); got != ReasonInvalidState {
		t.Errorf("reason = %q, want %q", got, ReasonInvalidState)
	}
	if w.Header().Get("Clear-Site-Data") != "" {
		t.Error("Clear-Site-Data set on a rejected callback")
	}

	responseCookies := w.Result().Cookies()
	if session := cookieByName(responseCookies, store.DefaultSessionCookieName); session != nil {
		t.Error("session cookie was touched on a state mismatch")
	}
	stateAfter := cookieByName(responseCookies, store.DefaultStateCookieName)
	if stateAfter == nil || stateAfter.MaxAge >= 0 {
		t.Error("state cookie was not cleared on mismatch")
	}
}

func TestServeLogoutCallbackMissingState(t *testing.T) {
	f := newTestFixture(t, nil)
	sessionCookies := f.seedSession(t, freshAccount())

	tests := []struct {
		name    string
		target  string
		cookies []*http.Cookie
	}{
		{
			name:    "no state parameter",
			target:  RouteLogoutCallback,
			cookies: func() []*http.Cookie { c, _ := f.initiateLogout(t, sessionCookies); return []*http.Cookie{c} }(),
		},
		{
			name:   "no state cookie",
			target: RouteLogoutCallback + "?state=abc123",
		},
		{
			name:   "neither",
			target: RouteLogoutCallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodGet, tt.target, append(tt.cookies, sessionCookies...))
			if w.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want 303", w.Code)
			}
			if !strings.HasPrefix(w.Header().Get("Location"), "/logout/error?reason=") {
				t.Errorf("Location = %q, want the error page with a reason", w.Header().Get("Location"))
			}
		})
	}
}

func TestRateLimiting(t *testing.T) {
	f := newTestFixture(t, func(c *Config) {
		c.RateLimit = RateLimitConfig{Rate: 1, Burst: 1}
	})

	first := f.do(http.MethodGet, RouteSession, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := f.do(http.MethodGet, RouteSession, nil)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("429 response is missing Retry-After")
	}
}

func TestNewServerValidation(t *testing.T) {
	valid := &Config{
		BaseURL: "https://app.example.com",
		Session: SessionConfig{Secret: testSessionSecret},
	}

	if _, err := NewServer(nil, valid, nil); err == nil {
		t.Error("NewServer() accepted a nil provider")
	}
	if _, err := NewServer(mock.NewMockProvider(), nil, nil); err == nil {
		t.Error("NewServer() accepted a nil config")
	}
	if _, err := NewServer(mock.NewMockProvider(), &Config{Session: SessionConfig{Secret: testSessionSecret}}, nil); err == nil {
		t.Error("NewServer() accepted an empty base URL")
	}
	if _, err := NewServer(mock.NewMockProvider(), &Config{BaseURL: "https://app.example.com", Session: SessionConfig{Secret: []byte("short")}}, nil); err == nil {
		t.Error("NewServer() accepted a short session secret")
	}
}
