package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// TokenResponse is the token endpoint response the fake provider returns for
// refresh-token grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// IdentityProvider is a fake OIDC provider backed by httptest. It serves the
// discovery document, a refresh-token grant endpoint, a userinfo endpoint,
// and an end-session endpoint.
type IdentityProvider struct {
	Server *httptest.Server

	mu            sync.Mutex
	refreshCalls  int
	tokenResponse TokenResponse
	tokenStatus   int
	userInfo      map[string]any
}

// NewIdentityProvider starts a fake provider. Callers must Close it.
func NewIdentityProvider() *IdentityProvider {
	idp := &IdentityProvider{
		tokenStatus: http.StatusOK,
		tokenResponse: TokenResponse{
			AccessToken: "refreshed-access-token",
			TokenType:   "Bearer",
			ExpiresIn:   3600,
		},
		userInfo: map[string]any{
			"sub":   "user-1",
			"email": "user@example.com",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", idp.serveDiscovery)
	mux.HandleFunc("/oauth/v2/token", idp.serveToken)
	mux.HandleFunc("/oidc/v1/userinfo", idp.serveUserInfo)
	mux.HandleFunc("/oidc/v1/end_session", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	idp.Server = httptest.NewServer(mux)
	return idp
}

// Close shuts down the fake provider.
func (idp *IdentityProvider) Close() {
	idp.Server.Close()
}

// URL returns the issuer URL.
func (idp *IdentityProvider) URL() string {
	return idp.Server.URL
}

// SetTokenResponse sets the response for subsequent refresh-token grants.
func (idp *IdentityProvider) SetTokenResponse(resp TokenResponse) {
	idp.mu.Lock()
	defer idp.mu.Unlock()
	idp.tokenResponse = resp
	idp.tokenStatus = http.StatusOK
}

// FailTokenRequests makes the token endpoint return the given status with an
// OAuth error body.
func (idp *IdentityProvider) FailTokenRequests(status int) {
	idp.mu.Lock()
	defer idp.mu.Unlock()
	idp.tokenStatus = status
}

// RefreshCalls reports how many refresh-token grants the provider has seen.
func (idp *IdentityProvider) RefreshCalls() int {
	idp.mu.Lock()
	defer idp.mu.Unlock()
	return idp.refreshCalls
}

func (idp *IdentityProvider) serveDiscovery(w http.ResponseWriter, r *http.Request) {
	base := idp.Server.URL
	doc := map[string]any{
		"issuer":                 base,
		"authorization_endpoint": base + "/oauth/v2/authorize",
		"token_endpoint":         base + "/oauth/v2/token",
		"userinfo_endpoint":      base + "/oidc/v1/userinfo",
		"end_session_endpoint":   base + "/oidc/v1/end_session",
		"jwks_uri":               base + "/oauth/v2/keys",
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

func (idp *IdentityProvider) serveToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
		http.Error(w, fmt.Sprintf("unexpected grant_type %q", got), http.StatusBadRequest)
		return
	}

	idp.mu.Lock()
	idp.refreshCalls++
	status := idp.tokenStatus
	resp := idp.tokenResponse
	idp.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (idp *IdentityProvider) serveUserInfo(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	idp.mu.Lock()
	claims := idp.userInfo
	idp.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(claims)
}
