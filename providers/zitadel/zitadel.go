package zitadel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/oidc-session/providers/oidc"
)

// maxUserInfoResponseSize bounds the userinfo body read (1 MiB). ZITADEL
// userinfo documents are a few KB; anything larger is misbehavior.
const maxUserInfoResponseSize = 1 << 20

// defaultScopes are requested when the config does not override them.
// offline_access is required for refresh tokens.
var defaultScopes = []string{"openid", "profile", "email", "offline_access"}

// Provider implements providers.Provider for ZITADEL.
type Provider struct {
	*oauth2.Config
	discoveryClient *oidc.DiscoveryClient
	issuerURL       string
	httpClient      *http.Client
	requestTimeout  time.Duration
}

// Config holds ZITADEL provider configuration.
type Config struct {
	// IssuerURL is the ZITADEL instance URL (e.g. https://my-org.zitadel.cloud).
	IssuerURL string

	// ClientID is the OAuth client ID.
	ClientID string

	// ClientSecret is the OAuth client secret. Empty for public clients using
	// PKCE without a secret.
	ClientSecret string

	// Scopes overrides the default scope set.
	Scopes []string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	// RequestTimeout bounds provider API calls (default: 30s).
	RequestTimeout time.Duration

	// skipValidation disables SSRF protection for issuer URLs.
	// Tests with local listeners only; production code must never set it.
	skipValidation bool
}

// NewProvider creates a ZITADEL provider. It performs OIDC discovery once at
// construction to resolve the token endpoint; the end-session and userinfo
// endpoints are resolved on demand through the discovery cache.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.IssuerURL == "" {
		return nil, fmt.Errorf("issuer URL is required")
	}
	if !cfg.skipValidation {
		if err := oidc.ValidateIssuerURL(cfg.IssuerURL); err != nil {
			return nil, fmt.Errorf("invalid issuer URL: %w", err)
		}
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	discoveryClient := newDiscoveryClient(cfg.skipValidation, httpClient)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	doc, err := discoveryClient.Discover(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("OIDC discovery failed: %w", err)
	}

	return &Provider{
		Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  doc.AuthorizationEndpoint,
				TokenURL: doc.TokenEndpoint,
			},
		},
		discoveryClient: discoveryClient,
		issuerURL:       cfg.IssuerURL,
		httpClient:      httpClient,
		requestTimeout:  requestTimeout,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "zitadel"
}

// RefreshToken performs the refresh-token grant. ZITADEL may rotate the
// refresh token; the oauth2 library captures the rotated value from the
// response, and returns the token with an empty RefreshToken field when the
// provider chose to reuse the old one.
func (p *Provider) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tokenSource := p.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	return newToken, nil
}

// EndSessionEndpoint resolves ZITADEL's RP-initiated-logout endpoint via
// discovery. An absent end_session_endpoint is an error: the caller cannot
// build a provider logout URL without it.
func (p *Provider) EndSessionEndpoint(ctx context.Context) (string, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	doc, err := p.discoveryClient.Discover(ctx, p.issuerURL)
	if err != nil {
		return "", fmt.Errorf("OIDC discovery failed: %w", err)
	}
	if doc.EndSessionEndpoint == "" {
		return "", fmt.Errorf("provider does not advertise an end_session_endpoint")
	}

	return doc.EndSessionEndpoint, nil
}

// UserInfo fetches the userinfo document for the given access token and
// returns the raw JSON body.
func (p *Provider) UserInfo(ctx context.Context, accessToken string) ([]byte, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	endpoint, err := p.userInfoEndpoint(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read userinfo response: %w", err)
	}

	return body, nil
}

// userInfoEndpoint resolves the userinfo endpoint via discovery, falling back
// to ZITADEL's fixed path when the document omits it.
func (p *Provider) userInfoEndpoint(ctx context.Context) (string, error) {
	doc, err := p.discoveryClient.Discover(ctx, p.issuerURL)
	if err != nil {
		return "", fmt.Errorf("OIDC discovery failed: %w", err)
	}
	if doc.UserInfoEndpoint != "" {
		return doc.UserInfoEndpoint, nil
	}
	return p.issuerURL + "/oidc/v1/userinfo", nil
}

// HealthCheck verifies the provider is reachable by fetching (or refetching)
// the discovery document.
func (p *Provider) HealthCheck(ctx context.Context) error {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	if _, err := p.discoveryClient.Discover(ctx, p.issuerURL); err != nil {
		return fmt.Errorf("provider health check failed: %w", err)
	}
	return nil
}

// newDiscoveryClient creates the discovery client, downgrading validation
// only for tests.
func newDiscoveryClient(skipValidation bool, httpClient *http.Client) *oidc.DiscoveryClient {
	if skipValidation {
		return oidc.NewTestDiscoveryClient(httpClient, 1*time.Hour, nil)
	}
	return oidc.NewDiscoveryClient(httpClient, 1*time.Hour, nil)
}

// ensureContextTimeout bounds provider calls that arrive without a deadline.
func (p *Provider) ensureContextTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.requestTimeout)
}
