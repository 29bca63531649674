// Package mock provides a mock implementation of the Provider interface for
// testing.
package mock

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// MockProvider is a configurable Provider for tests. Each method delegates to
// its corresponding Func field and counts the call.
type MockProvider struct {
	// NameFunc is called when Name() is invoked
	NameFunc func() string

	// RefreshTokenFunc is called when RefreshToken() is invoked
	RefreshTokenFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	// EndSessionEndpointFunc is called when EndSessionEndpoint() is invoked
	EndSessionEndpointFunc func(ctx context.Context) (string, error)

	// UserInfoFunc is called when UserInfo() is invoked
	UserInfoFunc func(ctx context.Context, accessToken string) ([]byte, error)

	// HealthCheckFunc is called when HealthCheck() is invoked
	HealthCheckFunc func(ctx context.Context) error

	// CallCounts tracks how many times each method was called
	CallCounts map[string]int

	// mu protects CallCounts from concurrent access
	mu sync.RWMutex
}

// NewMockProvider creates a mock provider with working default behavior:
// refreshes succeed with rotated tokens, the end-session endpoint resolves,
// and userinfo returns a small fixed document.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		CallCounts: make(map[string]int),
		NameFunc: func() string {
			return "mock"
		},
		RefreshTokenFunc: func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
			return &oauth2.Token{
				AccessToken:  "mock-refreshed-access-token",
				TokenType:    "Bearer",
				RefreshToken: "mock-rotated-refresh-token",
				Expiry:       time.Now().Add(time.Hour),
			}, nil
		},
		EndSessionEndpointFunc: func(ctx context.Context) (string, error) {
			return "https://mock.example.com/oidc/v1/end_session", nil
		},
		UserInfoFunc: func(ctx context.Context, accessToken string) ([]byte, error) {
			return []byte(`{"sub":"mock-user-123","email":"mock@example.com"}`), nil
		},
		HealthCheckFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// Name implements providers.Provider.
func (m *MockProvider) Name() string {
	m.recordCall("Name")
	return m.NameFunc()
}

// RefreshToken implements providers.Provider.
func (m *MockProvider) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	m.recordCall("RefreshToken")
	return m.RefreshTokenFunc(ctx, refreshToken)
}

// EndSessionEndpoint implements providers.Provider.
func (m *MockProvider) EndSessionEndpoint(ctx context.Context) (string, error) {
	m.recordCall("EndSessionEndpoint")
	return m.EndSessionEndpointFunc(ctx)
}

// UserInfo implements providers.Provider.
func (m *MockProvider) UserInfo(ctx context.Context, accessToken string) ([]byte, error) {
	m.recordCall("UserInfo")
	return m.UserInfoFunc(ctx, accessToken)
}

// HealthCheck implements providers.Provider.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	m.recordCall("HealthCheck")
	return m.HealthCheckFunc(ctx)
}

// CallCount returns how many times the named method was called.
func (m *MockProvider) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.CallCounts[method]
}

func (m *MockProvider) recordCall(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCounts[method]++
}
