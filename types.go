package oidcsession

// HTTP routes served by the Handler
const (
	// RouteSession serves the client-visible session projection
	RouteSession = "/api/auth/session"

	// RouteLogout initiates provider logout (POST)
	RouteLogout = "/api/auth/logout"

	// RouteLogoutCallback completes provider logout after the redirect back
	RouteLogoutCallback = "/api/auth/logout/callback"

	// RouteUserInfo proxies the provider userinfo endpoint
	RouteUserInfo = "/api/userinfo"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	// Error is the error code
	Error string `json:"error"`

	// ErrorDescription provides additional information
	ErrorDescription string `json:"error_description,omitempty"`
}
