package oidcsession

import (
	"fmt"
	"net/http"
)

// Error codes returned in JSON error responses
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeInvalidState      = "invalid_state"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeNoActiveSession   = "no_active_session"
	ErrorCodeServerError       = "server_error"
	ErrorCodeRateLimitExceeded = "rate_limit_exceeded"
)

// ReasonInvalidState is the description returned when a logout callback
// carries a missing or mismatched state parameter. The wording is fixed so
// callers and monitoring can match on it.
const ReasonInvalidState = "Invalid or missing state parameter"

// AuthError represents an error surfaced to HTTP clients
type AuthError struct {
	Code        string // Error code (e.g., "invalid_state", "no_active_session")
	Description string // Human-readable error description
	Status      int    // HTTP status code
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewAuthError creates a new auth error
func NewAuthError(code, description string, status int) *AuthError {
	return &AuthError{
		Code:        code,
		Description: description,
		Status:      status,
	}
}

// Common errors as reusable instances
var (
	// ErrInvalidRequest indicates the request is malformed or missing required parameters
	ErrInvalidRequest = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeInvalidRequest, desc, http.StatusBadRequest)
	}

	// ErrInvalidLogoutState indicates the logout callback state did not match
	// the value bound to the browser. The session is left intact.
	ErrInvalidLogoutState = NewAuthError(ErrorCodeInvalidState, ReasonInvalidState, http.StatusBadRequest)

	// ErrNoActiveSession indicates the request carried no usable session
	ErrNoActiveSession = NewAuthError(ErrorCodeNoActiveSession, "No active session", http.StatusUnauthorized)

	// ErrInvalidToken indicates the session's access token is expired or marked errored
	ErrInvalidToken = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeInvalidToken, desc, http.StatusUnauthorized)
	}

	// ErrServerError indicates an internal server error occurred
	ErrServerError = func(desc string) *AuthError {
		return NewAuthError(ErrorCodeServerError, desc, http.StatusInternalServerError)
	}
)
