package security

// Event type constants for security audit logging. Using constants keeps
// event names consistent across the codebase and greppable in log storage.
const (
	// EventSessionSeeded is logged when a completed login seeds the session
	// token store.
	EventSessionSeeded = "session_seeded"

	// EventTokenRefreshed is logged when an access token is refreshed using a
	// refresh token.
	EventTokenRefreshed = "token_refreshed"

	// EventTokenRefreshFailed is logged when a refresh-token grant fails and
	// the session is flagged for re-authentication.
	EventTokenRefreshFailed = "token_refresh_failed"

	// EventLogoutInitiated is logged when a logout redirect to the provider
	// is issued.
	EventLogoutInitiated = "logout_initiated"

	// EventLogoutCompleted is logged when the logout callback validates and
	// the session is cleared.
	EventLogoutCompleted = "logout_completed"

	// EventLogoutStateMismatch is logged when the logout callback carries a
	// missing or mismatched state value. Possible CSRF attempt.
	EventLogoutStateMismatch = "logout_state_mismatch"

	// EventRateLimitExceeded is logged when a client exceeds the per-IP rate
	// limit on a session endpoint.
	EventRateLimitExceeded = "rate_limit_exceeded"
)
