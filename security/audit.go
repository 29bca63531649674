package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Auditor handles security event logging with PII protection. Subject
// identifiers are hashed before they reach the log stream; token values are
// never logged at all.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new security auditor. When enabled is false all
// logging calls are no-ops.
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// Event represents a security audit event.
type Event struct {
	Type      string
	Subject   string
	IPAddress string
	Details   map[string]any
}

// LogEvent logs a security event. Each event gets a unique ID so individual
// events can be referenced from incident tooling.
func (a *Auditor) LogEvent(event Event) {
	if !a.enabled {
		return
	}

	a.logger.Info("security_audit",
		"event_id", uuid.NewString(),
		"event_type", event.Type,
		"subject_hash", hashForLogging(event.Subject),
		"ip_address", event.IPAddress,
		"details", event.Details,
		"timestamp", time.Now(),
	)
}

// LogSessionSeeded logs a completed login seeding the token store.
func (a *Auditor) LogSessionSeeded(subject, ipAddress string, hasRefreshToken bool) {
	a.LogEvent(Event{
		Type:      EventSessionSeeded,
		Subject:   subject,
		IPAddress: ipAddress,
		Details: map[string]any{
			"refresh_token_present": hasRefreshToken,
		},
	})
}

// LogTokenRefreshed logs a successful refresh-token grant.
func (a *Auditor) LogTokenRefreshed(subject, ipAddress string, rotated bool) {
	a.LogEvent(Event{
		Type:      EventTokenRefreshed,
		Subject:   subject,
		IPAddress: ipAddress,
		Details: map[string]any{
			"rotated": rotated,
		},
	})
}

// LogTokenRefreshFailed logs a failed refresh-token grant.
func (a *Auditor) LogTokenRefreshFailed(subject, ipAddress, reason string) {
	a.LogEvent(Event{
		Type:      EventTokenRefreshFailed,
		Subject:   subject,
		IPAddress: ipAddress,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogLogoutInitiated logs a logout redirect to the provider.
func (a *Auditor) LogLogoutInitiated(subject, ipAddress string) {
	a.LogEvent(Event{
		Type:      EventLogoutInitiated,
		Subject:   subject,
		IPAddress: ipAddress,
	})
}

// LogLogoutCompleted logs a validated logout callback.
func (a *Auditor) LogLogoutCompleted(ipAddress string) {
	a.LogEvent(Event{
		Type:      EventLogoutCompleted,
		IPAddress: ipAddress,
	})
}

// LogLogoutStateMismatch logs a logout callback that failed state validation.
func (a *Auditor) LogLogoutStateMismatch(ipAddress, reason string) {
	a.LogEvent(Event{
		Type:      EventLogoutStateMismatch,
		IPAddress: ipAddress,
		Details: map[string]any{
			"severity": "warning",
			"reason":   reason,
		},
	})
}

// LogRateLimitExceeded logs a rate limit rejection.
func (a *Auditor) LogRateLimitExceeded(ipAddress, endpoint string) {
	a.LogEvent(Event{
		Type:      EventRateLimitExceeded,
		IPAddress: ipAddress,
		Details: map[string]any{
			"endpoint": endpoint,
		},
	})
}

// hashForLogging returns a short SHA-256 prefix of the value so events for
// the same subject correlate without exposing the identifier itself.
func hashForLogging(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:16]
}
