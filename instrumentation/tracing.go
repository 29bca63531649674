package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys.
//
// SECURITY WARNING: Never put actual credential values (access tokens,
// refresh tokens, ID tokens, session cookie contents, logout state values)
// in traces or metrics. Only metadata such as provider names, expiry times,
// and validation outcomes is safe. Traces are persisted, replicated across
// monitoring infrastructure, and visible to wider audiences than production
// systems.
const (
	// Session attributes. Metadata only.
	AttrProvider       = "session.provider"        // Provider name (non-secret)
	AttrSessionSeeded  = "session.seeded"          // Whether the request seeded a new session
	AttrTokenExpired   = "session.token.expired"   //nolint:gosec // Whether the access token was past expiry
	AttrTokenRefreshed = "session.token.refreshed" //nolint:gosec // Whether a refresh was attempted
	AttrTokenRotated   = "session.token.rotated"   //nolint:gosec // Whether the refresh token was rotated
	AttrSessionError   = "session.error"           // Sticky session error marker, if set
	AttrStateValid     = "session.logout.state_valid"

	// Provider attributes
	AttrProviderName      = "provider.name"
	AttrProviderOperation = "provider.operation"
	AttrProviderStatus    = "provider.status"
	AttrProviderErrorType = "provider.error_type"

	// Security attributes
	AttrRateLimiterType = "security.rate_limiter.type"
	AttrClientIP        = "security.client_ip"
	AttrAuditEventType  = "security.audit.event_type"

	// HTTP attributes (in addition to standard semantic conventions)
	AttrHTTPEndpoint   = "http.endpoint"
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
)

// RecordError records an error on a span with proper status codes (nil-safe).
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe).
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe).
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe).
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddSessionAttributes adds session lifecycle attributes to a span
// (nil-safe).
func AddSessionAttributes(span trace.Span, provider string, expired, refreshed bool) {
	if provider != "" {
		SetSpanAttributes(span, attribute.String(AttrProvider, provider))
	}
	SetSpanAttributes(span,
		attribute.Bool(AttrTokenExpired, expired),
		attribute.Bool(AttrTokenRefreshed, refreshed),
	)
}

// AddProviderAttributes adds provider call attributes to a span (nil-safe).
func AddProviderAttributes(span trace.Span, providerName, operation string) {
	SetSpanAttributes(span,
		attribute.String(AttrProviderName, providerName),
		attribute.String(AttrProviderOperation, operation),
	)
}

// AddHTTPAttributes adds HTTP request attributes to a span (nil-safe).
func AddHTTPAttributes(span trace.Span, method, endpoint string, statusCode int) {
	SetSpanAttributes(span,
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPEndpoint, endpoint),
		attribute.Int(AttrHTTPStatusCode, statusCode),
	)
}

// AddSecurityAttributes adds security attributes to a span (nil-safe).
//
// PRIVACY NOTE: client IP addresses may be Personally Identifiable
// Information. Check instrumentation.ShouldLogClientIPs() before calling.
func AddSecurityAttributes(span trace.Span, clientIP string) {
	if clientIP != "" {
		SetSpanAttributes(span, attribute.String(AttrClientIP, clientIP))
	}
}
