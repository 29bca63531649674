// Package security provides the security primitives used by the session
// library: logout-state generation and comparison, cookie key derivation,
// clock-skew-aware expiry helpers, rate limiting, security response headers,
// request ID propagation, client IP extraction, and audit logging.
package security
