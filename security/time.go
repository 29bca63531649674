package security

import "time"

// DefaultClockSkewGracePeriod compensates for clock drift between this
// process, the browser, and the provider when judging whether a token is
// still presentable to a downstream API. It deliberately does NOT apply to
// the refresh decision: refreshing a few seconds early is harmless, handing
// out a dead bearer token is not.
const DefaultClockSkewGracePeriod = 5 * time.Second

// IsExpired reports whether an epoch-millisecond expiry has passed,
// tolerating DefaultClockSkewGracePeriod of drift.
func IsExpired(expiresAt int64, now time.Time) bool {
	return IsExpiredWithGracePeriod(expiresAt, now, DefaultClockSkewGracePeriod)
}

// IsExpiredWithGracePeriod reports whether an epoch-millisecond expiry has
// passed, with a custom grace period.
func IsExpiredWithGracePeriod(expiresAt int64, now time.Time, gracePeriod time.Duration) bool {
	if expiresAt == 0 {
		return false
	}
	return now.After(time.UnixMilli(expiresAt).Add(gracePeriod))
}
