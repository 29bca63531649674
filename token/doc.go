// Package token implements the per-session token state machine: the TokenSet
// carried in the client-side session cookie, the lifecycle manager that decides
// between pass-through, refresh, and forced re-authentication, and the refresh
// executor that performs the refresh-token grant against the provider.
//
// The lifecycle manager is side-effect-free: given the stored TokenSet and an
// optional freshly completed login, it returns the TokenSet to persist. All
// network I/O is delegated to the RefreshExecutor, which makes at most one
// refresh attempt per invocation. Refresh failures are represented as data (the
// sticky Error flag on the TokenSet), not as error returns, so callers are
// forced to handle the re-authentication path.
package token
