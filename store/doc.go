// Package store implements the client-side session state: the signed and
// encrypted cookie carrying the token set, and the single-use logout-state
// cookie that binds a provider logout round-trip to the browser that started
// it. Nothing is persisted server-side; every request reads and rewrites the
// cookie as a whole.
package store
