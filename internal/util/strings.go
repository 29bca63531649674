// Package util provides small string helpers shared across the library.
package util

import "strings"

// SafeTruncate returns at most maxLen leading bytes of s without panicking on
// short input. It exists so log statements can show a token prefix without
// ever writing the full credential.
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// NormalizeURL strips trailing slashes so URLs that differ only in a trailing
// slash compare equal (issuer and post-logout redirect URI comparison).
func NormalizeURL(url string) string {
	return strings.TrimRight(url, "/")
}
