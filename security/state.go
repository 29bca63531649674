package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// stateEntropyBytes is the entropy of a generated logout state.
// 16 bytes = 128 bits, the floor for a single-use CSRF correlation value.
const stateEntropyBytes = 16

// GenerateLogoutState returns a cryptographically random, URL-safe state
// value binding a provider logout round-trip to the browser that initiated
// it. The function panics if the system RNG fails, which indicates a
// system-level failure no caller can recover from.
func GenerateLogoutState() string {
	b := make([]byte, stateEntropyBytes)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand.Read failed: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// StatesEqual compares a state value from the callback URL with the value
// stored in the browser cookie. Both values must be present and non-empty;
// the comparison itself is constant-time.
func StatesEqual(fromURL, fromCookie string) bool {
	if fromURL == "" || fromCookie == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(fromURL), []byte(fromCookie)) == 1
}
