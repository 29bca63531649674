// Package oidc implements OIDC discovery for the session library. It fetches
// and caches the provider's openid-configuration document and validates the
// issuer URL and all discovered endpoints (HTTPS enforcement, SSRF
// protection) before any of them is used.
package oidc
