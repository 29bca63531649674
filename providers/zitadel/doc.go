// Package zitadel implements the providers.Provider interface for ZITADEL.
// Endpoints are resolved through OIDC discovery; the refresh-token grant goes
// through golang.org/x/oauth2, which transparently captures rotated refresh
// tokens from the provider response.
package zitadel
