package oidc

import (
	"fmt"
	"net"
	"net/url"
)

// ValidateIssuerURL validates an OIDC issuer URL before any request is made
// to it. HTTPS is mandatory, and hostnames resolving to loopback, private,
// or link-local addresses are rejected to keep a misconfigured issuer from
// turning discovery into an SSRF primitive against internal services.
func ValidateIssuerURL(issuerURL string) error {
	u, err := url.Parse(issuerURL)
	if err != nil {
		return fmt.Errorf("invalid issuer URL: %w", err)
	}

	if u.Scheme != "https" {
		return fmt.Errorf("issuer URL must use HTTPS, got %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("issuer URL must have a hostname")
	}

	if ip := net.ParseIP(host); ip != nil {
		switch {
		case ip.IsLoopback():
			return fmt.Errorf("issuer URL must not point to loopback addresses")
		case ip.IsPrivate():
			return fmt.Errorf("issuer URL must not point to private IP ranges")
		case ip.IsLinkLocalUnicast():
			return fmt.Errorf("issuer URL must not point to link-local addresses")
		case ip.IsUnspecified():
			return fmt.Errorf("issuer URL must not point to unspecified addresses")
		}
	}

	return nil
}
