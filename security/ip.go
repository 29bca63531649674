package security

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client IP address from the request for rate
// limiting and audit logging.
//
// trustProxy must only be enabled behind a reverse proxy you control:
// X-Forwarded-For is attacker-writable otherwise. trustedProxyCount says how
// many proxies sit in front of this process, counted from the right of the
// X-Forwarded-For list.
func GetClientIP(r *http.Request, trustProxy bool, trustedProxyCount int) string {
	if trustProxy {
		if ip := clientIPFromXFF(r.Header.Get("X-Forwarded-For"), trustedProxyCount); ip != "" {
			return ip
		}
		if ip := r.Header.Get("X-Real-IP"); net.ParseIP(strings.TrimSpace(ip)) != nil {
			return strings.TrimSpace(ip)
		}
	}
	return ipFromRemoteAddr(r.RemoteAddr)
}

// clientIPFromXFF picks the client IP out of an X-Forwarded-For list.
// The list reads "client, proxy1, proxy2"; the rightmost trustedProxyCount
// entries were appended by proxies we control, so the client is the entry
// just left of them.
func clientIPFromXFF(xff string, trustedProxyCount int) string {
	if xff == "" {
		return ""
	}
	if trustedProxyCount <= 0 {
		trustedProxyCount = 1
	}

	ips := strings.Split(xff, ",")
	idx := len(ips) - trustedProxyCount - 1
	if idx < 0 {
		idx = 0
	}

	ip := strings.TrimSpace(ips[idx])
	if net.ParseIP(ip) != nil {
		return ip
	}
	return ""
}

func ipFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// RemoteAddr without a port (some tests and proxies).
		return remoteAddr
	}
	return host
}
