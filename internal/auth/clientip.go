// ABOUTME: Resolves a single client address string from a request
// ABOUTME: Prefers the first X-Forwarded-For entry, falls back to the direct peer

package auth

import (
	"net"
	"net/http"
	"strings"
)

// ClientAddr derives the client's network address. The console normally
// sits behind a reverse proxy, so the first X-Forwarded-For entry wins;
// without the header the direct connection address is used.
func ClientAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
