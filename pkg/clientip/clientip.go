package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP extracts the peer address used as the rate-limiting key.
// Clients connect to this backend directly (no CDN or reverse proxy in
// front), so r.RemoteAddr is authoritative and forwarding headers are
// deliberately ignored - they would let a client pick its own bucket.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}
