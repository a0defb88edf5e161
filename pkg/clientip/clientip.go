package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Common proxy headers. None are trusted unless passed to FromRequest or
// Middleware explicitly, because any client can set them.
const (
	HeaderCFConnectingIP = "CF-Connecting-IP"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderXRealIP        = "X-Real-IP"
)

// FromRequest returns the client address of r. The headers are checked in
// the given order and the first valid address wins; for X-Forwarded-For the
// left-most valid entry is used. Without headers, or when none carries a
// valid address, the host part of RemoteAddr is returned.
// The zero Addr is returned when nothing parses.
func FromRequest(r *http.Request, headers ...string) netip.Addr {
	for _, h := range headers {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		if strings.EqualFold(h, HeaderXForwardedFor) {
			for part := range strings.SplitSeq(v, ",") {
				if ip, ok := parseIP(part); ok {
					return ip
				}
			}
			continue
		}
		if ip, ok := parseIP(v); ok {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port.
		host = r.RemoteAddr
	}
	ip, _ := parseIP(host)
	return ip
}

// parseIP validates and normalizes an address. IPv4-mapped IPv6 addresses
// are unmapped so they match IPv4 prefixes. Zones are dropped.
func parseIP(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return ip.Unmap().WithZone(""), true
}
