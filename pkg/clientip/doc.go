// Package clientip resolves the originating client address of a request and
// restricts access to known networks.
//
// Proxy headers are only consulted when the caller names them, since any
// client can set them:
//
//	ip := clientip.FromRequest(r)                                 // RemoteAddr
//	ip := clientip.FromRequest(r, clientip.HeaderXForwardedFor)   // behind a proxy
//
// Middleware stores the address in the request context for logging, and
// Allow rejects requests from outside a network list. TelegramNetworks holds
// the ranges Telegram delivers webhooks from:
//
//	r.Use(clientip.Middleware(clientip.HeaderXRealIP))
//	r.Use(clientip.Allow(clientip.TelegramNetworks, nil))
//
// Addresses are returned as netip.Addr; IPv4-mapped IPv6 addresses are
// unmapped so they match IPv4 prefixes.
package clientip
