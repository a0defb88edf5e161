package clientip

import (
	"context"
	"log/slog"
	"net/netip"

	"github.com/dmitrymomot/tgwebhook/pkg/logger"
)

type contextKey struct{}

// WithContext stores the client address in ctx.
func WithContext(ctx context.Context, ip netip.Addr) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

// FromContext returns the address stored by Middleware, or the zero Addr.
func FromContext(ctx context.Context) netip.Addr {
	if ctx == nil {
		return netip.Addr{}
	}
	ip, _ := ctx.Value(contextKey{}).(netip.Addr)
	return ip
}

// LoggerExtractor adds "client_ip" to records logged with a request context.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		ip := FromContext(ctx)
		if !ip.IsValid() {
			return slog.Attr{}, false
		}
		return slog.String("client_ip", ip.String()), true
	}
}
