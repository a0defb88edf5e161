package httpserver

import (
	"crypto/tls"
	"log/slog"
)

// Option configures a Server before it starts listening.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	certificate *tls.Certificate
	startHooks  []func(*slog.Logger)
	stopHooks   []func(*slog.Logger)
}

// WithLogger supplies an external slog.Logger instance. If nil, a noop logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCertificate enables TLS with the given certificate and negotiates
// HTTP/2 through ALPN, falling back to HTTP/1.1.
func WithCertificate(cert tls.Certificate) Option {
	return func(o *options) { o.certificate = &cert }
}

// WithStartHook registers a callback that runs once the listener is bound and serving.
func WithStartHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("WithStartHook: nil hook")
	}
	return func(o *options) {
		o.startHooks = append(o.startHooks, h)
	}
}

// WithStopHook registers a callback that runs after the server is closed.
func WithStopHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("WithStopHook: nil hook")
	}
	return func(o *options) {
		o.stopHooks = append(o.stopHooks, h)
	}
}
