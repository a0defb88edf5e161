package httpserver

import (
	"crypto/tls"
	"errors"
	"net/http"

	"golang.org/x/net/http2"
)

// NewTLSConfig returns a server TLS configuration for cert with TLS 1.2 as the
// minimum version. ALPN protocols are added by ConfigureHTTP2.
func NewTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}

// ConfigureHTTP2 installs cfg on srv and registers HTTP/2, advertising "h2"
// ahead of "http/1.1" during the TLS handshake.
func ConfigureHTTP2(srv *http.Server, cfg *tls.Config) error {
	srv.TLSConfig = cfg
	if err := http2.ConfigureServer(srv, &http2.Server{IdleTimeout: srv.IdleTimeout}); err != nil {
		return errors.Join(ErrTLS, err)
	}
	return nil
}
