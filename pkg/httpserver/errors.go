package httpserver

import "errors"

var (
	// ErrStart indicates that the server failed to start.
	ErrStart = errors.New("failed to start HTTP server")
	// ErrShutdown indicates that graceful shutdown failed.
	ErrShutdown = errors.New("failed to shutdown HTTP server gracefully")
	// ErrKeyStore indicates the PKCS#12 key store could not be read or decoded.
	ErrKeyStore = errors.New("invalid key store")
	// ErrTLS indicates the TLS or HTTP/2 configuration could not be built.
	ErrTLS = errors.New("invalid TLS configuration")
)
