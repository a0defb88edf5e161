// Package httpserver builds and owns the network transport of the webhook
// server: a bound TCP listener, optional TLS termination with HTTP/2 offered
// through ALPN, and the http.Server serving a handler on top of it.
//
// Listen binds synchronously and only then starts the serve loop in its own
// goroutine, so a busy port, a bad key store or an HTTP/2 setup failure is
// returned to the caller (wrapped with ErrStart) before anything is marked as
// running. The handler never needs to know whether it is served over plain
// HTTP/1.1 or TLS with h2.
//
// # TLS
//
// Key material comes from a PKCS#12 key store:
//
//	cert, err := httpserver.LoadKeyStore("/etc/tgwebhook/server.p12", password)
//	if err != nil {
//		return err // wraps ErrKeyStore
//	}
//	srv, err := httpserver.Listen(cfg, handler, httpserver.WithCertificate(cert))
//
// With a certificate the TLS config advertises "h2" and "http/1.1" and the
// minimum version is TLS 1.2.
//
// # Stopping
//
// Close is abrupt: listeners and connections are closed and in-flight
// handlers are not awaited. Shutdown drains in-flight requests for up to
// Config.ShutdownTimeout. Both are idempotent and run the stop hooks once.
//
// # Hooks
//
// WithStartHook and WithStopHook register callbacks that receive the server
// logger after the listener is serving and after it has been closed.
//
// # Health checks
//
// HealthCheckHandler returns an http.HandlerFunc usable as liveness probe
// (no checks) or readiness probe (one or more dependency checks).
package httpserver
