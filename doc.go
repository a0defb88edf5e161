// Package tgwebhook runs an HTTP(S) server that receives Telegram Bot API
// webhook updates and routes them to handlers by exact URL path.
//
// An Application owns at most one listening server. It starts serving in New
// and its lifecycle methods are safe for concurrent use:
//
//	app, err := tgwebhook.New(tgwebhook.Options{
//		Port:             8443,
//		UseHTTPS:         true,
//		KeyStorePath:     "/etc/bot/server.p12",
//		KeyStorePassword: os.Getenv("KEYSTORE_PASSWORD"),
//	}, tgwebhook.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	defer app.Close()
//
//	err = app.RegisterHandler("/bot123", tgwebhook.HandlerFunc(
//		func(ctx context.Context, u *telegram.Update) (telegram.Method, error) {
//			return telegram.SendMessage{ChatID: u.ChatID(), Text: "pong"}, nil
//		}),
//		tgwebhook.WithSecretToken(secret),
//	)
//
// With UseHTTPS the key store (PKCS#12) is decoded at start and the server
// negotiates HTTP/2 over ALPN, falling back to HTTP/1.1.
//
// # Request handling
//
// Each POST to a registered path is decoded into a telegram.Update and passed
// to the handler. Responses:
//
//   - 200 with the JSON reply (including its "method" field), or an empty body when the handler returns nil
//   - 400 for a body that is not an update, 413 when it exceeds Options.MaxBodyBytes
//   - 401 when the binding has a secret token and the header does not match
//   - 403 when WithAllowedNetworks is set and the client is outside those networks
//   - 404 for unregistered paths, 405 for methods other than POST
//   - 429 when WithRateLimit is set and the client has no tokens left
//   - 500 when the handler fails or panics, or the reply does not validate
//
// Request errors never stop the server.
//
// Telegram redelivers an update until it gets a timely 2xx. With
// WithDeduplication (in memory) or WithDedupStore (e.g. pkg/redis, shared
// between replicas) an update already handled on the same path is
// acknowledged with an empty 200 and the handler is not called again.
//
// # Lifecycle
//
// Stop closes the server without draining and drops all bindings; Start brings
// it back with an empty registry. Shutdown drains in-flight requests first.
// Close is idempotent. Hooks (WithStartHook, WithStopHook, WithBeforeRequest,
// WithAfterRequest) observe the lifecycle and every request.
package tgwebhook
