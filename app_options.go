package tgwebhook

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/tgwebhook/pkg/clientip"
	"github.com/dmitrymomot/tgwebhook/pkg/logger"
	"github.com/dmitrymomot/tgwebhook/pkg/ratelimiter"
)

// Option configures an Application at construction.
type Option func(*appOptions)

type appOptions struct {
	logger         *slog.Logger
	hooks          hookSet
	healthPath     string
	tracerProvider trace.TracerProvider
	middlewares    []func(http.Handler) http.Handler
	ipHeaders      []string
	allowed        clientip.Networks
	dedup          DedupStore
	readiness      []func(context.Context) error
	rateLimit      *ratelimiter.Config
}

func defaultAppOptions() *appOptions {
	return &appOptions{
		logger:         logger.Noop(),
		hooks:          make(hookSet),
		tracerProvider: otel.GetTracerProvider(),
	}
}

// WithLogger sets the logger for lifecycle and request logs. Nil keeps the noop logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *appOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHook attaches h to event. Several hooks per event run in registration order.
func WithHook(event Event, h Hook) Option {
	return func(o *appOptions) { o.hooks.add(event, h) }
}

// WithStartHook runs h every time the server starts serving.
func WithStartHook(h Hook) Option { return WithHook(EventServerStarted, h) }

// WithStopHook runs h every time the server has stopped.
func WithStopHook(h Hook) Option { return WithHook(EventServerStopped, h) }

// WithBeforeRequest runs h before a request is routed.
func WithBeforeRequest(h Hook) Option { return WithHook(EventRequestReceived, h) }

// WithAfterRequest runs h after the response has been written.
func WithAfterRequest(h Hook) Option { return WithHook(EventRequestCompleted, h) }

// WithHealthCheck serves a readiness probe on path (GET). The probe reports
// READY while the application is running. Registered handlers cannot shadow it.
func WithHealthCheck(path string) Option {
	return func(o *appOptions) { o.healthPath = path }
}

// WithTracerProvider sets the provider for request spans. Defaults to the
// global provider, which is a no-op unless one is installed.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *appOptions) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithClientIPHeaders trusts the given proxy headers, in order, when
// resolving the client address for logs and WithAllowedNetworks. Only use it
// behind a proxy that overwrites these headers.
func WithClientIPHeaders(headers ...string) Option {
	return func(o *appOptions) { o.ipHeaders = append(o.ipHeaders, headers...) }
}

// WithAllowedNetworks answers 403 to webhook requests from clients outside
// networks, e.g. clientip.TelegramNetworks. The health check is not affected.
func WithAllowedNetworks(networks clientip.Networks) Option {
	return func(o *appOptions) { o.allowed = append(o.allowed, networks...) }
}

// WithMiddleware appends router middleware. It runs inside request id,
// tracing and hooks, right before dispatch.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(o *appOptions) { o.middlewares = append(o.middlewares, mw...) }
}

// WithDeduplication remembers the last size update ids per path in memory
// for ttl (zero keeps them until evicted). A redelivered update is
// acknowledged with an empty 200 without calling the handler. Updates whose
// handler fails are forgotten so that a later retry is handled. A redelivery
// arriving while the first delivery is still running is acknowledged, so
// overlapping deliveries are at most once. A non-positive size disables
// deduplication.
func WithDeduplication(size int, ttl time.Duration) Option {
	return func(o *appOptions) {
		o.dedup = nil
		if size > 0 {
			o.dedup = NewMemoryDedup(size, ttl)
		}
	}
}

// WithDedupStore deduplicates updates with store, e.g. one shared by several
// replicas. Store errors are logged and the update is handled.
func WithDedupStore(store DedupStore) Option {
	return func(o *appOptions) { o.dedup = store }
}

// WithReadinessCheck adds dependency checks to the WithHealthCheck probe.
func WithReadinessCheck(checks ...func(context.Context) error) Option {
	return func(o *appOptions) { o.readiness = append(o.readiness, checks...) }
}

// WithRateLimit limits webhook requests per client address with a token
// bucket. Requests over the limit get 429 with Retry-After. An invalid cfg
// makes New fail with ErrConfig.
func WithRateLimit(cfg ratelimiter.Config) Option {
	return func(o *appOptions) { o.rateLimit = &cfg }
}
