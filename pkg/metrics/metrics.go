package metrics

import (
	"context"
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/tgwebhook"
)

// UnmatchedRoute labels requests that did not match a registered path.
const UnmatchedRoute = "unmatched"

// Config configures the collector.
type Config struct {
	// Namespace prefixes every metric name (default: "tgwebhook").
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels
	// Buckets are the request duration histogram buckets (default: prometheus.DefBuckets).
	Buckets []float64
	// Registry receives the metrics (default: prometheus.DefaultRegisterer).
	Registry prometheus.Registerer
}

// Option configures the collector.
type Option func(*Config)

func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

func WithSubsystem(subsystem string) Option {
	return func(c *Config) { c.Subsystem = subsystem }
}

func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

// Collector holds the webhook metrics.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
	duplicates      *prometheus.CounterVec
	inFlight        prometheus.Gauge
	running         prometheus.Gauge
	startsTotal     prometheus.Counter
}

// New creates the metrics and registers them. Registering twice in the same
// registry fails with prometheus.AlreadyRegisteredError.
func New(opts ...Option) (*Collector, error) {
	cfg := Config{
		Namespace: "tgwebhook",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Collector{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "requests_total",
			Help:        "Webhook requests by route and status.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"route", "status"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Webhook request duration in seconds.",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"route"}),

		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "request_errors_total",
			Help:        "Failed webhook requests by route and error type.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"route", "error_type"}),

		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "duplicate_updates_total",
			Help:        "Redelivered updates acknowledged without calling the handler.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"route"}),

		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "requests_in_flight",
			Help:        "Webhook requests currently being served.",
			ConstLabels: cfg.ConstLabels,
		}),

		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "server_running",
			Help:        "1 while the webhook server is accepting requests.",
			ConstLabels: cfg.ConstLabels,
		}),

		startsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "server_starts_total",
			Help:        "Number of times the webhook server started.",
			ConstLabels: cfg.ConstLabels,
		}),
	}

	for _, col := range []prometheus.Collector{
		c.requestsTotal, c.requestDuration, c.requestErrors, c.duplicates,
		c.inFlight, c.running, c.startsTotal,
	} {
		if err := cfg.Registry.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Hook records every lifecycle and request event it receives.
func (c *Collector) Hook() tgwebhook.Hook {
	return func(_ context.Context, info tgwebhook.HookInfo) {
		switch info.Event {
		case tgwebhook.EventServerStarted:
			c.startsTotal.Inc()
			c.running.Set(1)
		case tgwebhook.EventServerStopped:
			c.running.Set(0)
		case tgwebhook.EventRequestReceived:
			c.inFlight.Inc()
		case tgwebhook.EventRequestCompleted:
			c.inFlight.Dec()
			route := info.Route
			if route == "" {
				route = UnmatchedRoute
			}
			c.requestsTotal.WithLabelValues(route, strconv.Itoa(info.Status)).Inc()
			c.requestDuration.WithLabelValues(route).Observe(info.Duration.Seconds())
			if info.Duplicate {
				c.duplicates.WithLabelValues(route).Inc()
			}
			if info.Err != nil {
				c.requestErrors.WithLabelValues(route, errorType(info.Err)).Inc()
			}
		}
	}
}

// Options attaches Hook to all application events.
func (c *Collector) Options() []tgwebhook.Option {
	h := c.Hook()
	return []tgwebhook.Option{
		tgwebhook.WithStartHook(h),
		tgwebhook.WithStopHook(h),
		tgwebhook.WithBeforeRequest(h),
		tgwebhook.WithAfterRequest(h),
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, tgwebhook.ErrUnknownPath):
		return "not_found"
	case errors.Is(err, tgwebhook.ErrMethodNotAllowed):
		return "method_not_allowed"
	case errors.Is(err, tgwebhook.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, tgwebhook.ErrForbidden):
		return "forbidden"
	case errors.Is(err, tgwebhook.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, tgwebhook.ErrBodyTooLarge):
		return "body_too_large"
	case errors.Is(err, tgwebhook.ErrDecode):
		return "decode"
	case errors.Is(err, tgwebhook.ErrReplyValidation):
		return "reply_validation"
	case errors.Is(err, tgwebhook.ErrHandler):
		return "handler"
	default:
		return "other"
	}
}
