package tgwebhook

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/tgwebhook/pkg/httpserver"
	"github.com/dmitrymomot/tgwebhook/pkg/logger"
	"github.com/dmitrymomot/tgwebhook/pkg/ratelimiter"
	"github.com/dmitrymomot/tgwebhook/pkg/statemachine"
)

type state string

const (
	stateStopped  state = "stopped"
	stateStarting state = "starting"
	stateRunning  state = "running"
	stateStopping state = "stopping"
)

type transition string

const (
	eventStart   transition = "start"
	eventStarted transition = "started"
	eventFailed  transition = "failed"
	eventStop    transition = "stop"
	eventStopped transition = "stopped"
)

// Application owns one webhook server and the handlers bound to it.
//
// Start, Stop, IsRunning, RegisterHandler and Close are serialized by a single
// mutex, so concurrent callers observe one consistent lifecycle: of N
// simultaneous Start calls on a stopped Application exactly one succeeds.
// Handler bindings belong to one running instance and are dropped on Stop.
type Application struct {
	mu       sync.Mutex
	opts     Options
	cfg      *appOptions
	log      *slog.Logger
	machine  *statemachine.Machine[state, transition]
	server   *httpserver.Server
	registry *registry
	handler  http.Handler
	tracer   trace.Tracer
	dedup    DedupStore
	limiter  *ratelimiter.Limiter

	// live mirrors the Running state for the request path, which must not
	// take mu.
	live atomic.Bool
}

// New validates opts and starts serving before it returns. There is no
// constructed-but-stopped state: on error nothing is listening and the
// returned Application is nil.
//
// Errors match ErrConfig for invalid options or an unreadable key store, and
// ErrStartup when the port cannot be bound.
func New(opts Options, options ...Option) (*Application, error) {
	cfg := defaultAppOptions()
	for _, opt := range options {
		opt(cfg)
	}

	a := &Application{
		opts:     opts,
		cfg:      cfg,
		log:      cfg.logger.With(logger.Component("tgwebhook")),
		registry: newRegistry(),
		tracer:   cfg.tracerProvider.Tracer(tracerName),
		dedup:    cfg.dedup,
	}
	if cfg.rateLimit != nil {
		l, err := ratelimiter.New(*cfg.rateLimit)
		if err != nil {
			return nil, errors.Join(ErrConfig, err)
		}
		a.limiter = l
	}
	a.machine = statemachine.MustNew(stateStopped, []statemachine.Transition[state, transition]{
		{From: stateStopped, Event: eventStart, To: stateStarting},
		{From: stateStarting, Event: eventStarted, To: stateRunning, Actions: []statemachine.Action[state]{a.listen}},
		{From: stateStarting, Event: eventFailed, To: stateStopped},
		{From: stateRunning, Event: eventStop, To: stateStopping},
		{From: stateStopping, Event: eventStopped, To: stateStopped},
	}...)
	a.machine.Observe(func(from, to state, ev transition) {
		a.live.Store(to == stateRunning)
		a.log.Debug("lifecycle transition",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			logger.Event(string(ev)),
		)
	})
	a.handler = a.routes()

	if err := a.Start(); err != nil {
		return nil, err
	}
	return a, nil
}

// Start builds and starts the transport. It returns ErrAlreadyRunning when
// the server is already up, or ErrConfig/ErrStartup if it could not start,
// in which case the Application stays stopped.
func (a *Application) Start() error {
	info, err := a.start()
	if err != nil {
		return err
	}
	a.cfg.hooks.fire(context.Background(), a.log, info)
	return nil
}

func (a *Application) start() (HookInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx := context.Background()
	if err := a.machine.Fire(ctx, eventStart); err != nil {
		return HookInfo{}, ErrAlreadyRunning
	}
	if err := a.machine.Fire(ctx, eventStarted); err != nil {
		_ = a.machine.Fire(ctx, eventFailed)
		a.log.Error("webhook server failed to start", logger.Error(err))
		return HookInfo{}, err
	}
	return HookInfo{Event: EventServerStarted, Addr: a.server.Addr(), TLS: a.server.TLS()}, nil
}

// listen runs on the starting -> running edge. On error the machine keeps
// the starting state until the caller fires eventFailed.
func (a *Application) listen(context.Context, state, state) error {
	cert, err := a.opts.validate()
	if err != nil {
		return err
	}

	cfg := a.opts.serverConfig()
	opts := []httpserver.Option{
		httpserver.WithLogger(a.log.With(logger.Addr(cfg.Addr()))),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("webhook server started", slog.Bool("tls", cert != nil))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("webhook server stopped")
		}),
	}
	if cert != nil {
		opts = append(opts, httpserver.WithCertificate(*cert))
	}

	srv, err := httpserver.Listen(cfg, a.handler, opts...)
	if err != nil {
		return errors.Join(ErrStartup, err)
	}
	a.server = srv
	return nil
}

// Stop closes the transport immediately without waiting for in-flight
// handlers and drops every handler binding. It returns ErrNotRunning when
// the server is not running.
func (a *Application) Stop() error {
	return a.shutdown(context.Background(), false)
}

// Shutdown is Stop with draining: in-flight requests get until ctx is done
// or Options.ShutdownTimeout elapses. Like Close it returns nil when the
// server is already stopped.
func (a *Application) Shutdown(ctx context.Context) error {
	err := a.shutdown(ctx, true)
	if errors.Is(err, ErrNotRunning) {
		return nil
	}
	return err
}

// Close implements io.Closer. It stops a running server and is a no-op
// returning nil otherwise.
func (a *Application) Close() error {
	err := a.Stop()
	if errors.Is(err, ErrNotRunning) {
		return nil
	}
	return err
}

func (a *Application) shutdown(ctx context.Context, graceful bool) error {
	info, err := a.stop(ctx, graceful)
	if info.Event != "" {
		a.cfg.hooks.fire(context.WithoutCancel(ctx), a.log, info)
	}
	return err
}

func (a *Application) stop(ctx context.Context, graceful bool) (HookInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.machine.Fire(ctx, eventStop); err != nil {
		return HookInfo{}, ErrNotRunning
	}

	srv := a.server
	a.server = nil

	var err error
	if graceful {
		err = srv.Shutdown(ctx)
	} else {
		err = srv.Close()
	}
	a.registry.clear()
	if r, ok := a.dedup.(interface{ Reset() }); ok {
		r.Reset()
	}
	if a.limiter != nil {
		a.limiter.Reset()
	}
	if ferr := a.machine.Fire(ctx, eventStopped); ferr != nil {
		err = errors.Join(err, ferr)
	}

	if err != nil {
		a.log.Warn("webhook server stopped with error", logger.Error(err))
	}
	return HookInfo{Event: EventServerStopped, Addr: srv.Addr(), TLS: srv.TLS()}, err
}

// IsRunning reports whether the server is accepting requests.
func (a *Application) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.machine.Is(stateRunning)
}

// Addr returns the bound address while running and nil otherwise.
func (a *Application) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return nil
	}
	return a.server.Addr()
}

// RegisterHandler binds h to the exact request path. Binding a path again
// replaces the previous handler. The binding applies to requests arriving
// after the call returns.
//
// It returns ErrNotRunning when the server is stopped and ErrInvalidPath
// when path does not start with "/", h is nil or the secret token is invalid.
func (a *Application) RegisterHandler(path string, h Handler, opts ...BindOption) error {
	b := binding{path: path, handler: h}
	for _, opt := range opts {
		opt(&b)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.machine.Is(stateRunning) {
		return ErrNotRunning
	}
	if err := b.validate(); err != nil {
		return err
	}

	if a.registry.put(b) {
		a.log.Warn("handler replaced", logger.Path(path))
	} else {
		a.log.Info("handler registered", logger.Path(path), slog.Bool("secret_token", b.secret != ""))
	}
	return nil
}

// RegisterBot binds bot to bot.BotPath(). A SecretTokenBot with a non-empty
// token gets WithSecretToken applied before opts.
func (a *Application) RegisterBot(bot Bot, opts ...BindOption) error {
	if bot == nil {
		return errors.Join(ErrInvalidPath, errors.New("bot is nil"))
	}
	if sb, ok := bot.(SecretTokenBot); ok {
		if token := sb.SecretToken(); token != "" {
			opts = append([]BindOption{WithSecretToken(token)}, opts...)
		}
	}
	return a.RegisterHandler(bot.BotPath(), bot, opts...)
}

// Routes returns the registered paths in lexical order.
func (a *Application) Routes() []string {
	return a.registry.paths()
}
