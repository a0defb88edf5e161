package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/dmitrymomot/tgwebhook/pkg/logger"
)

// Server is a bound listener plus the http.Server serving it. A Server is
// single-use: once closed, build a new one with Listen.
type Server struct {
	cfg  Config
	opts *options
	srv  *http.Server
	ln   net.Listener
	tls  bool

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	mu       sync.Mutex
	serveErr error
}

// Listen builds the transport and starts serving handler in the background.
// The port is bound and the TLS material applied before Listen returns, so
// bind and certificate failures are reported synchronously, wrapped with ErrStart.
func Listen(cfg Config, handler http.Handler, opts ...Option) (*Server, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Noop()
	}
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(o.logger.Handler(), slog.LevelWarn),
	}

	if o.certificate != nil {
		if err := ConfigureHTTP2(srv, NewTLSConfig(*o.certificate)); err != nil {
			return nil, errors.Join(ErrStart, err)
		}
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, errors.Join(ErrStart, err)
	}
	if srv.TLSConfig != nil {
		ln = tls.NewListener(ln, srv.TLSConfig)
	}

	s := &Server{
		cfg:  cfg,
		opts: o,
		srv:  srv,
		ln:   ln,
		tls:  srv.TLSConfig != nil,
		done: make(chan struct{}),
	}
	go s.serve()

	for _, h := range o.startHooks {
		h(o.logger)
	}
	return s, nil
}

func (s *Server) serve() {
	defer close(s.done)
	err := s.srv.Serve(s.ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.opts.logger.Error("http server stopped unexpectedly",
			logger.Addr(s.ln.Addr().String()),
			logger.Error(err),
			logger.Component("httpserver"),
		)
		s.mu.Lock()
		s.serveErr = err
		s.mu.Unlock()
	}
}

// Addr returns the bound address, which differs from Config when Port is 0.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// TLS reports whether the server terminates TLS.
func (s *Server) TLS() bool {
	return s.tls
}

// Done is closed when the serve loop has exited.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the serve loop, if it was not a close.
func (s *Server) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveErr
}

// Close stops accepting connections and closes active ones immediately.
// In-flight handlers are not awaited. It is safe for repeated calls.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		err := s.srv.Close()
		<-s.done
		s.runStopHooks()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.closeErr = errors.Join(ErrShutdown, err)
		}
	})
	return s.closeErr
}

// Shutdown stops the server gracefully, waiting for in-flight requests up to
// Config.ShutdownTimeout or the context deadline, whichever is first. Any
// connection still open afterwards is closed forcibly.
// It is safe for repeated calls and shares its once-guard with Close.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.shutdownTimeout())
		defer cancel()

		err := s.srv.Shutdown(ctx)
		if err != nil {
			_ = s.srv.Close()
		}
		<-s.done
		s.runStopHooks()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.closeErr = errors.Join(ErrShutdown, err)
		}
	})
	return s.closeErr
}

func (s *Server) runStopHooks() {
	for _, h := range s.opts.stopHooks {
		h(s.opts.logger)
	}
}
