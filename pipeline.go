package tgwebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/tgwebhook/pkg/clientip"
	"github.com/dmitrymomot/tgwebhook/pkg/httpserver"
	"github.com/dmitrymomot/tgwebhook/pkg/logger"
	"github.com/dmitrymomot/tgwebhook/pkg/requestid"
	"github.com/dmitrymomot/tgwebhook/pkg/telegram"
	"github.com/dmitrymomot/tgwebhook/pkg/validator"
)

const (
	tracerName      = "github.com/dmitrymomot/tgwebhook"
	contentTypeJSON = "application/json"
)

// requestState is shared between the observing middleware and dispatch so
// that logs, spans and hooks see the route, update and error of a request.
type requestState struct {
	route     string
	updateID  int64
	duplicate bool
	err       error
}

type requestStateKey struct{}

func requestStateFrom(ctx context.Context) *requestState {
	st, _ := ctx.Value(requestStateKey{}).(*requestState)
	return st
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// routes builds the request pipeline once per Application. Bindings are
// resolved at request time from the registry, so the router never changes
// after construction.
func (a *Application) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware(a.cfg.ipHeaders...))
	r.Use(a.observe)
	r.Use(a.cfg.middlewares...)

	if a.cfg.healthPath != "" {
		checks := append([]func(context.Context) error{a.ready}, a.cfg.readiness...)
		r.Get(a.cfg.healthPath, httpserver.HealthCheckHandler(a.log, checks...))
	}
	r.With(
		clientip.Allow(a.cfg.allowed, http.HandlerFunc(a.deny)),
		a.rateLimit,
	).HandleFunc("/*", a.dispatch)
	return r
}

func (a *Application) deny(w http.ResponseWriter, r *http.Request) {
	a.fail(w, r, fmt.Errorf("%w: %s", ErrForbidden, clientip.FromContext(r.Context())))
}

// rateLimit applies the per-client token bucket, if configured.
func (a *Application) rateLimit(next http.Handler) http.Handler {
	if a.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientip.FromContext(r.Context())
		res := a.limiter.Allow(ip.String())
		if !res.Allowed() {
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(math.Ceil(res.RetryAfter.Seconds())))))
			a.fail(w, r, fmt.Errorf("%w: %s", ErrRateLimited, ip))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Application) ready(context.Context) error {
	if !a.live.Load() {
		return ErrNotRunning
	}
	return nil
}

// observe wraps every request in a span, fires the request hooks and writes
// the request log once the response is complete.
func (a *Application) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx, span := a.tracer.Start(r.Context(), "webhook "+r.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("request.id", requestid.FromContext(r.Context())),
			),
		)
		defer span.End()

		st := &requestState{}
		r = r.WithContext(context.WithValue(ctx, requestStateKey{}, st))
		ctx = r.Context()

		a.log.DebugContext(ctx, "webhook request received", logger.Method(r.Method), logger.Path(r.URL.Path))
		a.cfg.hooks.fire(ctx, a.log, HookInfo{Event: EventRequestReceived, Request: r})

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		a.serveRecovered(next, ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if st.route != "" {
			span.SetAttributes(attribute.String("http.route", st.route))
		}
		if st.err != nil {
			span.RecordError(st.err)
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		level := slog.LevelInfo
		attrs := []slog.Attr{
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Status(status),
			logger.Duration(elapsed),
			slog.String("client_ip", clientip.FromContext(ctx).String()),
		}
		if st.updateID != 0 {
			attrs = append(attrs, logger.UpdateID(st.updateID))
		}
		if st.duplicate {
			attrs = append(attrs, slog.Bool("duplicate", true))
		}
		if st.err != nil {
			level = classifyError(st.err).level
			attrs = append(attrs, logger.Error(st.err))
			if verrs := validator.ExtractValidationErrors(st.err); verrs != nil {
				attrs = append(attrs, slog.Any("invalid_fields", verrs.Fields()))
			}
		}
		a.log.LogAttrs(ctx, level, "webhook request completed", attrs...)

		a.cfg.hooks.fire(ctx, a.log, HookInfo{
			Event:     EventRequestCompleted,
			Request:   r,
			Route:     st.route,
			UpdateID:  st.updateID,
			Duplicate: st.duplicate,
			Status:    status,
			Duration:  elapsed,
			Err:       st.err,
		})
	})
}

// serveRecovered turns a panic below observe into a 500, so the request is
// still logged and reported to hooks.
func (a *Application) serveRecovered(next http.Handler, w http.ResponseWriter, r *http.Request) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		a.log.ErrorContext(r.Context(), "request panicked",
			slog.Any("panic", rec),
			slog.String("stack", string(debug.Stack())),
		)
		a.fail(w, r, fmt.Errorf("%w: panic: %v", ErrHandler, rec))
	}()
	next.ServeHTTP(w, r)
}

// dispatch resolves the binding for the exact request path, decodes the
// update, calls the handler and writes its reply.
func (a *Application) dispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	b, ok := a.registry.lookup(r.URL.Path)
	if !ok {
		a.fail(w, r, fmt.Errorf("%w: %s", ErrUnknownPath, r.URL.Path))
		return
	}
	st := requestStateFrom(ctx)
	if st != nil {
		st.route = b.path
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		a.fail(w, r, fmt.Errorf("%w: %s", ErrMethodNotAllowed, r.Method))
		return
	}

	if b.secret != "" {
		if err := telegram.VerifyRequest(r, b.secret); err != nil {
			a.fail(w, r, errors.Join(ErrUnauthorized, err))
			return
		}
	}

	update, err := telegram.DecodeUpdate(http.MaxBytesReader(w, r.Body, a.opts.maxBodyBytes()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.fail(w, r, errors.Join(ErrBodyTooLarge, err))
			return
		}
		a.fail(w, r, errors.Join(ErrDecode, err))
		return
	}
	if st != nil {
		st.updateID = update.UpdateID
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int64("telegram.update_id", update.UpdateID),
		attribute.String("telegram.update_kind", update.Kind()),
	)

	if a.seenBefore(ctx, b.path, update.UpdateID) {
		if st != nil {
			st.duplicate = true
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	reply, err := a.invoke(ctx, b.handler, update)
	if err != nil {
		a.forget(ctx, b.path, update.UpdateID)
		a.fail(w, r, err)
		return
	}
	if isNilMethod(reply) {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := reply.Validate(); err != nil {
		a.forget(ctx, b.path, update.UpdateID)
		a.fail(w, r, errors.Join(ErrReplyValidation, fmt.Errorf("%s: %w", reply.Method(), err)))
		return
	}
	body, err := json.Marshal(reply)
	if err != nil {
		a.forget(ctx, b.path, update.UpdateID)
		a.fail(w, r, errors.Join(ErrReplyValidation, err))
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// invoke calls the handler and converts its errors and panics into ErrHandler.
func (a *Application) invoke(ctx context.Context, h Handler, u *telegram.Update) (m telegram.Method, err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		a.log.ErrorContext(ctx, "handler panicked",
			slog.Any("panic", rec),
			slog.String("stack", string(debug.Stack())),
			logger.UpdateID(u.UpdateID),
		)
		m, err = nil, fmt.Errorf("%w: panic: %v", ErrHandler, rec)
	}()

	m, err = h.HandleUpdate(ctx, u)
	if err != nil {
		return nil, errors.Join(ErrHandler, err)
	}
	return m, nil
}

// seenBefore marks the update as handled and reports whether it already was.
// Store failures are treated as unseen.
func (a *Application) seenBefore(ctx context.Context, path string, id int64) bool {
	if a.dedup == nil {
		return false
	}
	seen, err := a.dedup.MarkSeen(ctx, path, id)
	if err != nil {
		a.log.WarnContext(ctx, "dedup store unavailable", logger.UpdateID(id), logger.Error(err))
		return false
	}
	return seen
}

// forget drops a failed update from the dedup store so its retry is handled.
func (a *Application) forget(ctx context.Context, path string, id int64) {
	if a.dedup == nil {
		return
	}
	if err := a.dedup.Forget(context.WithoutCancel(ctx), path, id); err != nil {
		a.log.WarnContext(ctx, "dedup store forget failed", logger.UpdateID(id), logger.Error(err))
	}
}

func (a *Application) fail(w http.ResponseWriter, r *http.Request, err error) {
	if st := requestStateFrom(r.Context()); st != nil {
		st.err = err
	}
	info := classifyError(err)

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(info.status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: errorDetail{
		Code:    info.code,
		Message: http.StatusText(info.status),
	}})
}

// isNilMethod also catches typed nil pointers such as (*telegram.SendMessage)(nil).
func isNilMethod(m telegram.Method) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
