package tgwebhook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dmitrymomot/tgwebhook"
	"github.com/dmitrymomot/tgwebhook/pkg/clientip"
	"github.com/dmitrymomot/tgwebhook/pkg/logger"
	"github.com/dmitrymomot/tgwebhook/pkg/ratelimiter"
	"github.com/dmitrymomot/tgwebhook/pkg/requestid"
	"github.com/dmitrymomot/tgwebhook/pkg/telegram"
)

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestPipeline_RegisteredPath(t *testing.T) {
	t.Parallel()
	app := startApp(t, plainOptions(t))

	var calls atomic.Int32
	require.NoError(t, app.RegisterHandler("/bot123", echo(&calls)))

	resp := post(t, baseURL(app)+"/bot123", messageUpdate)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"method":"sendMessage","chat_id":42,"text":"ping"}`, readBody(t, resp))
	assert.Equal(t, int32(1), calls.Load())

	resp = post(t, baseURL(app)+"/unknown", messageUpdate)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `"not_found"`)
	assert.Equal(t, int32(1), calls.Load(), "unmatched path must not invoke a handler")

	resp = post(t, baseURL(app)+"/bot123/", messageUpdate)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "paths match exactly")
	_ = readBody(t, resp)
}

func TestPipeline_StatusCodes(t *testing.T) {
	t.Parallel()
	opts := plainOptions(t)
	opts.MaxBodyBytes = 512
	app := startApp(t, opts)

	var calls atomic.Int32
	handlers := map[string]tgwebhook.HandlerFunc{
		"/nil": func(context.Context, *telegram.Update) (telegram.Method, error) {
			calls.Add(1)
			return nil, nil
		},
		"/typed-nil": func(context.Context, *telegram.Update) (telegram.Method, error) {
			var m *telegram.SendMessage
			return m, nil
		},
		"/error": func(context.Context, *telegram.Update) (telegram.Method, error) {
			return nil, errors.New("database unavailable")
		},
		"/panic": func(context.Context, *telegram.Update) (telegram.Method, error) {
			panic("boom")
		},
		"/invalid-reply": func(context.Context, *telegram.Update) (telegram.Method, error) {
			return telegram.SendMessage{ChatID: 42}, nil
		},
		"/callback": func(_ context.Context, u *telegram.Update) (telegram.Method, error) {
			return &telegram.AnswerCallbackQuery{CallbackQueryID: u.CallbackQuery.ID, Text: "ok"}, nil
		},
	}
	for path, h := range handlers {
		require.NoError(t, app.RegisterHandler(path, h))
	}

	url := baseURL(app)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		want   string
	}{
		{"empty reply", http.MethodPost, "/nil", messageUpdate, http.StatusOK, ""},
		{"typed nil reply", http.MethodPost, "/typed-nil", messageUpdate, http.StatusOK, ""},
		{"handler error", http.MethodPost, "/error", messageUpdate, http.StatusInternalServerError, "internal_error"},
		{"handler panic", http.MethodPost, "/panic", messageUpdate, http.StatusInternalServerError, "internal_error"},
		{"invalid reply", http.MethodPost, "/invalid-reply", messageUpdate, http.StatusInternalServerError, "invalid_reply"},
		{"callback reply", http.MethodPost, "/callback", `{"update_id":5,"callback_query":{"id":"cb7","from":{"id":1,"first_name":"A"},"chat_instance":"i"}}`, http.StatusOK, `"method":"answerCallbackQuery"`},
		{"malformed body", http.MethodPost, "/nil", `{"update_id":`, http.StatusBadRequest, "bad_request"},
		{"empty body", http.MethodPost, "/nil", ``, http.StatusBadRequest, "bad_request"},
		{"body too large", http.MethodPost, "/nil", `{"update_id":1,"message":{"text":"` + strings.Repeat("x", 1024) + `"}}`, http.StatusRequestEntityTooLarge, "body_too_large"},
		{"wrong method", http.MethodGet, "/nil", "", http.StatusMethodNotAllowed, "method_not_allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, url+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := testClient.Do(req)
			require.NoError(t, err)

			assert.Equal(t, tt.status, resp.StatusCode)
			body := readBody(t, resp)
			if tt.want == "" {
				assert.Empty(t, body)
			} else {
				assert.Contains(t, body, tt.want)
			}
			if tt.status == http.StatusMethodNotAllowed {
				assert.Equal(t, http.MethodPost, resp.Header.Get("Allow"))
			}
		})
	}

	assert.Equal(t, int32(1), calls.Load(), "only the successful /nil request reaches the handler")
	assert.True(t, app.IsRunning(), "request failures must not stop the server")

	resp := post(t, url+"/nil", messageUpdate)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = readBody(t, resp)
}

func TestPipeline_ReregisterOverwrites(t *testing.T) {
	t.Parallel()
	app := startApp(t, plainOptions(t))

	var first, second atomic.Int32
	require.NoError(t, app.RegisterHandler("/bot", echo(&first)))
	require.NoError(t, app.RegisterHandler("/bot", echo(&second)))
	assert.Equal(t, []string{"/bot"}, app.Routes())

	resp := post(t, baseURL(app)+"/bot", messageUpdate)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = readBody(t, resp)
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestRegisterHandler_InvalidBinding(t *testing.T) {
	t.Parallel()
	app := startApp(t, plainOptions(t))

	assert.ErrorIs(t, app.RegisterHandler("", echo(nil)), tgwebhook.ErrInvalidPath)
	assert.ErrorIs(t, app.RegisterHandler("bot123", echo(nil)), tgwebhook.ErrInvalidPath)
	assert.ErrorIs(t, app.RegisterHandler("/bot", nil), tgwebhook.ErrInvalidPath)
	assert.ErrorIs(t, app.RegisterBot(nil), tgwebhook.ErrInvalidPath)

	err := app.RegisterHandler("/bot", echo(nil), tgwebhook.WithSecretToken("not valid!"))
	assert.ErrorIs(t, err, tgwebhook.ErrInvalidPath)
	assert.ErrorIs(t, err, telegram.ErrInvalidSecretToken)

	assert.Empty(t, app.Routes())
}

type secretBot struct {
	path, token string
	calls       atomic.Int32
}

func (b *secretBot) BotPath() string     { return b.path }
func (b *secretBot) SecretToken() string { return b.token }
func (b *secretBot) HandleUpdate(context.Context, *telegram.Update) (telegram.Method, error) {
	b.calls.Add(1)
	return nil, nil
}

func TestPipeline_SecretToken(t *testing.T) {
	t.Parallel()
	app := startApp(t, plainOptions(t))

	bot := &secretBot{path: "/secure", token: "s3cret_token"}
	require.NoError(t, app.RegisterBot(bot))
	url := baseURL(app) + "/secure"

	resp := post(t, url, messageUpdate)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = readBody(t, resp)

	resp = post(t, url, messageUpdate, telegram.SecretTokenHeader, "guess")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = readBody(t, resp)
	assert.Equal(t, int32(0), bot.calls.Load())

	resp = post(t, url, messageUpdate, telegram.SecretTokenHeader, "s3cret_token")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = readBody(t, resp)
	assert.Equal(t, int32(1), bot.calls.Load())
}

func TestPipeline_Hooks(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		events []tgwebhook.HookInfo
	)
	record := func(_ context.Context, info tgwebhook.HookInfo) {
		mu.Lock()
		events = append(events, info)
		mu.Unlock()
	}
	snapshot := func() []tgwebhook.HookInfo {
		mu.Lock()
		defer mu.Unlock()
		return append([]tgwebhook.HookInfo(nil), events...)
	}

	app := startApp(t, plainOptions(t),
		tgwebhook.WithStartHook(record),
		tgwebhook.WithStopHook(record),
		tgwebhook.WithBeforeRequest(record),
		tgwebhook.WithAfterRequest(record),
		tgwebhook.WithAfterRequest(func(context.Context, tgwebhook.HookInfo) { panic("hook bug") }),
	)
	require.NoError(t, app.RegisterHandler("/bot", echo(nil)))

	got := snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, tgwebhook.EventServerStarted, got[0].Event)
	assert.Equal(t, app.Addr().String(), got[0].Addr.String())
	assert.False(t, got[0].TLS)

	resp := post(t, baseURL(app)+"/bot", messageUpdate)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "panicking hook must not affect the response")
	_ = readBody(t, resp)

	resp = post(t, baseURL(app)+"/bot", "garbage")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = readBody(t, resp)

	require.NoError(t, app.Stop())

	got = snapshot()
	require.Len(t, got, 6)

	assert.Equal(t, tgwebhook.EventRequestReceived, got[1].Event)
	assert.Equal(t, "/bot", got[1].Request.URL.Path)

	done := got[2]
	assert.Equal(t, tgwebhook.EventRequestCompleted, done.Event)
	assert.Equal(t, "/bot", done.Route)
	assert.Equal(t, int64(100), done.UpdateID)
	assert.Equal(t, http.StatusOK, done.Status)
	assert.Positive(t, done.Duration)
	assert.NoError(t, done.Err)

	failed := got[4]
	assert.Equal(t, tgwebhook.EventRequestCompleted, failed.Event)
	assert.Equal(t, http.StatusBadRequest, failed.Status)
	assert.ErrorIs(t, failed.Err, tgwebhook.ErrDecode)
	assert.ErrorIs(t, failed.Err, telegram.ErrMalformedUpdate)

	assert.Equal(t, tgwebhook.EventServerStopped, got[5].Event)
}

func TestPipeline_RequestID(t *testing.T) {
	t.Parallel()
	app := startApp(t, plainOptions(t))
	require.NoError(t, app.RegisterHandler("/bot", tgwebhook.HandlerFunc(
		func(ctx context.Context, _ *telegram.Update) (telegram.Method, error) {
			if requestid.FromContext(ctx) != "trace-abc" {
				return nil, errors.New("request id missing from context")
			}
			return nil, nil
		})))

	resp := post(t, baseURL(app)+"/bot", messageUpdate, requestid.Header, "trace-abc")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "trace-abc", resp.Header.Get(requestid.Header))
	_ = readBody(t, resp)

	resp = post(t, baseURL(app)+"/missing", messageUpdate)
	assert.NotEmpty(t, resp.Header.Get(requestid.Header), "generated for every request")
	_ = readBody(t, resp)
}

func TestPipeline_HealthCheck(t *testing.T) {
	t.Parallel()
	app := startApp(t, plainOptions(t), tgwebhook.WithHealthCheck("/healthz"))

	resp, err := testClient.Get(baseURL(app) + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "READY", readBody(t, resp))
}

func TestPipeline_ReadinessCheck(t *testing.T) {
	t.Parallel()
	var healthy atomic.Bool
	app := startApp(t, plainOptions(t),
		tgwebhook.WithHealthCheck("/healthz"),
		tgwebhook.WithReadinessCheck(func(context.Context) error {
			if !healthy.Load() {
				return errors.New("store down")
			}
			return nil
		}),
	)

	resp, err := testClient.Get(baseURL(app) + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "NOT_READY", readBody(t, resp))

	healthy.Store(true)
	resp, err = testClient.Get(baseURL(app) + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "READY", readBody(t, resp))
}

func TestPipeline_Tracing(t *testing.T) {
	t.Parallel()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	app := startApp(t, plainOptions(t), tgwebhook.WithTracerProvider(tp))
	require.NoError(t, app.RegisterHandler("/bot", tgwebhook.HandlerFunc(
		func(context.Context, *telegram.Update) (telegram.Method, error) {
			return nil, errors.New("fail")
		})))

	resp := post(t, baseURL(app)+"/bot", messageUpdate)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	_ = readBody(t, resp)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "webhook POST", span.Name())

	attrs := map[string]any{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "/bot", attrs["url.path"])
	assert.Equal(t, "/bot", attrs["http.route"])
	assert.Equal(t, int64(100), attrs["telegram.update_id"])
	assert.Equal(t, int64(http.StatusInternalServerError), attrs["http.response.status_code"])
	assert.Equal(t, "Error", span.Status().Code.String())
	assert.NotEmpty(t, span.Events(), "handler error is recorded on the span")
}

func TestPipeline_AllowedNetworks(t *testing.T) {
	t.Parallel()

	var rejected atomic.Int32
	denied := startApp(t, plainOptions(t),
		tgwebhook.WithAllowedNetworks(clientip.TelegramNetworks),
		tgwebhook.WithHealthCheck("/healthz"),
		tgwebhook.WithAfterRequest(func(_ context.Context, info tgwebhook.HookInfo) {
			if errors.Is(info.Err, tgwebhook.ErrForbidden) {
				rejected.Add(1)
			}
		}),
	)
	require.NoError(t, denied.RegisterHandler("/bot", echo(nil)))

	resp := post(t, baseURL(denied)+"/bot", messageUpdate)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `"forbidden"`)
	assert.Equal(t, int32(1), rejected.Load())

	health, err := testClient.Get(baseURL(denied) + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, health.StatusCode, "health check is not restricted")
	_ = readBody(t, health)

	loopback, err := clientip.ParseNetworks("127.0.0.0/8", "::1")
	require.NoError(t, err)
	allowed := startApp(t, plainOptions(t), tgwebhook.WithAllowedNetworks(loopback))
	require.NoError(t, allowed.RegisterHandler("/bot", echo(nil)))

	resp = post(t, baseURL(allowed)+"/bot", messageUpdate)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = readBody(t, resp)
}

func TestPipeline_TrustedClientIPHeader(t *testing.T) {
	t.Parallel()
	app := startApp(t, plainOptions(t),
		tgwebhook.WithClientIPHeaders(clientip.HeaderXRealIP),
		tgwebhook.WithAllowedNetworks(clientip.TelegramNetworks),
	)
	require.NoError(t, app.RegisterHandler("/bot", tgwebhook.HandlerFunc(
		func(ctx context.Context, _ *telegram.Update) (telegram.Method, error) {
			if got := clientip.FromContext(ctx).String(); got != "149.154.167.220" {
				return nil, errors.New("unexpected client ip " + got)
			}
			return nil, nil
		})))

	resp := post(t, baseURL(app)+"/bot", messageUpdate, clientip.HeaderXRealIP, "149.154.167.220")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = readBody(t, resp)
}

func TestPipeline_Deduplication(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		statuses []bool
	)
	app := startApp(t, plainOptions(t),
		tgwebhook.WithDeduplication(100, time.Hour),
		tgwebhook.WithAfterRequest(func(_ context.Context, info tgwebhook.HookInfo) {
			mu.Lock()
			statuses = append(statuses, info.Duplicate)
			mu.Unlock()
		}),
	)

	var calls atomic.Int32
	require.NoError(t, app.RegisterHandler("/a", echo(&calls)))
	require.NoError(t, app.RegisterHandler("/b", echo(&calls)))

	resp := post(t, baseURL(app)+"/a", messageUpdate)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, readBody(t, resp))

	resp = post(t, baseURL(app)+"/a", messageUpdate)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, readBody(t, resp), "redelivery is acknowledged without a reply")
	assert.Equal(t, int32(1), calls.Load())

	resp = post(t, baseURL(app)+"/b", messageUpdate)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = readBody(t, resp)
	assert.Equal(t, int32(2), calls.Load(), "update ids are scoped per path")

	mu.Lock()
	assert.Equal(t, []bool{false, true, false}, statuses)
	mu.Unlock()
}

func TestPipeline_DeduplicationRetriesFailures(t *testing.T) {
	t.Parallel()
	app := startApp(t, plainOptions(t), tgwebhook.WithDeduplication(100, 0))

	var calls atomic.Int32
	require.NoError(t, app.RegisterHandler("/flaky", tgwebhook.HandlerFunc(
		func(context.Context, *telegram.Update) (telegram.Method, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("temporary")
			}
			return nil, nil
		})))

	resp := post(t, baseURL(app)+"/flaky", messageUpdate)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	_ = readBody(t, resp)

	resp = post(t, baseURL(app)+"/flaky", messageUpdate)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = readBody(t, resp)

	resp = post(t, baseURL(app)+"/flaky", messageUpdate)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = readBody(t, resp)
	assert.Equal(t, int32(2), calls.Load(), "failed update is retried, succeeded one is not")
}

type brokenStore struct{}

func (brokenStore) MarkSeen(context.Context, string, int64) (bool, error) {
	return false, errors.New("connection refused")
}

func (brokenStore) Forget(context.Context, string, int64) error {
	return errors.New("connection refused")
}

func TestPipeline_DedupStoreFailureHandlesUpdate(t *testing.T) {
	t.Parallel()
	app := startApp(t, plainOptions(t), tgwebhook.WithDedupStore(brokenStore{}))

	var calls atomic.Int32
	require.NoError(t, app.RegisterHandler("/bot", echo(&calls)))

	for range 2 {
		resp := post(t, baseURL(app)+"/bot", messageUpdate)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = readBody(t, resp)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestPipeline_RateLimit(t *testing.T) {
	t.Parallel()
	app := startApp(t, plainOptions(t),
		tgwebhook.WithHealthCheck("/healthz"),
		tgwebhook.WithRateLimit(ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Hour}),
	)
	require.NoError(t, app.RegisterHandler("/bot", echo(nil)))

	for range 2 {
		resp := post(t, baseURL(app)+"/bot", messageUpdate)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = readBody(t, resp)
	}

	resp := post(t, baseURL(app)+"/bot", messageUpdate)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Contains(t, readBody(t, resp), `"rate_limited"`)

	resp, err := testClient.Get(baseURL(app) + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health check is not limited")
	_ = readBody(t, resp)
}

func TestNew_InvalidRateLimit(t *testing.T) {
	t.Parallel()
	_, err := tgwebhook.New(plainOptions(t), tgwebhook.WithRateLimit(ratelimiter.Config{}))
	assert.ErrorIs(t, err, tgwebhook.ErrConfig)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
}

func TestPipeline_MiddlewarePanicRecovered(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		after []tgwebhook.HookInfo
	)
	panicky := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/boom" {
				panic("middleware bug")
			}
			next.ServeHTTP(w, r)
		})
	}
	app := startApp(t, plainOptions(t),
		tgwebhook.WithMiddleware(panicky),
		tgwebhook.WithAfterRequest(func(_ context.Context, info tgwebhook.HookInfo) {
			mu.Lock()
			after = append(after, info)
			mu.Unlock()
		}),
	)
	require.NoError(t, app.RegisterHandler("/boom", echo(nil)))
	require.NoError(t, app.RegisterHandler("/bot", echo(nil)))

	resp := post(t, baseURL(app)+"/boom", messageUpdate)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `"internal_error"`)

	mu.Lock()
	require.Len(t, after, 1)
	assert.Equal(t, http.StatusInternalServerError, after[0].Status)
	assert.ErrorIs(t, after[0].Err, tgwebhook.ErrHandler)
	mu.Unlock()

	resp = post(t, baseURL(app)+"/bot", messageUpdate)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "server keeps serving")
	_ = readBody(t, resp)
	assert.True(t, app.IsRunning())
}

// lockedBuffer is written by the server goroutine and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSpace(b.buf.String()), "\n")
}

func TestPipeline_InvalidReplyLogsFields(t *testing.T) {
	t.Parallel()
	out := &lockedBuffer{}
	log := logger.New(logger.WithOutput(out), logger.WithFormat(logger.FormatJSON))

	app := startApp(t, plainOptions(t), tgwebhook.WithLogger(log))
	require.NoError(t, app.RegisterHandler("/bot", tgwebhook.HandlerFunc(
		func(context.Context, *telegram.Update) (telegram.Method, error) {
			return telegram.SendMessage{ChatID: 42}, nil
		})))

	resp := post(t, baseURL(app)+"/bot", messageUpdate)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	_ = readBody(t, resp)

	var completed map[string]any
	for _, line := range out.Lines() {
		var rec map[string]any
		if json.Unmarshal([]byte(line), &rec) == nil && rec["msg"] == "webhook request completed" {
			completed = rec
		}
	}
	require.NotNil(t, completed, "request log written")
	assert.Equal(t, []any{"text"}, completed["invalid_fields"])
}

func TestPipeline_DeduplicationOverlappingDelivery(t *testing.T) {
	t.Parallel()
	app := startApp(t, plainOptions(t), tgwebhook.WithDeduplication(100, time.Hour))

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, app.RegisterHandler("/slow", tgwebhook.HandlerFunc(
		func(context.Context, *telegram.Update) (telegram.Method, error) {
			calls.Add(1)
			close(entered)
			<-release
			return nil, errors.New("failed after redelivery")
		})))

	first := make(chan int, 1)
	go func() {
		resp, err := testClient.Post(baseURL(app)+"/slow", "application/json", strings.NewReader(messageUpdate))
		if err != nil {
			first <- 0
			return
		}
		_ = resp.Body.Close()
		first <- resp.StatusCode
	}()
	<-entered

	resp := post(t, baseURL(app)+"/slow", messageUpdate)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "overlapping redelivery is acknowledged")
	assert.Empty(t, readBody(t, resp))

	close(release)
	assert.Equal(t, http.StatusInternalServerError, <-first)
	assert.Equal(t, int32(1), calls.Load(), "handler runs once for overlapping deliveries")
}
