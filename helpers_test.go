package tgwebhook_test

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tgwebhook"
	"github.com/dmitrymomot/tgwebhook/pkg/telegram"
)

const (
	keyStorePath     = "testdata/server.p12"
	keyStorePassword = "changeit"

	messageUpdate = `{"update_id":100,"message":{"message_id":1,"from":{"id":7,"is_bot":false,"first_name":"Ann"},"chat":{"id":42,"type":"private"},"date":1700000000,"text":"ping"}}`
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "unable to get free port")
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func plainOptions(t *testing.T) tgwebhook.Options {
	return tgwebhook.Options{
		Host:            "127.0.0.1",
		Port:            freePort(t),
		ShutdownTimeout: time.Second,
	}
}

// startApp creates a running application and closes it when the test ends.
func startApp(t *testing.T, opts tgwebhook.Options, options ...tgwebhook.Option) *tgwebhook.Application {
	t.Helper()
	app, err := tgwebhook.New(opts, options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func baseURL(app *tgwebhook.Application) string {
	return "http://" + app.Addr().String()
}

var testClient = &http.Client{
	Timeout:   5 * time.Second,
	Transport: &http.Transport{DisableKeepAlives: true},
}

func post(t *testing.T, url, body string, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := testClient.Do(req)
	require.NoError(t, err)
	return resp
}

// echo replies to every message with its own text.
func echo(calls *atomic.Int32) tgwebhook.Handler {
	return tgwebhook.HandlerFunc(func(_ context.Context, u *telegram.Update) (telegram.Method, error) {
		if calls != nil {
			calls.Add(1)
		}
		return telegram.SendMessage{ChatID: u.ChatID(), Text: u.EffectiveMessage().Text}, nil
	})
}
