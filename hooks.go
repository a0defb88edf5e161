package tgwebhook

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dmitrymomot/tgwebhook/pkg/logger"
)

// Event identifies the lifecycle point a hook is attached to.
type Event string

const (
	EventServerStarted    Event = "server.started"
	EventServerStopped    Event = "server.stopped"
	EventRequestReceived  Event = "request.received"
	EventRequestCompleted Event = "request.completed"
)

// HookInfo describes the occurrence a hook is called for. Server events fill
// Addr and TLS; request events fill the request fields. Status, Duration and
// Err are set for EventRequestCompleted only. Duplicate marks a redelivered
// update that was acknowledged without calling the handler.
type HookInfo struct {
	Event Event

	Addr net.Addr
	TLS  bool

	Request *http.Request
	// Route is the registered path that matched, empty when none did.
	Route     string
	UpdateID  int64
	Duplicate bool
	Status    int
	Duration  time.Duration
	Err       error
}

// Hook is a side-effect-only callback. Panics are recovered and logged.
type Hook func(ctx context.Context, info HookInfo)

type hookSet map[Event][]Hook

func (hs hookSet) add(e Event, h Hook) {
	if h == nil {
		return
	}
	hs[e] = append(hs[e], h)
}

func (hs hookSet) fire(ctx context.Context, log *slog.Logger, info HookInfo) {
	for _, h := range hs[info.Event] {
		runHook(ctx, log, h, info)
	}
}

func runHook(ctx context.Context, log *slog.Logger, h Hook, info HookInfo) {
	defer func() {
		if rec := recover(); rec != nil {
			log.ErrorContext(ctx, "hook panicked",
				logger.Event(string(info.Event)),
				slog.Any("panic", rec),
				logger.Component("hooks"),
			)
		}
	}()
	h(ctx, info)
}
