package tgwebhook

import (
	"errors"
	"log/slog"
	"net/http"
)

// Lifecycle and configuration errors. Returned errors are joined with the
// underlying cause, so match them with errors.Is.
var (
	ErrConfig          = errors.New("invalid webhook options")
	ErrStartup         = errors.New("webhook server failed to start")
	ErrAlreadyRunning  = errors.New("webhook server is already running")
	ErrNotRunning      = errors.New("webhook server is not running")
	ErrInvalidPath     = errors.New("invalid handler binding")
	ErrReplyValidation = errors.New("reply failed validation")
)

// Request errors. They never escape the pipeline; hooks receive them in
// HookInfo.Err and they decide the response status.
var (
	ErrDecode           = errors.New("request body is not a valid update")
	ErrBodyTooLarge     = errors.New("request body too large")
	ErrUnknownPath      = errors.New("no handler registered for path")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrUnauthorized     = errors.New("secret token mismatch")
	ErrForbidden        = errors.New("client network not allowed")
	ErrRateLimited      = errors.New("client rate limit exceeded")
	ErrHandler          = errors.New("update handler failed")
)

// errorInfo is the response classification of a request error.
type errorInfo struct {
	status int
	code   string
	level  slog.Level
}

func classifyError(err error) errorInfo {
	switch {
	case errors.Is(err, ErrUnknownPath):
		return errorInfo{http.StatusNotFound, "not_found", slog.LevelInfo}
	case errors.Is(err, ErrMethodNotAllowed):
		return errorInfo{http.StatusMethodNotAllowed, "method_not_allowed", slog.LevelInfo}
	case errors.Is(err, ErrUnauthorized):
		return errorInfo{http.StatusUnauthorized, "unauthorized", slog.LevelWarn}
	case errors.Is(err, ErrForbidden):
		return errorInfo{http.StatusForbidden, "forbidden", slog.LevelWarn}
	case errors.Is(err, ErrRateLimited):
		return errorInfo{http.StatusTooManyRequests, "rate_limited", slog.LevelWarn}
	case errors.Is(err, ErrBodyTooLarge):
		return errorInfo{http.StatusRequestEntityTooLarge, "body_too_large", slog.LevelWarn}
	case errors.Is(err, ErrDecode):
		return errorInfo{http.StatusBadRequest, "bad_request", slog.LevelWarn}
	case errors.Is(err, ErrReplyValidation):
		return errorInfo{http.StatusInternalServerError, "invalid_reply", slog.LevelError}
	default:
		return errorInfo{http.StatusInternalServerError, "internal_error", slog.LevelError}
	}
}
