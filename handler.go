package tgwebhook

import (
	"context"

	"github.com/dmitrymomot/tgwebhook/pkg/telegram"
)

// Handler processes one decoded update. A non-nil Method is validated and
// written as the webhook response; a nil Method produces an empty 200.
// Returning an error (or panicking) answers 500 and leaves the server running.
type Handler interface {
	HandleUpdate(ctx context.Context, u *telegram.Update) (telegram.Method, error)
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(ctx context.Context, u *telegram.Update) (telegram.Method, error)

func (f HandlerFunc) HandleUpdate(ctx context.Context, u *telegram.Update) (telegram.Method, error) {
	return f(ctx, u)
}

// Bot is a Handler that knows the path it is served on.
type Bot interface {
	Handler
	BotPath() string
}

// SecretTokenBot is implemented by bots that registered their webhook with a
// secret_token. RegisterBot enforces the token automatically.
type SecretTokenBot interface {
	Bot
	SecretToken() string
}

// BindOption configures a single handler binding.
type BindOption func(*binding)

// WithSecretToken rejects requests to the binding whose
// X-Telegram-Bot-Api-Secret-Token header does not equal token.
func WithSecretToken(token string) BindOption {
	return func(b *binding) { b.secret = token }
}
