package main

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/dmitrymomot/tgwebhook/pkg/logger"
	"github.com/dmitrymomot/tgwebhook/pkg/telegram"
)

const maxCallbackText = 200

// echoBot answers text messages with the same text and callback queries with
// their data.
type echoBot struct {
	path   string
	secret string
	log    *slog.Logger
}

func (b echoBot) BotPath() string     { return b.path }
func (b echoBot) SecretToken() string { return b.secret }

func (b echoBot) HandleUpdate(ctx context.Context, u *telegram.Update) (telegram.Method, error) {
	b.log.DebugContext(ctx, "update received", logger.UpdateID(u.UpdateID), slog.String("kind", u.Kind()))

	switch {
	case u.CallbackQuery != nil:
		return telegram.AnswerCallbackQuery{
			CallbackQueryID: u.CallbackQuery.ID,
			Text:            truncate(u.CallbackQuery.Data, maxCallbackText),
		}, nil
	case u.Message != nil && u.Message.Text != "":
		return telegram.SendMessage{
			ChatID:           u.Message.Chat.ID,
			Text:             u.Message.Text,
			ReplyToMessageID: u.Message.MessageID,
		}, nil
	default:
		return nil, nil
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
