package telegram

import (
	"encoding/json"

	"github.com/dmitrymomot/tgwebhook/pkg/validator"
)

// Method is a Bot API call that can be returned as the webhook response.
type Method interface {
	// Method returns the Bot API method name, e.g. "sendMessage".
	Method() string
	// Validate reports parameters the Bot API would reject.
	Validate() error
}

// Parse modes accepted in text fields.
const (
	ParseModeHTML       = "HTML"
	ParseModeMarkdown   = "Markdown"
	ParseModeMarkdownV2 = "MarkdownV2"
)

var parseModes = []string{ParseModeHTML, ParseModeMarkdown, ParseModeMarkdownV2}

const (
	maxMessageText       = 4096
	maxCallbackAnswer    = 200
	maxCallbackCacheTime = 60 * 60 * 24 * 30 // seconds
)

// SendMessage sends a text message to a chat.
type SendMessage struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableNotification   bool   `json:"disable_notification,omitempty"`
	ReplyToMessageID      int64  `json:"reply_to_message_id,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

func (SendMessage) Method() string { return "sendMessage" }

func (m SendMessage) Validate() error {
	return validator.Apply(
		validator.RequiredNum("chat_id", m.ChatID),
		validator.Required("text", m.Text),
		validator.LenRunes("text", m.Text, 1, maxMessageText),
		validator.InList("parse_mode", m.ParseMode, parseModes),
		validator.MinNum("reply_to_message_id", m.ReplyToMessageID, 0),
	)
}

func (m SendMessage) MarshalJSON() ([]byte, error) {
	type params SendMessage
	return json.Marshal(struct {
		Method string `json:"method"`
		params
	}{m.Method(), params(m)})
}

// AnswerCallbackQuery acknowledges a callback query, optionally showing a
// notification or alert to the user.
type AnswerCallbackQuery struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
	URL             string `json:"url,omitempty"`
	CacheTime       int    `json:"cache_time,omitempty"`
}

func (AnswerCallbackQuery) Method() string { return "answerCallbackQuery" }

func (m AnswerCallbackQuery) Validate() error {
	return validator.Apply(
		validator.Required("callback_query_id", m.CallbackQueryID),
		validator.MaxLenRunes("text", m.Text, maxCallbackAnswer),
		validator.RangeNum("cache_time", m.CacheTime, 0, maxCallbackCacheTime),
	)
}

func (m AnswerCallbackQuery) MarshalJSON() ([]byte, error) {
	type params AnswerCallbackQuery
	return json.Marshal(struct {
		Method string `json:"method"`
		params
	}{m.Method(), params(m)})
}

// DeleteMessage deletes a message the bot is allowed to delete.
type DeleteMessage struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

func (DeleteMessage) Method() string { return "deleteMessage" }

func (m DeleteMessage) Validate() error {
	return validator.Apply(
		validator.RequiredNum("chat_id", m.ChatID),
		validator.MinNum("message_id", m.MessageID, 1),
	)
}

func (m DeleteMessage) MarshalJSON() ([]byte, error) {
	type params DeleteMessage
	return json.Marshal(struct {
		Method string `json:"method"`
		params
	}{m.Method(), params(m)})
}
