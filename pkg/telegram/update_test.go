package telegram_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tgwebhook/pkg/telegram"
)

func TestDecodeUpdate(t *testing.T) {
	t.Parallel()

	t.Run("message", func(t *testing.T) {
		t.Parallel()
		body := `{"update_id":10,"message":{"message_id":5,"from":{"id":7,"is_bot":false,"first_name":"Ann"},"chat":{"id":42,"type":"private"},"date":1700000000,"text":"/start"},"unknown_field":true}`
		u, err := telegram.DecodeUpdate(strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, int64(10), u.UpdateID)
		assert.Equal(t, "message", u.Kind())
		assert.Equal(t, int64(42), u.ChatID())
		require.NotNil(t, u.From())
		assert.Equal(t, int64(7), u.From().ID)
		assert.Equal(t, "/start", u.EffectiveMessage().Text)
	})

	t.Run("callback query", func(t *testing.T) {
		t.Parallel()
		body := `{"update_id":11,"callback_query":{"id":"cb1","from":{"id":8,"is_bot":false,"first_name":"Bo"},"chat_instance":"x","data":"yes","message":{"message_id":3,"chat":{"id":-100,"type":"group"},"date":1}}}`
		u, err := telegram.DecodeUpdate(strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, "callback_query", u.Kind())
		assert.Equal(t, int64(-100), u.ChatID())
		assert.Equal(t, int64(8), u.From().ID)
	})

	t.Run("inline query has no chat", func(t *testing.T) {
		t.Parallel()
		u, err := telegram.DecodeUpdate(strings.NewReader(`{"update_id":12,"inline_query":{"id":"q","from":{"id":9,"first_name":"C"},"query":"cats","offset":""}}`))
		require.NoError(t, err)
		assert.Equal(t, "inline_query", u.Kind())
		assert.Zero(t, u.ChatID())
		assert.Nil(t, u.EffectiveMessage())
		assert.Equal(t, int64(9), u.From().ID)
	})

	t.Run("empty object", func(t *testing.T) {
		t.Parallel()
		u, err := telegram.DecodeUpdate(strings.NewReader(`{}`))
		require.NoError(t, err)
		assert.Equal(t, "unknown", u.Kind())
		assert.Nil(t, u.From())
	})

	malformed := map[string]string{
		"empty body":     "",
		"not json":       "hello",
		"truncated":      `{"update_id":1`,
		"null":           "null",
		"array":          `[{"update_id":1}]`,
		"wrong type":     `{"update_id":"one"}`,
		"trailing value": `{"update_id":1}{"update_id":2}`,
	}
	for name, body := range malformed {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			u, err := telegram.DecodeUpdate(strings.NewReader(body))
			require.Error(t, err)
			assert.Nil(t, u)
			assert.ErrorIs(t, err, telegram.ErrMalformedUpdate)
		})
	}
}
