// Package telegram holds the subset of the Telegram Bot API that a webhook
// receiver needs: the inbound Update payload, the reply methods that can be
// returned synchronously in the webhook response body, and verification of
// the secret token header.
//
// Replies implement Method. A reply is validated before it is written, and
// its JSON form carries a "method" field naming the Bot API call:
//
//	reply := telegram.SendMessage{ChatID: u.ChatID(), Text: "pong"}
//	if err := reply.Validate(); err != nil {
//		// reject
//	}
//	body, _ := json.Marshal(reply) // {"method":"sendMessage","chat_id":...,"text":"pong"}
//
// Only the fields this module reads or writes are modelled; unknown fields in
// an update are ignored when decoding.
package telegram
