package telegram

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/tgwebhook/pkg/validator"
)

// SecretTokenHeader carries the secret_token passed to setWebhook on every
// webhook request.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

const maxSecretTokenLen = 256

// ValidateSecretToken checks that token is acceptable to setWebhook:
// 1-256 characters, only A-Z, a-z, 0-9, _ and -.
func ValidateSecretToken(token string) error {
	err := validator.Apply(
		validator.LenRunes("secret_token", token, 1, maxSecretTokenLen),
		validator.Custom("secret_token", "must contain only A-Z, a-z, 0-9, _ and -", func() bool {
			for _, r := range token {
				if !isTokenChar(r) {
					return false
				}
			}
			return true
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSecretToken, err)
	}
	return nil
}

// VerifySecretToken compares the header value against the expected token in
// constant time.
func VerifySecretToken(expected, got string) error {
	if got == "" {
		return fmt.Errorf("%w: header %s is missing", ErrSecretTokenMismatch, SecretTokenHeader)
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return ErrSecretTokenMismatch
	}
	return nil
}

// VerifyRequest checks the secret token header of r.
func VerifyRequest(r *http.Request, expected string) error {
	return VerifySecretToken(expected, r.Header.Get(SecretTokenHeader))
}

func isTokenChar(r rune) bool {
	return r >= 'a' && r <= 'z' ||
		r >= 'A' && r <= 'Z' ||
		r >= '0' && r <= '9' ||
		r == '_' || r == '-'
}
