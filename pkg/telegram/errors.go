package telegram

import "errors"

var (
	// ErrMalformedUpdate indicates that a request body is not a valid update.
	ErrMalformedUpdate = errors.New("malformed update")
	// ErrSecretTokenMismatch indicates that the secret token header is missing or wrong.
	ErrSecretTokenMismatch = errors.New("secret token mismatch")
	// ErrInvalidSecretToken indicates a configured secret token the Bot API would reject.
	ErrInvalidSecretToken = errors.New("invalid secret token")
)
