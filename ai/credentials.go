package ai

import (
	"errors"
	"strings"
)

// MissingAPIKeyWarning is the user-facing message shown when no key was supplied.
const MissingAPIKeyWarning = "Please enter the Groq API Key"

// ErrMissingAPIKey is returned by RequireAPIKey when no key was supplied.
var ErrMissingAPIKey = errors.New("api key is required")

// RequireAPIKey gates every downstream call on a non-blank key.
// The key itself is not checked; an invalid key fails at the remote API.
func RequireAPIKey(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}
