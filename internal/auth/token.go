package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const tokenBytes = 32

// NewSessionToken returns a fresh opaque bearer token with 256 bits of
// entropy. The token is not derivable from any account attribute; the
// store-level unique constraint is the collision backstop.
func NewSessionToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
