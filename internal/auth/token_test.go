package auth

import (
	"encoding/base64"
	"testing"
)

func TestNewSessionToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := NewSessionToken()
		if err != nil {
			t.Fatalf("NewSessionToken: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(token)
		if err != nil {
			t.Fatalf("token is not URL-safe base64: %v", err)
		}
		if len(raw) != tokenBytes {
			t.Fatalf("expected %d bytes of entropy, got %d", tokenBytes, len(raw))
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = struct{}{}
	}
}
