package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correcthorse123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correcthorse123" {
		t.Fatal("hash must not equal the plaintext")
	}
	if err := VerifyPassword(hash, "correcthorse123"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := VerifyPassword(hash, "wrongpass"); err == nil {
		t.Fatal("expected mismatch for wrong password")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	// A corrupted stored hash must report a mismatch, not panic or leak
	// which part failed.
	for _, hash := range []string{"", "not-a-bcrypt-hash", "$2a$10$tooshort"} {
		if err := VerifyPassword(hash, "whatever"); err == nil {
			t.Fatalf("expected mismatch for malformed hash %q", hash)
		}
	}
}

func TestHashPasswordSalted(t *testing.T) {
	h1, err := HashPassword("same-secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("same-secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatal("two hashes of the same secret must differ (random salt)")
	}
}
